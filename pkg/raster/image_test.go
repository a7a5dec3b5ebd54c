package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	chaiwebp "github.com/chai2010/webp"
)

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("jpeg encode failed: %v", err)
	}
	return buf.Bytes()
}

func webpBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := chaiwebp.Encode(&buf, img, &chaiwebp.Options{Quality: 90}); err != nil {
		t.Fatalf("webp encode failed: %v", err)
	}
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h, frames int) []byte {
	t.Helper()
	g := &gif.GIF{}
	pal := color.Palette{color.White, color.Black}
	for i := 0; i < frames; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), pal)
		g.Image = append(g.Image, frame)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("gif encode failed: %v", err)
	}
	return buf.Bytes()
}

func mustOpen(t *testing.T, buf []byte) *Image {
	t.Helper()
	img, err := Open(buf)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	return img
}

func TestOpenAndReleaseAllFormats(t *testing.T) {
	opaque := solidNRGBA(32, 24, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	sources := map[string][]byte{
		"jpeg": jpegBytes(t, opaque),
		"png":  pngBytes(t, opaque),
		"webp": webpBytes(t, opaque),
		"gif":  gifBytes(t, 32, 24, 1),
	}
	for name, buf := range sources {
		img, err := Open(buf)
		if err != nil {
			t.Fatalf("%s: open failed: %v", name, err)
		}
		if img.Width() != 32 || img.Height() != 24 {
			t.Fatalf("%s: got %dx%d, want 32x24", name, img.Width(), img.Height())
		}
		img.Release()
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := Open([]byte("definitely not an image")); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := Open(nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for empty buffer, got %v", err)
	}
}

func TestDoubleReleaseIsNoOp(t *testing.T) {
	img := mustOpen(t, pngBytes(t, solidNRGBA(8, 8, color.NRGBA{A: 255})))
	img.Release()
	img.Release() // must not panic or change anything
	img.Release()
}

func TestOperationsFailAfterRelease(t *testing.T) {
	img := mustOpen(t, pngBytes(t, solidNRGBA(8, 8, color.NRGBA{A: 255})))
	img.Release()

	if _, err := img.GetPoint(0, 0); !errors.Is(err, ErrUseAfterRelease) {
		t.Fatalf("GetPoint after release: got %v", err)
	}
	if err := img.Resize(4, 4, true); !errors.Is(err, ErrUseAfterRelease) {
		t.Fatalf("Resize after release: got %v", err)
	}
	if err := img.Crop(image.Rect(0, 0, 2, 2)); !errors.Is(err, ErrUseAfterRelease) {
		t.Fatalf("Crop after release: got %v", err)
	}
	if _, err := img.WriteToArray(FormatPNG, 0, false); !errors.Is(err, ErrUseAfterRelease) {
		t.Fatalf("WriteToArray after release: got %v", err)
	}
	if _, err := img.FindTrim(10, NewPixelPacket(255, 255, 255)); !errors.Is(err, ErrUseAfterRelease) {
		t.Fatalf("FindTrim after release: got %v", err)
	}
	if _, err := NewWithFill(img, NewPixelPacket(0, 0, 0)); !errors.Is(err, ErrUseAfterRelease) {
		t.Fatalf("NewWithFill after release: got %v", err)
	}
}

func TestNewWithFillMatchesSource(t *testing.T) {
	src := mustOpen(t, jpegBytes(t, solidNRGBA(40, 30, color.NRGBA{R: 1, G: 2, B: 3, A: 255})))
	defer src.Release()

	white := NewPixelPacket(255, 255, 255)
	copyImg, err := NewWithFill(src, white)
	if err != nil {
		t.Fatalf("NewWithFill failed: %v", err)
	}
	defer copyImg.Release()

	if copyImg.Width() != src.Width() || copyImg.Height() != src.Height() {
		t.Fatalf("copy is %dx%d, want %dx%d", copyImg.Width(), copyImg.Height(), src.Width(), src.Height())
	}
	p, err := copyImg.GetPoint(0, 0)
	if err != nil {
		t.Fatalf("GetPoint failed: %v", err)
	}
	if p != white {
		t.Fatalf("fill pixel is %+v, want %+v", p, white)
	}
}

func TestHasAlphaPerFormat(t *testing.T) {
	transparent := solidNRGBA(16, 16, color.NRGBA{})
	withAlpha := mustOpen(t, pngBytes(t, transparent))
	defer withAlpha.Release()
	if !withAlpha.HasAlpha() {
		t.Fatalf("transparent png should report alpha")
	}

	opaque := mustOpen(t, jpegBytes(t, solidNRGBA(16, 16, color.NRGBA{R: 50, A: 255})))
	defer opaque.Release()
	if opaque.HasAlpha() {
		t.Fatalf("jpeg should not report alpha")
	}
}

func TestInterpretationGuessedFromPixels(t *testing.T) {
	rgb := mustOpen(t, jpegBytes(t, solidNRGBA(8, 8, color.NRGBA{R: 90, G: 10, B: 10, A: 255})))
	defer rgb.Release()
	if rgb.Interpretation() != InterpretationSRGB {
		t.Fatalf("color jpeg: got %v, want srgb", rgb.Interpretation())
	}

	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	mono := mustOpen(t, pngBytes(t, gray))
	defer mono.Release()
	if mono.Interpretation() != InterpretationBW {
		t.Fatalf("gray png: got %v, want b-w", mono.Interpretation())
	}
	if mono.Channels() != 1 {
		t.Fatalf("gray png: got %d channels, want 1", mono.Channels())
	}
}

func TestSixteenBitMetadata(t *testing.T) {
	deep := image.NewNRGBA64(image.Rect(0, 0, 4, 4))
	for i := range deep.Pix {
		deep.Pix[i] = 0xFF // white, fully opaque
	}
	img := mustOpen(t, pngBytes(t, deep))
	defer img.Release()
	if img.BitsPerChannel() != 16 {
		t.Fatalf("got %d bits per channel, want 16", img.BitsPerChannel())
	}
}

func TestFrameCount(t *testing.T) {
	animated := mustOpen(t, gifBytes(t, 10, 10, 5))
	defer animated.Release()
	if animated.NumFrames() != 5 {
		t.Fatalf("animated gif: got %d frames, want 5", animated.NumFrames())
	}

	static := mustOpen(t, gifBytes(t, 10, 10, 1))
	defer static.Release()
	if static.NumFrames() != 1 {
		t.Fatalf("static gif: got %d frames, want 1", static.NumFrames())
	}

	still := mustOpen(t, jpegBytes(t, solidNRGBA(10, 10, color.NRGBA{A: 255})))
	defer still.Release()
	if still.NumFrames() != 1 {
		t.Fatalf("jpeg: got %d frames, want 1", still.NumFrames())
	}
}
