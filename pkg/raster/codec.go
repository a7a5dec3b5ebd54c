package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	chaiwebp "github.com/chai2010/webp"
	"github.com/ericpauley/go-quantize/quantize"
	xwebp "golang.org/x/image/webp"
)

// Header is the metadata a backend can report without a full pixel decode.
type Header struct {
	Width          int
	Height         int
	Format         Format
	Channels       int
	BitsPerChannel int
	Interpretation Interpretation
	HasAlpha       bool
	NumFrames      int
}

// DecodedImage is the normalized decoded representation exchanged with a
// backend: 8-bit non-premultiplied RGBA regardless of the source layout.
type DecodedImage struct {
	Pix    *image.NRGBA
	Header Header
}

// EncodeOptions carries the per-format knobs for Backend.Encode.
type EncodeOptions struct {
	Quality     int  // JPEG/WebP quality, 1..100
	Compression int  // PNG zlib level, 0..9
	Palette     bool // PNG: quantize to an indexed palette
	Colors      int  // PNG: palette size when Palette is set
	Strip       bool // drop embedded metadata from the output
}

// Backend is the codec capability the engine delegates bitstream work to.
// The core never touches format-specific parsing beyond signature sniffing.
type Backend interface {
	// Probe reads enough of buf to report the header without decoding all
	// pixel data. It fails with ErrDecode on unrecognized or corrupt input.
	Probe(buf []byte) (Header, error)

	// Decode fully decodes buf. For animated sources the first frame is
	// returned.
	Decode(buf []byte) (*DecodedImage, error)

	// Encode serializes d into the requested container.
	Encode(d *DecodedImage, format Format, opts EncodeOptions) ([]byte, error)
}

// DefaultBackend is the pure-Go codec backend used by Open. Replace it (or
// use OpenWith) to plug in an alternative such as the magick backend.
var DefaultBackend Backend = &stdBackend{}

// stdBackend decodes with the standard library plus x/image (WebP) and
// encodes with the standard library plus chai2010/webp. Decoded pixel data
// is cached by content hash, bounded by the process configuration.
type stdBackend struct {
	cache decodeCache
}

func (b *stdBackend) Probe(buf []byte) (Header, error) {
	f, err := sniffFormat(buf)
	if err != nil {
		return Header{}, err
	}
	switch f {
	case FormatJPEG:
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(buf))
		if err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return headerFromConfig(cfg, f, 1), nil
	case FormatPNG:
		cfg, err := png.DecodeConfig(bytes.NewReader(buf))
		if err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return headerFromConfig(cfg, f, 1), nil
	case FormatWebP:
		cfg, err := xwebp.DecodeConfig(bytes.NewReader(buf))
		if err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return headerFromConfig(cfg, f, 1), nil
	case FormatGIF:
		// Frame metadata lives in the stream body, so GIF is parsed in
		// full up front.
		g, err := gif.DecodeAll(bytes.NewReader(buf))
		if err != nil {
			return Header{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		hdr := Header{
			Width:          g.Config.Width,
			Height:         g.Config.Height,
			Format:         f,
			Channels:       3,
			BitsPerChannel: 8,
			Interpretation: InterpretationSRGB,
			NumFrames:      len(g.Image),
		}
		if hdr.NumFrames < 1 {
			hdr.NumFrames = 1
		}
		for _, frame := range g.Image {
			if paletteHasAlpha(frame.Palette) {
				hdr.HasAlpha = true
				hdr.Channels = 4
				break
			}
		}
		return hdr, nil
	}
	return Header{}, fmt.Errorf("%w: unrecognized signature", ErrDecode)
}

// headerFromConfig derives channel count, bit depth, alpha presence and
// interpretation from the decoded color model.
func headerFromConfig(cfg image.Config, f Format, frames int) Header {
	hdr := Header{
		Width:          cfg.Width,
		Height:         cfg.Height,
		Format:         f,
		Channels:       3,
		BitsPerChannel: 8,
		Interpretation: InterpretationSRGB,
		NumFrames:      frames,
	}
	switch cfg.ColorModel {
	case color.CMYKModel:
		hdr.Channels = 4
		hdr.Interpretation = InterpretationCMYK
	case color.GrayModel:
		hdr.Channels = 1
		hdr.Interpretation = InterpretationBW
	case color.Gray16Model:
		hdr.Channels = 1
		hdr.BitsPerChannel = 16
		hdr.Interpretation = InterpretationBW
	case color.NRGBAModel, color.NYCbCrAModel:
		hdr.Channels = 4
		hdr.HasAlpha = true
	case color.NRGBA64Model:
		hdr.Channels = 4
		hdr.BitsPerChannel = 16
		hdr.HasAlpha = true
	case color.RGBAModel:
		// Opaque truecolor; the png decoder reports RGBA for 8-bit RGB.
	case color.RGBA64Model:
		hdr.BitsPerChannel = 16
	default:
		if p, ok := cfg.ColorModel.(color.Palette); ok && paletteHasAlpha(p) {
			hdr.Channels = 4
			hdr.HasAlpha = true
		}
	}
	return hdr
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a < 0xffff {
			return true
		}
	}
	return false
}

func (b *stdBackend) Decode(buf []byte) (*DecodedImage, error) {
	hdr, err := b.Probe(buf)
	if err != nil {
		return nil, err
	}
	if d, ok := b.cache.get(buf); ok {
		return d, nil
	}
	var src image.Image
	switch hdr.Format {
	case FormatJPEG:
		src, err = jpeg.Decode(bytes.NewReader(buf))
	case FormatPNG:
		src, err = png.Decode(bytes.NewReader(buf))
	case FormatWebP:
		src, err = xwebp.Decode(bytes.NewReader(buf))
	case FormatGIF:
		var g *gif.GIF
		g, err = gif.DecodeAll(bytes.NewReader(buf))
		if err == nil {
			src = g.Image[0]
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	d := &DecodedImage{Pix: toNRGBA(src), Header: hdr}
	b.cache.put(buf, d)
	return d, nil
}

func (b *stdBackend) Encode(d *DecodedImage, format Format, opts EncodeOptions) ([]byte, error) {
	var out bytes.Buffer
	switch format {
	case FormatJPEG:
		q := opts.Quality
		if q == 0 {
			q = jpeg.DefaultQuality
		}
		if q < 1 || q > 100 {
			return nil, fmt.Errorf("%w: jpeg quality %d outside [1,100]", ErrEncode, q)
		}
		if err := jpeg.Encode(&out, d.Pix, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatPNG:
		img, err := paletteImage(d.Pix, opts)
		if err != nil {
			return nil, err
		}
		enc := png.Encoder{CompressionLevel: pngLevel(opts.Compression)}
		if err := enc.Encode(&out, img); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatWebP:
		q := opts.Quality
		if q == 0 {
			q = 75
		}
		if q < 1 || q > 100 {
			return nil, fmt.Errorf("%w: webp quality %d outside [1,100]", ErrEncode, q)
		}
		if err := chaiwebp.Encode(&out, d.Pix, &chaiwebp.Options{Quality: float32(q)}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	case FormatGIF:
		return nil, fmt.Errorf("%w: %w: gif is decode-only", ErrEncode, ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %w", ErrEncode, ErrUnsupportedFormat)
	}
	return out.Bytes(), nil
}

// paletteImage quantizes src to an indexed image when opts.Palette is set,
// otherwise returns src unchanged.
func paletteImage(src *image.NRGBA, opts EncodeOptions) (image.Image, error) {
	if !opts.Palette {
		return src, nil
	}
	colors := opts.Colors
	if colors < 2 || colors > 256 {
		return nil, fmt.Errorf("%w: palette size %d outside [2,256]", ErrEncode, colors)
	}
	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean, AddTransparent: true}
	pal := q.Quantize(make(color.Palette, 0, colors), src)
	out := image.NewPaletted(src.Bounds(), pal)
	draw.FloydSteinberg.Draw(out, src.Bounds(), src, image.Point{})
	return out, nil
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level == 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 8:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// toNRGBA converts any image.Image to 8-bit non-premultiplied RGBA. 16-bit
// samples collapse to their high byte, so 65535 reads back as 255.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		out := image.NewNRGBA(n.Rect)
		copy(out.Pix, n.Pix)
		return out
	}
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = c.A
			i += 4
		}
	}
	return out
}

// cloneNRGBA returns a copy of src.
func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out
}
