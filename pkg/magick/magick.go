// Package magick is an ImageMagick-backed codec backend for the raster
// engine, built on gopkg.in/gographics/imagick.v3 (MagickWand). It covers
// the same four containers as the default pure-Go backend and is intended
// for deployments that already ship ImageMagick and want its codec paths.
//
// Call Initialize once before creating backends and Terminate at shutdown.
// Every wand is destroyed before returning, whether or not the call
// succeeded: the native resource is never left to the collector.
package magick

import (
	"fmt"
	"image"

	"gopkg.in/gographics/imagick.v3/imagick"

	"github.com/rasterly/rasterly/pkg/raster"
)

// Initialize sets up the MagickWand environment. Must be called once per
// process before any Backend method.
func Initialize() { imagick.Initialize() }

// Terminate tears down the MagickWand environment.
func Terminate() { imagick.Terminate() }

// Backend implements raster.Backend via MagickWand.
type Backend struct{}

// NewBackend returns a MagickWand-backed codec backend.
func NewBackend() *Backend { return &Backend{} }

func (b *Backend) Probe(buf []byte) (raster.Header, error) {
	mw := imagick.NewMagickWand()
	defer mw.Destroy()
	if err := mw.PingImageBlob(buf); err != nil {
		return raster.Header{}, fmt.Errorf("%w: %v", raster.ErrDecode, err)
	}
	hdr := raster.Header{
		Width:          int(mw.GetImageWidth()),
		Height:         int(mw.GetImageHeight()),
		BitsPerChannel: int(mw.GetImageDepth()),
		Interpretation: raster.InterpretationSRGB,
		HasAlpha:       mw.GetImageAlphaChannel(),
		NumFrames:      int(mw.GetNumberImages()),
	}
	format, err := sniff(mw.GetImageFormat())
	if err != nil {
		return raster.Header{}, err
	}
	hdr.Format = format
	switch mw.GetImageColorspace() {
	case imagick.COLORSPACE_CMYK:
		hdr.Interpretation = raster.InterpretationCMYK
		hdr.Channels = 4
	case imagick.COLORSPACE_GRAY:
		hdr.Interpretation = raster.InterpretationBW
		hdr.Channels = 1
	default:
		hdr.Channels = 3
	}
	if hdr.HasAlpha && hdr.Interpretation != raster.InterpretationCMYK {
		hdr.Channels++
	}
	if hdr.NumFrames < 1 {
		hdr.NumFrames = 1
	}
	return hdr, nil
}

func (b *Backend) Decode(buf []byte) (*raster.DecodedImage, error) {
	hdr, err := b.Probe(buf)
	if err != nil {
		return nil, err
	}
	mw := imagick.NewMagickWand()
	defer mw.Destroy()
	if err := mw.ReadImageBlob(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrDecode, err)
	}
	mw.ResetIterator()
	val, err := mw.ExportImagePixels(0, 0, uint(hdr.Width), uint(hdr.Height), "RGBA", imagick.PIXEL_CHAR)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrDecode, err)
	}
	samples, ok := val.([]uint8)
	if !ok || len(samples) != hdr.Width*hdr.Height*4 {
		return nil, fmt.Errorf("%w: unexpected pixel export layout", raster.ErrDecode)
	}
	pix := image.NewNRGBA(image.Rect(0, 0, hdr.Width, hdr.Height))
	copy(pix.Pix, samples)
	return &raster.DecodedImage{Pix: pix, Header: hdr}, nil
}

func (b *Backend) Encode(d *raster.DecodedImage, format raster.Format, opts raster.EncodeOptions) ([]byte, error) {
	var name string
	switch format {
	case raster.FormatJPEG:
		name = "JPEG"
	case raster.FormatPNG:
		name = "PNG"
	case raster.FormatWebP:
		name = "WEBP"
	case raster.FormatGIF:
		return nil, fmt.Errorf("%w: %w: gif is decode-only", raster.ErrEncode, raster.ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: %w", raster.ErrEncode, raster.ErrUnsupportedFormat)
	}
	mw := imagick.NewMagickWand()
	defer mw.Destroy()
	w := d.Pix.Rect.Dx()
	h := d.Pix.Rect.Dy()
	if err := mw.ConstituteImage(uint(w), uint(h), "RGBA", imagick.PIXEL_CHAR, d.Pix.Pix); err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrEncode, err)
	}
	if err := mw.SetImageFormat(name); err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrEncode, err)
	}
	if opts.Quality > 0 {
		if err := mw.SetImageCompressionQuality(uint(opts.Quality)); err != nil {
			return nil, fmt.Errorf("%w: %v", raster.ErrEncode, err)
		}
	}
	if opts.Strip {
		if err := mw.StripImage(); err != nil {
			return nil, fmt.Errorf("%w: %v", raster.ErrEncode, err)
		}
	}
	blob := mw.GetImageBlob()
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob", raster.ErrEncode)
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func sniff(magickFormat string) (raster.Format, error) {
	switch magickFormat {
	case "JPEG", "JPG":
		return raster.FormatJPEG, nil
	case "PNG":
		return raster.FormatPNG, nil
	case "WEBP":
		return raster.FormatWebP, nil
	case "GIF":
		return raster.FormatGIF, nil
	}
	return 0, fmt.Errorf("%w: format %q", raster.ErrDecode, magickFormat)
}
