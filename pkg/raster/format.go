package raster

import (
	"bytes"
	"fmt"
)

// Format is an image container understood by the engine.
type Format int

const (
	FormatJPEG Format = iota
	FormatPNG
	FormatWebP
	FormatGIF
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatWebP:
		return "webp"
	case FormatGIF:
		return "gif"
	}
	return "unknown"
}

// Interpretation is the colorspace guessed from the decoded pixel data,
// never from file naming.
type Interpretation int

const (
	InterpretationSRGB Interpretation = iota
	InterpretationBW
	InterpretationCMYK
)

func (i Interpretation) String() string {
	switch i {
	case InterpretationSRGB:
		return "srgb"
	case InterpretationBW:
		return "b-w"
	case InterpretationCMYK:
		return "cmyk"
	}
	return "unknown"
}

var (
	jpegMagic  = []byte{0xFF, 0xD8, 0xFF}
	pngMagic   = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	riffMagic  = []byte("RIFF")
	webpFourCC = []byte("WEBP")
	gif87Magic = []byte("GIF87a")
	gif89Magic = []byte("GIF89a")
)

// sniffFormat identifies the container from its signature bytes.
func sniffFormat(buf []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(buf, jpegMagic):
		return FormatJPEG, nil
	case bytes.HasPrefix(buf, pngMagic):
		return FormatPNG, nil
	case len(buf) >= 12 && bytes.HasPrefix(buf, riffMagic) && bytes.Equal(buf[8:12], webpFourCC):
		return FormatWebP, nil
	case bytes.HasPrefix(buf, gif87Magic) || bytes.HasPrefix(buf, gif89Magic):
		return FormatGIF, nil
	}
	return 0, fmt.Errorf("%w: unrecognized signature", ErrDecode)
}
