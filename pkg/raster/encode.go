package raster

import "fmt"

// WriteToArray serializes the current image state to the requested
// container. quality applies to lossy output (JPEG, WebP) and must be in
// [1,100]; zero selects the encoder default; it is ignored for PNG. strip
// requests that embedded metadata be dropped — the engine re-encodes from
// decoded pixels and never carries source EXIF/ICC data forward, so output
// is stripped either way; the flag is part of the contract and forwarded to
// the backend. Encoding to GIF fails with ErrUnsupportedFormat. A source
// whose pixel data is corrupt past the header fails here with ErrEncode
// rather than succeeding silently.
func (m *Image) WriteToArray(format Format, quality int, strip bool) ([]byte, error) {
	if err := m.ensureLive(); err != nil {
		return nil, err
	}
	if format == FormatGIF {
		return nil, fmt.Errorf("%w: %w: gif is decode-only", ErrEncode, ErrUnsupportedFormat)
	}
	if err := m.materialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return m.backend.Encode(m.decoded(), format, EncodeOptions{
		Quality: quality,
		Strip:   strip,
	})
}

// WritePNGToArray is the PNG-specific encode path. compression is the zlib
// level in [0,9]. With usePalette the output is quantized to at most
// maxColors palette entries (2..256), which for typical graphic content
// yields a strictly smaller file than the unquantized write.
func (m *Image) WritePNGToArray(compression int, usePalette bool, maxColors int, strip bool) ([]byte, error) {
	if err := m.ensureLive(); err != nil {
		return nil, err
	}
	if compression < 0 || compression > 9 {
		return nil, fmt.Errorf("%w: png compression %d outside [0,9]", ErrEncode, compression)
	}
	if err := m.materialize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return m.backend.Encode(m.decoded(), FormatPNG, EncodeOptions{
		Compression: compression,
		Palette:     usePalette,
		Colors:      maxColors,
		Strip:       strip,
	})
}

// decoded snapshots the handle state for the backend. materialize must have
// succeeded beforehand.
func (m *Image) decoded() *DecodedImage {
	return &DecodedImage{
		Pix: m.pix,
		Header: Header{
			Width:          m.width,
			Height:         m.height,
			Channels:       m.channels,
			BitsPerChannel: m.bitsPerChannel,
			Interpretation: m.interpretation,
			HasAlpha:       m.hasAlpha,
			NumFrames:      m.frames,
		},
	}
}
