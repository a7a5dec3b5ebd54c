// Package raster is an in-memory image manipulation engine. It decodes an
// encoded image (JPEG, PNG, WebP or GIF) from a byte buffer, exposes
// geometry and color operations on the decoded representation, and
// re-encodes the result. Heterogeneous sources (opaque vs. alpha-bearing,
// 8- vs. 16-bit, static vs. animated) sit behind one uniform contract: all
// pixel access is normalized to four float64 channels in [0,255].
//
// An Image wraps exactly one decoded-pixel resource and must be released
// explicitly. Release is idempotent; every other operation on a released
// handle fails with ErrUseAfterRelease. A single handle is not safe for
// concurrent mutation; independent handles are.
package raster

import (
	"fmt"
	"image"
)

// Image is the live handle for one decoded raster image.
type Image struct {
	backend Backend

	// source holds the original encoded bytes until the first operation
	// that needs pixel data. Corruption past the header therefore
	// surfaces on first use, not at Open.
	source []byte
	pix    *image.NRGBA

	width, height  int
	channels       int
	bitsPerChannel int
	interpretation Interpretation
	hasAlpha       bool
	frames         int

	released bool
}

// Open decodes the header of the encoded image in buf and returns a handle
// backed by DefaultBackend. The buffer is copied, so the caller may reuse
// it. Unrecognized or corrupt signatures fail with ErrDecode.
func Open(buf []byte) (*Image, error) {
	return OpenWith(DefaultBackend, buf)
}

// OpenWith is Open with an explicit codec backend.
func OpenWith(b Backend, buf []byte) (*Image, error) {
	hdr, err := b.Probe(buf)
	if err != nil {
		return nil, err
	}
	src := make([]byte, len(buf))
	copy(src, buf)
	m := &Image{
		backend:        b,
		source:         src,
		width:          hdr.Width,
		height:         hdr.Height,
		channels:       hdr.Channels,
		bitsPerChannel: hdr.BitsPerChannel,
		interpretation: hdr.Interpretation,
		hasAlpha:       hdr.HasAlpha,
		frames:         hdr.NumFrames,
	}
	trackOpen(m)
	return m, nil
}

// NewWithFill returns a new handle matching src's dimensions, colorspace
// and alpha presence, filled uniformly with fill. The fill alpha is kept
// only when src carries an alpha channel.
func NewWithFill(src *Image, fill PixelPacket) (*Image, error) {
	if err := src.ensureLive(); err != nil {
		return nil, err
	}
	c := fill.nrgba(!src.hasAlpha)
	pix := image.NewNRGBA(image.Rect(0, 0, src.width, src.height))
	for i := 0; i < len(pix.Pix); i += 4 {
		pix.Pix[i+0] = c.R
		pix.Pix[i+1] = c.G
		pix.Pix[i+2] = c.B
		pix.Pix[i+3] = c.A
	}
	m := &Image{
		backend:        src.backend,
		pix:            pix,
		width:          src.width,
		height:         src.height,
		channels:       src.channels,
		bitsPerChannel: src.bitsPerChannel,
		interpretation: src.interpretation,
		hasAlpha:       src.hasAlpha,
		frames:         1,
	}
	trackOpen(m)
	return m, nil
}

// Release frees the handle's pixel resource. It is safe to call multiple
// times; the second and later calls are no-ops. Release is always safe
// after a failed operation.
func (m *Image) Release() {
	if m.released {
		return
	}
	m.released = true
	m.source = nil
	m.pix = nil
	trackRelease(m)
}

func (m *Image) ensureLive() error {
	if m.released {
		return ErrUseAfterRelease
	}
	return nil
}

// materialize decodes the retained source bytes on first use.
func (m *Image) materialize() error {
	if m.pix != nil {
		return nil
	}
	d, err := m.backend.Decode(m.source)
	if err != nil {
		return err
	}
	m.pix = d.Pix
	m.source = nil
	return nil
}

// Width returns the current width, reflecting prior geometry operations.
func (m *Image) Width() int { return m.width }

// Height returns the current height, reflecting prior geometry operations.
func (m *Image) Height() int { return m.height }

// HasAlpha reports whether the image carries an alpha channel.
func (m *Image) HasAlpha() bool { return m.hasAlpha }

// Interpretation returns the colorspace guessed from the source pixel data.
func (m *Image) Interpretation() Interpretation { return m.interpretation }

// NumFrames returns the frame count: 1 for static sources and for animated
// sources lacking frame metadata, the true count for multi-frame GIFs.
func (m *Image) NumFrames() int { return m.frames }

// Channels returns the source band count (1-4).
func (m *Image) Channels() int { return m.channels }

// BitsPerChannel returns the source bit depth per channel.
func (m *Image) BitsPerChannel() int { return m.bitsPerChannel }

func (m *Image) String() string {
	if m.released {
		return "raster.Image(released)"
	}
	return fmt.Sprintf("raster.Image(%dx%d %s %d-bit bands=%d frames=%d)",
		m.width, m.height, m.interpretation, m.bitsPerChannel, m.channels, m.frames)
}
