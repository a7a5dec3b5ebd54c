package raster

import (
	"fmt"
	"image/color"
	"math"
)

// PixelPacket is one sampled color, always normalized to four float64
// channels in [0,255]. Sources without an alpha channel report alpha 255.
// Equality is exact floating-point equality on all four fields, so two
// packets read back from 8-bit storage compare reliably.
type PixelPacket struct {
	R, G, B, A float64
}

// NewPixelPacket builds an opaque packet from RGB values.
func NewPixelPacket(r, g, b float64) PixelPacket {
	return PixelPacket{R: r, G: g, B: b, A: 255.0}
}

// NewPixelPacketWithAlpha builds a packet with an explicit alpha value.
func NewPixelPacketWithAlpha(r, g, b, a float64) PixelPacket {
	return PixelPacket{R: r, G: g, B: b, A: a}
}

// nrgba converts the packet to 8-bit storage. Channel values are clamped to
// [0,255] and rounded. When opaque is true the alpha component is ignored
// and the stored pixel is fully opaque.
func (p PixelPacket) nrgba(opaque bool) color.NRGBA {
	c := color.NRGBA{
		R: clampChannel(p.R),
		G: clampChannel(p.G),
		B: clampChannel(p.B),
		A: 255,
	}
	if !opaque {
		c.A = clampChannel(p.A)
	}
	return c
}

func clampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// GetPoint returns the color at (x, y). Coordinates outside
// [0,width)x[0,height) fail with ErrOutOfBounds; a default pixel is never
// returned silently. Samples from high-bit-depth sources are rescaled into
// [0,255] at decode time; grayscale sources replicate the sample across
// R, G and B.
func (m *Image) GetPoint(x, y int) (PixelPacket, error) {
	if err := m.ensureLive(); err != nil {
		return PixelPacket{}, err
	}
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return PixelPacket{}, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, m.width, m.height)
	}
	if err := m.materialize(); err != nil {
		return PixelPacket{}, err
	}
	i := m.pix.PixOffset(x, y)
	p := PixelPacket{
		R: float64(m.pix.Pix[i+0]),
		G: float64(m.pix.Pix[i+1]),
		B: float64(m.pix.Pix[i+2]),
		A: 255.0,
	}
	if m.hasAlpha {
		p.A = float64(m.pix.Pix[i+3])
	}
	return p, nil
}
