package raster

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// Gravity anchors the original content when the canvas is enlarged by Pad.
type Gravity int

const (
	GravityCentre Gravity = iota
	GravityNorth
	GravityNorthEast
	GravityEast
	GravitySouthEast
	GravitySouth
	GravitySouthWest
	GravityWest
	GravityNorthWest
)

// Resize scales the image to the target dimensions using Lanczos
// resampling. With exact false the aspect ratio is preserved: the binding
// constraint (width or height, whichever yields the smaller scale factor)
// is met exactly and the other dimension is rounded. With exact true both
// dimensions become exactly the requested values. There is no upper bound
// on the scale factor; a target that rounds either axis to zero fails with
// ErrGeometry, leaving the image untouched.
func (m *Image) Resize(width, height int, exact bool) error {
	if err := m.ensureLive(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: resize target %dx%d", ErrGeometry, width, height)
	}
	nw, nh := width, height
	if !exact {
		scale := math.Min(float64(width)/float64(m.width), float64(height)/float64(m.height))
		nw = int(math.Round(float64(m.width) * scale))
		nh = int(math.Round(float64(m.height) * scale))
		if nw < 1 || nh < 1 {
			return fmt.Errorf("%w: resize of %dx%d to %dx%d scales an axis to zero",
				ErrGeometry, m.width, m.height, width, height)
		}
	}
	if err := m.materialize(); err != nil {
		return err
	}
	m.pix = imaging.Resize(m.pix, nw, nh, imaging.Lanczos)
	m.width = nw
	m.height = nh
	return nil
}

// Crop replaces the image content with the sub-region r. The rectangle must
// lie fully inside the current bounds and have positive width and height;
// anything else fails with ErrGeometry before any mutation, leaving the
// handle in its prior usable state.
func (m *Image) Crop(r image.Rectangle) error {
	if err := m.ensureLive(); err != nil {
		return err
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return fmt.Errorf("%w: crop box %v has no area", ErrGeometry, r)
	}
	if !r.In(image.Rect(0, 0, m.width, m.height)) {
		return fmt.Errorf("%w: crop box %v outside %dx%d", ErrGeometry, r, m.width, m.height)
	}
	if err := m.materialize(); err != nil {
		return err
	}
	m.pix = imaging.Crop(m.pix, r)
	m.width = r.Dx()
	m.height = r.Dy()
	return nil
}

// Pad enlarges the canvas to width x height, placing the original content
// per gravity and filling the border with fill. With GravityCentre the
// margin is split evenly; an odd margin puts the extra pixel on the
// trailing (right/bottom) edge. When the image has no alpha channel the
// fill alpha is ignored and the border is stored fully opaque; otherwise
// the border keeps fill's channels exactly, alpha included. A target
// smaller than the current image in either axis fails with ErrGeometry.
func (m *Image) Pad(width, height int, fill PixelPacket, gravity Gravity) error {
	if err := m.ensureLive(); err != nil {
		return err
	}
	if width < m.width || height < m.height {
		return fmt.Errorf("%w: pad target %dx%d smaller than image %dx%d",
			ErrGeometry, width, height, m.width, m.height)
	}
	if err := m.materialize(); err != nil {
		return err
	}
	c := fill.nrgba(!m.hasAlpha)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i+0] = c.R
		dst.Pix[i+1] = c.G
		dst.Pix[i+2] = c.B
		dst.Pix[i+3] = c.A
	}
	ox, oy := gravityOffset(gravity, width-m.width, height-m.height)
	draw.Draw(dst, image.Rect(ox, oy, ox+m.width, oy+m.height), m.pix, m.pix.Rect.Min, draw.Src)
	m.pix = dst
	m.width = width
	m.height = height
	return nil
}

// gravityOffset places content within extra horizontal/vertical margin.
// Integer halving floors, so centre gravity leaves the odd pixel on the
// trailing edge.
func gravityOffset(g Gravity, exX, exY int) (int, int) {
	switch g {
	case GravityNorth:
		return exX / 2, 0
	case GravityNorthEast:
		return exX, 0
	case GravityEast:
		return exX, exY / 2
	case GravitySouthEast:
		return exX, exY
	case GravitySouth:
		return exX / 2, exY
	case GravitySouthWest:
		return 0, exY
	case GravityWest:
		return 0, exY / 2
	case GravityNorthWest:
		return 0, 0
	default:
		return exX / 2, exY / 2
	}
}

// Flatten composites every pixel against bg with alpha-over compositing and
// drops the alpha channel. Calling Flatten on an image without alpha is a
// no-op returning nil.
func (m *Image) Flatten(bg PixelPacket) error {
	if err := m.ensureLive(); err != nil {
		return err
	}
	if !m.hasAlpha {
		return nil
	}
	if err := m.materialize(); err != nil {
		return err
	}
	for i := 0; i < len(m.pix.Pix); i += 4 {
		a := float64(m.pix.Pix[i+3]) / 255.0
		m.pix.Pix[i+0] = clampChannel(float64(m.pix.Pix[i+0])*a + bg.R*(1-a))
		m.pix.Pix[i+1] = clampChannel(float64(m.pix.Pix[i+1])*a + bg.G*(1-a))
		m.pix.Pix[i+2] = clampChannel(float64(m.pix.Pix[i+2])*a + bg.B*(1-a))
		m.pix.Pix[i+3] = 255
	}
	m.hasAlpha = false
	if m.channels > 1 {
		m.channels--
	}
	return nil
}

// Compose composites overlay onto m at origin (0,0) with alpha-over
// compositing, modifying m in place over the overlapping region. overlay is
// left unmodified and remains owned by its caller.
func (m *Image) Compose(overlay *Image) error {
	if err := m.ensureLive(); err != nil {
		return err
	}
	if err := overlay.ensureLive(); err != nil {
		return err
	}
	if err := m.materialize(); err != nil {
		return err
	}
	if err := overlay.materialize(); err != nil {
		return err
	}
	w := min(m.width, overlay.width)
	h := min(m.height, overlay.height)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := overlay.pix.PixOffset(x, y)
			di := m.pix.PixOffset(x, y)
			sa := float64(overlay.pix.Pix[si+3]) / 255.0
			if !overlay.hasAlpha {
				sa = 1.0
			}
			da := float64(m.pix.Pix[di+3]) / 255.0
			m.pix.Pix[di+0] = clampChannel(float64(overlay.pix.Pix[si+0])*sa + float64(m.pix.Pix[di+0])*(1-sa))
			m.pix.Pix[di+1] = clampChannel(float64(overlay.pix.Pix[si+1])*sa + float64(m.pix.Pix[di+1])*(1-sa))
			m.pix.Pix[di+2] = clampChannel(float64(overlay.pix.Pix[si+2])*sa + float64(m.pix.Pix[di+2])*(1-sa))
			m.pix.Pix[di+3] = clampChannel((sa + da*(1-sa)) * 255.0)
		}
	}
	return nil
}
