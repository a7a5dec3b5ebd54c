package raster

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// FindTrim scans inward from each edge and returns the minimal bounding
// rectangle enclosing all non-background content. A pixel counts as
// background when the Euclidean RGB distance to bg (on the 0..255 scale) is
// at most threshold; when the image carries an alpha channel, a fully
// transparent pixel is background regardless of its RGB values. If the
// whole image is background the empty rectangle is returned.
func (m *Image) FindTrim(threshold float64, bg PixelPacket) (image.Rectangle, error) {
	if err := m.ensureLive(); err != nil {
		return image.Rectangle{}, err
	}
	if err := m.materialize(); err != nil {
		return image.Rectangle{}, err
	}

	ref := colorful.Color{R: bg.R / 255.0, G: bg.G / 255.0, B: bg.B / 255.0}
	isBG := func(x, y int) bool {
		i := m.pix.PixOffset(x, y)
		if m.hasAlpha && m.pix.Pix[i+3] == 0 {
			return true
		}
		c := colorful.Color{
			R: float64(m.pix.Pix[i+0]) / 255.0,
			G: float64(m.pix.Pix[i+1]) / 255.0,
			B: float64(m.pix.Pix[i+2]) / 255.0,
		}
		return c.DistanceRgb(ref)*255.0 <= threshold
	}
	rowBG := func(y int) bool {
		for x := 0; x < m.width; x++ {
			if !isBG(x, y) {
				return false
			}
		}
		return true
	}
	colBG := func(x, top, bottom int) bool {
		for y := top; y <= bottom; y++ {
			if !isBG(x, y) {
				return false
			}
		}
		return true
	}

	top := 0
	for top < m.height && rowBG(top) {
		top++
	}
	if top == m.height {
		return image.Rectangle{}, nil
	}
	bottom := m.height - 1
	for bottom > top && rowBG(bottom) {
		bottom--
	}
	left := 0
	for left < m.width && colBG(left, top, bottom) {
		left++
	}
	right := m.width - 1
	for right > left && colBG(right, top, bottom) {
		right--
	}
	return image.Rect(left, top, right+1, bottom+1), nil
}
