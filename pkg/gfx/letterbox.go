package gfx

import (
	"image"
	"math"
)

// Letterbox fits a naturalW x naturalH texture into a viewW x viewH viewport,
// keeping its aspect ratio, and centres it.
func Letterbox(viewW, viewH, naturalW, naturalH int) image.Rectangle {
	if viewW <= 0 || viewH <= 0 || naturalW <= 0 || naturalH <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(float64(viewW)/float64(naturalW), float64(viewH)/float64(naturalH))
	w := int(float64(naturalW) * scale)
	h := int(float64(naturalH) * scale)
	x := (viewW - w) / 2
	y := (viewH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// CoverScale returns the smallest render scale at which every viewport's slice
// of a pageW x pageH page (in points) covers that viewport. Sizes are the
// viewports' framebuffer sizes. It returns 0 when no viewport has an area or
// the page size is invalid.
func CoverScale(sizes []image.Point, pageW, pageH float64, o Orientation) float64 {
	n := float64(len(sizes))
	if n == 0 || pageW <= 0 || pageH <= 0 {
		return 0
	}
	sliceW, sliceH := pageW/n, pageH
	if o == Vertical {
		sliceW, sliceH = pageW, pageH/n
	}
	scale := 0.0
	for _, size := range sizes {
		if size.X <= 0 || size.Y <= 0 {
			continue
		}
		s := math.Max(float64(size.X)/sliceW, float64(size.Y)/sliceH)
		if s > scale {
			scale = s
		}
	}
	return scale
}
