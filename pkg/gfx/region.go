package gfx

import (
	"errors"
	"fmt"
	"image"
)

var ErrDegenerateSplit = errors.New("gfx: page too small to split")

type Orientation int

const (
	// Horizontal places viewports side by side and slices the page width.
	Horizontal Orientation = iota
	// Vertical stacks viewports and slices the page height.
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// Region is one viewport's slice of a rendered page. Offset and Length are
// measured along the split axis; Rect is the slice within the full page.
type Region struct {
	Offset int
	Length int
	Rect   image.Rectangle
}

// Split cuts a width x height page into n contiguous regions along the axis
// selected by o. Every region but the last has length/n pixels; the last one
// takes the remainder.
func Split(width, height, n int, o Orientation) ([]Region, error) {
	length, cross := width, height
	if o == Vertical {
		length, cross = height, width
	}
	if n < 1 || length < n || cross < 1 {
		return nil, fmt.Errorf("%w: %dx%d into %d %s slices", ErrDegenerateSplit, width, height, n, o)
	}

	base := length / n
	regions := make([]Region, n)
	for i := range regions {
		offset := i * base
		size := base
		if i == n-1 {
			size = length - base*(n-1)
		}
		rect := image.Rect(offset, 0, offset+size, height)
		if o == Vertical {
			rect = image.Rect(0, offset, width, offset+size)
		}
		regions[i] = Region{Offset: offset, Length: size, Rect: rect}
	}
	return regions, nil
}
