package gfx

import (
	"image"

	"github.com/kjkrol/beamview/internal/platform"
)

// Viewport is one window showing one slice of the current page. The bound
// texture is borrowed from a cache entry; Unbind must be called before that
// entry is released.
type Viewport struct {
	index    int
	window   platform.Window
	texture  platform.Texture
	naturalW int
	naturalH int
	windowed platform.Geometry
}

func NewViewport(index int, window platform.Window) *Viewport {
	return &Viewport{index: index, window: window}
}

func (v *Viewport) Index() int { return v.index }

func (v *Viewport) ID() uint32 { return v.window.ID() }

func (v *Viewport) Window() platform.Window { return v.window }

func (v *Viewport) Size() image.Point {
	w, h := v.window.FramebufferSize()
	return image.Pt(w, h)
}

func (v *Viewport) Bind(tex platform.Texture, naturalW, naturalH int) {
	v.texture = tex
	v.naturalW = naturalW
	v.naturalH = naturalH
}

func (v *Viewport) Unbind() {
	v.texture = nil
	v.naturalW, v.naturalH = 0, 0
}

func (v *Viewport) Bound() platform.Texture { return v.texture }

// Present letterboxes the bound texture into the window.
func (v *Viewport) Present() {
	size := v.Size()
	if v.texture == nil {
		v.window.Present(nil, image.Rectangle{})
		return
	}
	v.window.Present(v.texture, Letterbox(size.X, size.Y, v.naturalW, v.naturalH))
}

func (v *Viewport) Fullscreen() bool { return v.window.Fullscreen() }

// ToggleFullscreen remembers the windowed geometry on the way in and restores
// it on the way out.
func (v *Viewport) ToggleFullscreen() error {
	if !v.window.Fullscreen() {
		v.windowed = v.window.Geometry()
		return v.window.SetFullscreen(true)
	}
	if err := v.window.SetFullscreen(false); err != nil {
		return err
	}
	if v.windowed.Width > 0 && v.windowed.Height > 0 {
		v.window.SetGeometry(v.windowed)
	}
	return nil
}

// Sizes returns the framebuffer sizes of viewports in order.
func Sizes(viewports []*Viewport) []image.Point {
	out := make([]image.Point, len(viewports))
	for i, v := range viewports {
		out[i] = v.Size()
	}
	return out
}
