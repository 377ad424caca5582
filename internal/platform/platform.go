package platform

import (
	"errors"
	"image"
)

var (
	ErrNoBackend     = errors.New("platform: no window backend available")
	ErrRegionBounds  = errors.New("platform: texture region outside source image")
	ErrWindowClosed  = errors.New("platform: window closed")
	ErrTextureCreate = errors.New("platform: texture creation failed")
)

type WindowConfig struct {
	PositionX int
	PositionY int
	Width     int
	Height    int
	Title     string
}

// Geometry is a window's position and size in screen coordinates.
type Geometry struct {
	X, Y          int
	Width, Height int
}

// Display owns the windows of one process and the single event queue they share.
type Display interface {
	NewWindow(conf WindowConfig) (Window, error)
	// NextEventTimeout waits up to timeoutMs for an event; a negative timeout waits
	// until one arrives. TimeoutEvent is returned when nothing arrived in time.
	NextEventTimeout(timeoutMs int) Event
	// Wake makes a pending or upcoming blocking wait return. Safe to call from
	// any goroutine, also after Close.
	Wake()
	Close()
}

type Window interface {
	TextureFactory
	ID() uint32
	FramebufferSize() (int, int)
	Geometry() Geometry
	SetGeometry(g Geometry)
	Fullscreen() bool
	SetFullscreen(on bool) error
	// Present clears the window to black, draws tex into dst and shows the frame.
	// A nil tex presents an empty frame.
	Present(tex Texture, dst image.Rectangle)
	Close()
}

// TextureFactory uploads a sub-rectangle of src as a texture owned by one window.
type TextureFactory interface {
	NewTexture(src *image.RGBA, region image.Rectangle) (Texture, error)
}

type Texture interface {
	Size() (int, int)
	Delete()
}

func checkRegion(src *image.RGBA, region image.Rectangle) error {
	if src == nil || region.Empty() || !region.In(src.Rect) {
		return ErrRegionBounds
	}
	return nil
}
