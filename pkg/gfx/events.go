package gfx

import "github.com/kjkrol/beamview/internal/platform"

type Event interface{}

type Expose struct {
	Window uint32
}
type KeyPress struct {
	Window uint32
	Code   uint64
	Label  string
}
type KeyRelease struct {
	Window uint32
	Code   uint64
	Label  string
}
type Resized struct {
	Window        uint32
	Width, Height int
}
type CloseRequest struct {
	Window uint32
}
type DestroyNotify struct{}
type UnexpectedEvent struct{}

func convert(event platform.Event) Event {
	switch e := event.(type) {
	case platform.KeyPress:
		return KeyPress{Window: e.Window, Code: e.Code, Label: e.Label}
	case platform.KeyRelease:
		return KeyRelease{Window: e.Window, Code: e.Code, Label: e.Label}
	case platform.Expose:
		return Expose{Window: e.Window}
	case platform.Resized:
		return Resized{Window: e.Window, Width: e.Width, Height: e.Height}
	case platform.CloseRequest:
		return CloseRequest{Window: e.Window}
	case platform.DestroyNotify:
		return DestroyNotify{}
	default:
		return UnexpectedEvent{}
	}
}
