package platform

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

// Resized reports a new framebuffer size of one window.
type Resized struct {
	Window        uint32
	Width, Height int
}

// CloseRequest is sent when the user closes one window.
type CloseRequest struct {
	Window uint32
}

// DestroyNotify is sent when the whole application is asked to quit.
type DestroyNotify struct{}
type UnexpectedEvent struct{}
type TimeoutEvent struct{}
