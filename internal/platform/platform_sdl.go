//go:build cgo && !nosdl

package platform

/*
#cgo pkg-config: sdl2
#include <stdlib.h>
#include <SDL2/SDL.h>
static inline void my_SDL_DestroyTexture(SDL_Texture* t) {
    SDL_DestroyTexture(t);
}

static inline const char* my_SDL_GetRendererInfo(SDL_Renderer* r, Uint32 *flags) {
    SDL_RendererInfo info;
    if (SDL_GetRendererInfo(r, &info) != 0) {
        return NULL;
    }
    *flags = info.flags;
    return info.name;
}
*/
import "C"
import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"unsafe"

	"github.com/tliron/commonlog"
)

type sdlDisplay struct {
	windows map[uint32]*sdlWindowWrapper
	log     commonlog.Logger

	// mu guards closed against Wake calls from other goroutines.
	mu     sync.Mutex
	closed bool
}

// NewSDLDisplay initialises SDL video on the calling OS thread, which must stay
// the thread that polls events.
func NewSDLDisplay() (Display, error) {
	runtime.LockOSThread()

	scaleHint := C.CString("SDL_RENDER_SCALE_QUALITY")
	linear := C.CString("linear")
	C.SDL_SetHint(scaleHint, linear)
	C.free(unsafe.Pointer(scaleHint))
	C.free(unsafe.Pointer(linear))

	if C.SDL_Init(C.SDL_INIT_VIDEO) != 0 {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("%w: SDL_Init: %s", ErrNoBackend, C.GoString(C.SDL_GetError()))
	}
	return &sdlDisplay{
		windows: make(map[uint32]*sdlWindowWrapper),
		log:     commonlog.GetLogger("beamview.platform"),
	}, nil
}

func (d *sdlDisplay) NewWindow(conf WindowConfig) (Window, error) {
	cTitle := C.CString(conf.Title)
	defer C.free(unsafe.Pointer(cTitle))

	x, y := C.int(C.SDL_WINDOWPOS_CENTERED), C.int(C.SDL_WINDOWPOS_CENTERED)
	if conf.PositionX != 0 || conf.PositionY != 0 {
		x, y = C.int(conf.PositionX), C.int(conf.PositionY)
	}
	window := C.SDL_CreateWindow(cTitle, x, y, C.int(conf.Width), C.int(conf.Height),
		C.SDL_WINDOW_SHOWN|C.SDL_WINDOW_RESIZABLE|C.SDL_WINDOW_ALLOW_HIGHDPI)
	if window == nil {
		return nil, fmt.Errorf("SDL_CreateWindow: %s", C.GoString(C.SDL_GetError()))
	}

	renderer := d.createRendererWithProbe(window)
	if renderer == nil {
		C.SDL_DestroyWindow(window)
		return nil, fmt.Errorf("SDL_CreateRenderer: %s", C.GoString(C.SDL_GetError()))
	}

	w := &sdlWindowWrapper{
		display:  d,
		id:       uint32(C.SDL_GetWindowID(window)),
		window:   window,
		renderer: renderer,
	}
	d.windows[w.id] = w

	// Pierwsza ramka – żeby kompozytor dostał realną zawartość.
	w.Present(nil, image.Rectangle{})
	return w, nil
}

func (d *sdlDisplay) createRendererWithProbe(window *C.SDL_Window) *C.SDL_Renderer {
	renderer := C.SDL_CreateRenderer(window, -1,
		C.SDL_RENDERER_ACCELERATED|C.SDL_RENDERER_PRESENTVSYNC)
	if renderer != nil {
		d.logRendererInfo(renderer)
		return renderer
	}

	renderer = C.SDL_CreateRenderer(window, -1, C.SDL_RENDERER_ACCELERATED)
	if renderer != nil {
		d.logRendererInfo(renderer)
		return renderer
	}

	// Ostatecznie software
	renderer = C.SDL_CreateRenderer(window, -1, C.SDL_RENDERER_SOFTWARE)
	if renderer != nil {
		d.logRendererInfo(renderer)
	}
	return renderer
}

func (d *sdlDisplay) logRendererInfo(r *C.SDL_Renderer) {
	var flags C.Uint32
	name := C.my_SDL_GetRendererInfo(r, &flags)
	if name == nil {
		d.log.Warningf("SDL_GetRendererInfo: %s", C.GoString(C.SDL_GetError()))
		return
	}
	d.log.Infof("SDL renderer backend: %s (accelerated=%t vsync=%t)",
		C.GoString(name),
		flags&C.SDL_RENDERER_ACCELERATED != 0,
		flags&C.SDL_RENDERER_PRESENTVSYNC != 0)
}

func (d *sdlDisplay) NextEventTimeout(timeoutMs int) Event {
	var e C.SDL_Event
	if timeoutMs < 0 {
		if C.SDL_WaitEvent(&e) == 0 {
			return UnexpectedEvent{}
		}
		return convert(e)
	}
	if C.SDL_WaitEventTimeout(&e, C.int(timeoutMs)) != 0 {
		return convert(e)
	}
	return TimeoutEvent{} // brak eventu, upłynął timeout
}

// Wake pushes SDL_QUIT; SDL_PushEvent is thread-safe.
func (d *sdlDisplay) Wake() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	var e C.SDL_Event
	*(*C.Uint32)(unsafe.Pointer(&e)) = C.SDL_QUIT
	if C.SDL_PushEvent(&e) < 0 {
		d.log.Warningf("SDL_PushEvent: %s", C.GoString(C.SDL_GetError()))
	}
}

func (d *sdlDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, w := range d.windows {
		w.Close()
	}
	C.SDL_Quit()
	runtime.UnlockOSThread()
}

func convert(event C.SDL_Event) Event {
	switch eventType := (*(*C.Uint32)(unsafe.Pointer(&event))); eventType {
	case C.SDL_QUIT:
		return DestroyNotify{}
	case C.SDL_KEYDOWN:
		keyEvent := (*C.SDL_KeyboardEvent)(unsafe.Pointer(&event))
		return KeyPress{
			Window: uint32(keyEvent.windowID),
			Code:   uint64(keyEvent.keysym.scancode),
			Label:  C.GoString(C.SDL_GetKeyName(keyEvent.keysym.sym)),
		}
	case C.SDL_KEYUP:
		keyEvent := (*C.SDL_KeyboardEvent)(unsafe.Pointer(&event))
		return KeyRelease{
			Window: uint32(keyEvent.windowID),
			Code:   uint64(keyEvent.keysym.scancode),
			Label:  C.GoString(C.SDL_GetKeyName(keyEvent.keysym.sym)),
		}
	case C.SDL_WINDOWEVENT:
		windowEvent := (*C.SDL_WindowEvent)(unsafe.Pointer(&event))
		id := uint32(windowEvent.windowID)
		switch windowEvent.event {
		case C.SDL_WINDOWEVENT_EXPOSED:
			return Expose{Window: id}
		case C.SDL_WINDOWEVENT_SIZE_CHANGED:
			return Resized{Window: id, Width: int(windowEvent.data1), Height: int(windowEvent.data2)}
		case C.SDL_WINDOWEVENT_CLOSE:
			return CloseRequest{Window: id}
		}
	}
	return UnexpectedEvent{}
}

// ----------------------------------------------------------------------------

type sdlWindowWrapper struct {
	display    *sdlDisplay
	id         uint32
	window     *C.SDL_Window
	renderer   *C.SDL_Renderer
	fullscreen bool
}

func (w *sdlWindowWrapper) ID() uint32 { return w.id }

func (w *sdlWindowWrapper) FramebufferSize() (int, int) {
	if w.renderer == nil {
		return 0, 0
	}
	var width, height C.int
	if C.SDL_GetRendererOutputSize(w.renderer, &width, &height) != 0 {
		C.SDL_GetWindowSize(w.window, &width, &height)
	}
	return int(width), int(height)
}

func (w *sdlWindowWrapper) Geometry() Geometry {
	var x, y, width, height C.int
	C.SDL_GetWindowPosition(w.window, &x, &y)
	C.SDL_GetWindowSize(w.window, &width, &height)
	return Geometry{X: int(x), Y: int(y), Width: int(width), Height: int(height)}
}

func (w *sdlWindowWrapper) SetGeometry(g Geometry) {
	C.SDL_SetWindowSize(w.window, C.int(g.Width), C.int(g.Height))
	C.SDL_SetWindowPosition(w.window, C.int(g.X), C.int(g.Y))
}

func (w *sdlWindowWrapper) Fullscreen() bool { return w.fullscreen }

func (w *sdlWindowWrapper) SetFullscreen(on bool) error {
	if w.window == nil {
		return ErrWindowClosed
	}
	var flags C.Uint32
	if on {
		flags = C.SDL_WINDOW_FULLSCREEN_DESKTOP
	}
	if C.SDL_SetWindowFullscreen(w.window, flags) != 0 {
		return fmt.Errorf("SDL_SetWindowFullscreen: %s", C.GoString(C.SDL_GetError()))
	}
	w.fullscreen = on
	return nil
}

// NewTexture uploads region straight from src using its stride, no repacking.
func (w *sdlWindowWrapper) NewTexture(src *image.RGBA, region image.Rectangle) (Texture, error) {
	if w.renderer == nil {
		return nil, ErrWindowClosed
	}
	if err := checkRegion(src, region); err != nil {
		return nil, fmt.Errorf("%w: %v not in %v", err, region, src.Rect)
	}
	width, height := region.Dx(), region.Dy()
	texture := C.SDL_CreateTexture(w.renderer, C.SDL_PIXELFORMAT_RGBA32, C.SDL_TEXTUREACCESS_STATIC, C.int(width), C.int(height))
	if texture == nil {
		return nil, fmt.Errorf("%w: SDL_CreateTexture: %s", ErrTextureCreate, C.GoString(C.SDL_GetError()))
	}

	offset := src.PixOffset(region.Min.X, region.Min.Y)
	pixels := unsafe.Pointer(&src.Pix[offset])
	if C.SDL_UpdateTexture(texture, nil, pixels, C.int(src.Stride)) != 0 {
		C.my_SDL_DestroyTexture(texture)
		return nil, fmt.Errorf("%w: SDL_UpdateTexture: %s", ErrTextureCreate, C.GoString(C.SDL_GetError()))
	}
	runtime.KeepAlive(src)

	return &sdlTexture{texture: texture, width: width, height: height}, nil
}

func (w *sdlWindowWrapper) Present(tex Texture, dst image.Rectangle) {
	if w.renderer == nil {
		return
	}
	C.SDL_SetRenderDrawColor(w.renderer, 0, 0, 0, 255)
	C.SDL_RenderClear(w.renderer)

	if t, ok := tex.(*sdlTexture); ok && t.texture != nil && !dst.Empty() {
		dstRect := C.SDL_Rect{
			x: C.int(dst.Min.X),
			y: C.int(dst.Min.Y),
			w: C.int(dst.Dx()),
			h: C.int(dst.Dy()),
		}
		if C.SDL_RenderCopy(w.renderer, t.texture, nil, &dstRect) != 0 {
			w.display.log.Errorf("SDL_RenderCopy: %s", C.GoString(C.SDL_GetError()))
		}
	}

	C.SDL_RenderPresent(w.renderer)
}

func (w *sdlWindowWrapper) Close() {
	if w.window == nil {
		return
	}
	delete(w.display.windows, w.id)
	if w.renderer != nil {
		C.SDL_DestroyRenderer(w.renderer)
		w.renderer = nil
	}
	C.SDL_DestroyWindow(w.window)
	w.window = nil
}

// ----------------------------------------------------------------------------

type sdlTexture struct {
	texture *C.SDL_Texture
	width   int
	height  int
}

func (t *sdlTexture) Size() (int, int) { return t.width, t.height }

func (t *sdlTexture) Delete() {
	if t == nil || t.texture == nil {
		return
	}
	C.my_SDL_DestroyTexture(t.texture)
	t.texture = nil
}
