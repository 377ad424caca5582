package platform

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// SoftDisplay is a headless Display. Windows draw into in-memory frames and
// events are queued with Post. NextEventTimeout never blocks: a blocking wait
// on an empty queue can never be satisfied, so it reports DestroyNotify.
type SoftDisplay struct {
	screenWidth  int
	screenHeight int
	nextID       uint32
	windows      map[uint32]*SoftWindow
	queue        []Event
	waits        []int
}

func NewSoftDisplay(screenWidth, screenHeight int) *SoftDisplay {
	return &SoftDisplay{
		screenWidth:  screenWidth,
		screenHeight: screenHeight,
		nextID:       1,
		windows:      make(map[uint32]*SoftWindow),
	}
}

func (d *SoftDisplay) NewWindow(conf WindowConfig) (Window, error) {
	return d.NewSoftWindow(conf)
}

func (d *SoftDisplay) NewSoftWindow(conf WindowConfig) (*SoftWindow, error) {
	if conf.Width <= 0 || conf.Height <= 0 {
		return nil, fmt.Errorf("platform: invalid window size %dx%d", conf.Width, conf.Height)
	}
	w := &SoftWindow{
		display: d,
		id:      d.nextID,
		title:   conf.Title,
		geometry: Geometry{
			X:      conf.PositionX,
			Y:      conf.PositionY,
			Width:  conf.Width,
			Height: conf.Height,
		},
	}
	d.nextID++
	d.windows[w.id] = w
	return w, nil
}

// Post appends an event to the queue.
func (d *SoftDisplay) Post(event Event) {
	d.queue = append(d.queue, event)
}

func (d *SoftDisplay) NextEventTimeout(timeoutMs int) Event {
	d.waits = append(d.waits, timeoutMs)
	if len(d.queue) == 0 {
		if timeoutMs < 0 {
			return DestroyNotify{}
		}
		return TimeoutEvent{}
	}
	event := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return event
}

// Wake is a no-op: NextEventTimeout never blocks.
func (d *SoftDisplay) Wake() {}

// Waits returns the timeouts passed to NextEventTimeout, oldest first.
func (d *SoftDisplay) Waits() []int {
	out := make([]int, len(d.waits))
	copy(out, d.waits)
	return out
}

func (d *SoftDisplay) Pending() int {
	return len(d.queue)
}

func (d *SoftDisplay) Close() {
	for _, w := range d.windows {
		w.Close()
	}
	d.queue = nil
}

// ----------------------------------------------------------------------------

type SoftWindow struct {
	display    *SoftDisplay
	id         uint32
	title      string
	geometry   Geometry
	fullscreen bool
	frame      *image.NRGBA
	presents   int
	live       int
	failAfter  int
	closed     bool
}

func (w *SoftWindow) ID() uint32 { return w.id }

func (w *SoftWindow) Title() string { return w.title }

func (w *SoftWindow) FramebufferSize() (int, int) {
	return w.geometry.Width, w.geometry.Height
}

func (w *SoftWindow) Geometry() Geometry { return w.geometry }

func (w *SoftWindow) SetGeometry(g Geometry) {
	w.geometry = g
}

func (w *SoftWindow) Fullscreen() bool { return w.fullscreen }

func (w *SoftWindow) SetFullscreen(on bool) error {
	if w.closed {
		return ErrWindowClosed
	}
	w.fullscreen = on
	if on {
		w.geometry = Geometry{Width: w.display.screenWidth, Height: w.display.screenHeight}
	}
	return nil
}

// Resize changes the window size the way a user drag would and queues the
// matching Resized event.
func (w *SoftWindow) Resize(width, height int) {
	w.geometry.Width = width
	w.geometry.Height = height
	w.display.Post(Resized{Window: w.id, Width: width, Height: height})
}

// FailTexturesAfter makes NewTexture fail once n more textures were created.
// A negative n disables the failure.
func (w *SoftWindow) FailTexturesAfter(n int) {
	w.failAfter = n + 1
}

func (w *SoftWindow) NewTexture(src *image.RGBA, region image.Rectangle) (Texture, error) {
	if w.closed {
		return nil, ErrWindowClosed
	}
	if err := checkRegion(src, region); err != nil {
		return nil, fmt.Errorf("%w: %v not in %v", err, region, src.Rect)
	}
	if w.failAfter > 0 {
		w.failAfter--
		if w.failAfter == 0 {
			return nil, ErrTextureCreate
		}
	}
	w.live++
	return &softTexture{window: w, img: imaging.Crop(src, region)}, nil
}

func (w *SoftWindow) Present(tex Texture, dst image.Rectangle) {
	if w.closed {
		return
	}
	frame := imaging.New(w.geometry.Width, w.geometry.Height, color.Black)
	if t, ok := tex.(*softTexture); ok && t.img != nil && !dst.Empty() {
		scaled := imaging.Resize(t.img, dst.Dx(), dst.Dy(), imaging.Linear)
		frame = imaging.Paste(frame, scaled, dst.Min)
	}
	w.frame = frame
	w.presents++
}

// Frame returns the last presented frame, nil before the first Present.
func (w *SoftWindow) Frame() *image.NRGBA { return w.frame }

func (w *SoftWindow) Presents() int { return w.presents }

// LiveTextures counts textures created by this window and not yet deleted.
func (w *SoftWindow) LiveTextures() int { return w.live }

// Snapshot writes the last presented frame to path; the format follows the extension.
func (w *SoftWindow) Snapshot(path string) error {
	if w.frame == nil {
		return fmt.Errorf("platform: window %d has no frame", w.id)
	}
	return imaging.Save(w.frame, path)
}

func (w *SoftWindow) Close() {
	if w.closed {
		return
	}
	w.closed = true
	w.frame = nil
	delete(w.display.windows, w.id)
}

type softTexture struct {
	window *SoftWindow
	img    *image.NRGBA
}

func (t *softTexture) Size() (int, int) {
	if t.img == nil {
		return 0, 0
	}
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image exposes the uploaded pixels.
func (t *softTexture) Image() *image.NRGBA { return t.img }

func (t *softTexture) Delete() {
	if t.img == nil {
		return
	}
	t.img = nil
	t.window.live--
}
