package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/kjkrol/beamview/internal/cache"
	"github.com/kjkrol/beamview/internal/platform"
	"github.com/kjkrol/beamview/pkg/gfx"
	"github.com/tliron/commonlog"
)

var (
	ErrNoWindows    = errors.New("viewer: no windows")
	ErrPageSize     = errors.New("viewer: invalid page size")
	ErrUnknownFrame = errors.New("viewer: entry does not match viewports")
)

// Document is what the controller needs from an opened PDF.
type Document interface {
	cache.Renderer
	NumPages() int
	PageSize(page int) (float64, float64, error)
}

type State int

const (
	// Idle: the cache is still filling and nothing waits to be presented.
	Idle State = iota
	// Displaying: the current page is bound to every viewport.
	Displaying
	// Rendering: inside a blocking fill.
	Rendering
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Displaying:
		return "displaying"
	case Rendering:
		return "rendering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Config struct {
	Orientation gfx.Orientation
	Order       cache.FillOrder
	// IdleWait bounds the event wait while the cache fills or a redraw is due.
	IdleWait time.Duration
	// ScaleTolerance is the smallest scale change that rebuilds the cache.
	ScaleTolerance float64
	OnStall        func(page int)
}

func (c Config) withDefaults() Config {
	if c.IdleWait <= 0 {
		c.IdleWait = 10 * time.Millisecond
	}
	if c.ScaleTolerance <= 0 {
		c.ScaleTolerance = 0.01
	}
	return c
}

// Controller owns the page cache and the viewports and reacts to events on a
// single goroutine.
type Controller struct {
	cfg         Config
	cache       *cache.PageCache
	viewports   []*gfx.Viewport
	pageW       float64
	pageH       float64
	page        int
	scale       float64
	dirty       bool
	rendering   bool
	pendingQuit bool
	quit        bool
	log         commonlog.Logger
}

// New renders the first page synchronously; the returned controller is
// ready to present it.
func New(doc Document, windows []platform.Window, cfg Config) (*Controller, error) {
	if len(windows) == 0 {
		return nil, ErrNoWindows
	}
	cfg = cfg.withDefaults()

	pageW, pageH, err := doc.PageSize(0)
	if err != nil {
		return nil, err
	}
	if pageW <= 0 || pageH <= 0 {
		return nil, fmt.Errorf("%w: %gx%g", ErrPageSize, pageW, pageH)
	}

	c := &Controller{
		cfg:       cfg,
		viewports: make([]*gfx.Viewport, len(windows)),
		pageW:     pageW,
		pageH:     pageH,
		log:       commonlog.GetLogger("beamview.viewer"),
	}
	factories := make([]platform.TextureFactory, len(windows))
	for i, w := range windows {
		c.viewports[i] = gfx.NewViewport(i, w)
		factories[i] = w
	}

	c.cache, err = cache.New(doc, factories, cache.Options{
		Pages:       doc.NumPages(),
		Orientation: cfg.Orientation,
		Order:       cfg.Order,
		OnStall:     cfg.OnStall,
	})
	if err != nil {
		return nil, err
	}

	c.scale = c.coverScale()
	if c.scale <= 0 {
		c.scale = 1
	}
	c.cache.SetScale(c.scale)
	if err := c.show(0, false); err != nil {
		c.cache.Close()
		return nil, err
	}
	c.log.Infof("initial scale %.2f, %d viewports, %s split", c.scale, len(windows), cfg.Orientation)
	return c, nil
}

func (c *Controller) Page() int { return c.page }

func (c *Controller) Pages() int { return c.cache.Pages() }

func (c *Controller) Scale() float64 { return c.scale }

func (c *Controller) Dirty() bool { return c.dirty }

func (c *Controller) Cache() *cache.PageCache { return c.cache }

func (c *Controller) Viewports() []*gfx.Viewport { return c.viewports }

func (c *Controller) State() State {
	switch {
	case c.rendering:
		return Rendering
	case !c.dirty && !c.cache.Complete():
		return Idle
	default:
		return Displaying
	}
}

// Navigate moves delta pages, clamped to the document.
func (c *Controller) Navigate(delta int) error {
	return c.GoTo(c.page + delta)
}

// GoTo shows page, clamped to the document. Showing the current page again is a no-op.
func (c *Controller) GoTo(page int) error {
	page = max(0, min(page, c.cache.Pages()-1))
	if page == c.page {
		return nil
	}
	return c.show(page, true)
}

func (c *Controller) show(page int, demand bool) error {
	c.rendering = true
	var (
		entry *cache.Entry
		err   error
	)
	if demand {
		entry, err = c.cache.Demand(page)
	} else {
		entry, err = c.cache.Fill(page)
	}
	c.rendering = false
	if err != nil {
		return err
	}
	if entry.Page != page {
		return fmt.Errorf("%w: want page %d, got %d", cache.ErrWrongPage, page, entry.Page)
	}
	if len(entry.Slices) != len(c.viewports) {
		return fmt.Errorf("%w: %d slices for %d viewports", ErrUnknownFrame, len(entry.Slices), len(c.viewports))
	}

	c.page = page
	c.cache.SetFocus(page)
	for i, v := range c.viewports {
		s := entry.Slices[i]
		v.Bind(s.Texture, s.Width, s.Height)
	}
	c.dirty = true
	return nil
}

func (c *Controller) coverScale() float64 {
	return gfx.CoverScale(gfx.Sizes(c.viewports), c.pageW, c.pageH, c.cfg.Orientation)
}

// Resize recomputes the scale from the framebuffer sizes and rebuilds the
// cache when it moved by more than the tolerance.
func (c *Controller) Resize() error {
	scale := c.coverScale()
	if scale <= 0 || math.Abs(scale-c.scale) <= c.cfg.ScaleTolerance {
		return nil
	}
	c.log.Infof("window resized, new scale: %.2f", scale)

	for _, v := range c.viewports {
		v.Unbind()
	}
	c.scale = scale
	c.cache.SetScale(scale)
	return c.show(c.page, false)
}

// ToggleFullscreen switches the viewport showing window id and rescales.
func (c *Controller) ToggleFullscreen(id uint32) error {
	v := c.viewport(id)
	if v == nil {
		return nil
	}
	if err := v.ToggleFullscreen(); err != nil {
		return fmt.Errorf("viewer: fullscreen viewport %d: %w", v.Index(), err)
	}
	return c.Resize()
}

func (c *Controller) viewport(id uint32) *gfx.Viewport {
	for _, v := range c.viewports {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

// Present draws the bound slices and clears the dirty flag.
func (c *Controller) Present() {
	for _, v := range c.viewports {
		v.Present()
	}
	c.dirty = false
}

// Warm fills the whole cache.
func (c *Controller) Warm() error {
	for {
		complete, err := c.cache.AdvanceFill()
		if err != nil || complete {
			return err
		}
	}
}

// HandleEvent implements gfx.IdleHandler.
func (c *Controller) HandleEvent(event gfx.Event) error {
	switch e := event.(type) {
	case gfx.KeyPress:
		return c.handleKey(e)
	case gfx.Resized:
		c.dirty = true
		return c.Resize()
	case gfx.Expose:
		c.dirty = true
	case gfx.CloseRequest, gfx.DestroyNotify:
		c.quit = true
	}
	return nil
}

func (c *Controller) handleKey(e gfx.KeyPress) error {
	key := strings.ToLower(e.Label)
	if key == "q" {
		if c.pendingQuit {
			c.quit = true
		}
		c.pendingQuit = true
		return nil
	}
	c.pendingQuit = false

	switch key {
	case "left", "up", "pageup", "backspace":
		return c.Navigate(-1)
	case "right", "down", "pagedown", "space":
		return c.Navigate(1)
	case "home":
		return c.GoTo(0)
	case "end":
		return c.GoTo(c.cache.Pages() - 1)
	case "f":
		return c.ToggleFullscreen(e.Window)
	}
	return nil
}

// Idle implements gfx.IdleHandler: a pending redraw wins over background fill.
func (c *Controller) Idle() error {
	if c.dirty {
		c.Present()
		return nil
	}
	if c.cache.Complete() {
		return nil
	}
	_, err := c.cache.AdvanceFill()
	return err
}

// WaitTimeout implements gfx.IdleHandler.
func (c *Controller) WaitTimeout() time.Duration {
	if c.dirty || !c.cache.Complete() {
		return c.cfg.IdleWait
	}
	return -1
}

// Done implements gfx.IdleHandler.
func (c *Controller) Done() bool { return c.quit }

// Run presents and navigates until the user quits or ctx is cancelled.
func (c *Controller) Run(ctx context.Context, source gfx.EventSource) error {
	return gfx.NewEventLoop(source, gfx.DrainAll()).Run(ctx, c)
}

// Close releases every cached texture. Windows and the document belong to the caller.
func (c *Controller) Close() {
	for _, v := range c.viewports {
		v.Unbind()
	}
	c.cache.Close()
}

// InitialWindowSizes splits a pageW x pageH page at scale 1 the same way
// pages are split for display.
func InitialWindowSizes(pageW, pageH float64, n int, o gfx.Orientation) ([]image.Point, error) {
	regions, err := gfx.Split(int(pageW), int(pageH), n, o)
	if err != nil {
		return nil, err
	}
	sizes := make([]image.Point, n)
	for i, r := range regions {
		sizes[i] = r.Rect.Size()
	}
	return sizes, nil
}
