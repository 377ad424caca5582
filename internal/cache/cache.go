package cache

import (
	"errors"
	"fmt"
	"image"

	"github.com/kjkrol/beamview/internal/platform"
	"github.com/kjkrol/beamview/pkg/gfx"
	"github.com/tliron/commonlog"
)

var (
	ErrPageRange = errors.New("cache: page out of range")
	ErrWrongPage = errors.New("cache: entry stored under the wrong page")
	ErrNoPages   = errors.New("cache: document has no pages")
	ErrNoTargets = errors.New("cache: no texture factories")
)

// Renderer rasterises one page at the given scale. Calls block.
type Renderer interface {
	Render(page int, scale float64) (*image.RGBA, error)
}

type FillOrder int

const (
	// Sequential fills pages 0, 1, 2, ... in index order.
	Sequential FillOrder = iota
	// Nearest fills the uncached page closest to the focused page first,
	// successor before predecessor.
	Nearest
)

func (o FillOrder) String() string {
	switch o {
	case Sequential:
		return "sequential"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("FillOrder(%d)", int(o))
	}
}

func ParseFillOrder(s string) (FillOrder, error) {
	switch s {
	case "", "sequential":
		return Sequential, nil
	case "nearest":
		return Nearest, nil
	}
	return 0, fmt.Errorf("cache: unknown fill order %q", s)
}

type Options struct {
	Pages       int
	Orientation gfx.Orientation
	Order       FillOrder
	// OnStall is called before a navigation miss is rendered synchronously.
	OnStall func(page int)
}

// Slice is the texture of one viewport plus its natural size in pixels.
type Slice struct {
	Texture platform.Texture
	Width   int
	Height  int
}

// Entry is one page rendered at Scale and cut into one slice per viewport.
type Entry struct {
	Page   int
	Scale  float64
	Slices []Slice
}

func (e *Entry) release() {
	for i := range e.Slices {
		if e.Slices[i].Texture != nil {
			e.Slices[i].Texture.Delete()
			e.Slices[i].Texture = nil
		}
	}
}

// PageCache keeps at most one Entry per page, all rendered at the same scale.
// It is not safe for concurrent use.
type PageCache struct {
	renderer  Renderer
	factories []platform.TextureFactory
	opts      Options
	entries   []*Entry
	count     int
	cursor    int
	focus     int
	scale     float64
	renders   int
	log       commonlog.Logger
}

func New(renderer Renderer, factories []platform.TextureFactory, opts Options) (*PageCache, error) {
	if opts.Pages < 1 {
		return nil, ErrNoPages
	}
	if len(factories) == 0 {
		return nil, ErrNoTargets
	}
	return &PageCache{
		renderer:  renderer,
		factories: factories,
		opts:      opts,
		entries:   make([]*Entry, opts.Pages),
		scale:     1,
		log:       commonlog.GetLogger("beamview.cache"),
	}, nil
}

func (c *PageCache) Pages() int { return len(c.entries) }

// Len is the number of cached pages.
func (c *PageCache) Len() int { return c.count }

func (c *PageCache) Complete() bool { return c.count == len(c.entries) }

func (c *PageCache) Scale() float64 { return c.scale }

// Renders counts calls made to the renderer.
func (c *PageCache) Renders() int { return c.renders }

// Lookup never renders.
func (c *PageCache) Lookup(page int) (*Entry, bool) {
	if page < 0 || page >= len(c.entries) {
		return nil, false
	}
	e := c.entries[page]
	return e, e != nil
}

// Fill returns the entry for page, rendering it first when it is missing.
func (c *PageCache) Fill(page int) (*Entry, error) {
	if page < 0 || page >= len(c.entries) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, page, len(c.entries))
	}
	if e := c.entries[page]; e != nil {
		if e.Page != page {
			return nil, fmt.Errorf("%w: slot %d holds page %d", ErrWrongPage, page, e.Page)
		}
		return e, nil
	}

	c.renders++
	img, err := c.renderer.Render(page, c.scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	bounds := img.Bounds()
	regions, err := gfx.Split(bounds.Dx(), bounds.Dy(), len(c.factories), c.opts.Orientation)
	if err != nil {
		return nil, fmt.Errorf("split page %d: %w", page, err)
	}

	entry := &Entry{Page: page, Scale: c.scale, Slices: make([]Slice, 0, len(regions))}
	committed := false
	defer func() {
		if !committed {
			entry.release()
		}
	}()
	for i, region := range regions {
		rect := region.Rect.Add(bounds.Min)
		tex, err := c.factories[i].NewTexture(img, rect)
		if err != nil {
			return nil, fmt.Errorf("texture for page %d, viewport %d: %w", page, i, err)
		}
		entry.Slices = append(entry.Slices, Slice{Texture: tex, Width: rect.Dx(), Height: rect.Dy()})
	}

	c.entries[page] = entry
	c.count++
	committed = true
	c.log.Debugf("cached page %d at scale %.2f (%dx%d)", page+1, c.scale, bounds.Dx(), bounds.Dy())
	return entry, nil
}

// Demand is the navigation path: a miss is rendered synchronously and reported
// as a stall.
func (c *PageCache) Demand(page int) (*Entry, error) {
	if e, ok := c.Lookup(page); ok {
		if e.Page != page {
			return nil, fmt.Errorf("%w: slot %d holds page %d", ErrWrongPage, page, e.Page)
		}
		return e, nil
	}
	c.log.Warningf("page %d not cached; performing blocking render", page+1)
	if c.opts.OnStall != nil {
		c.opts.OnStall(page)
	}
	return c.Fill(page)
}

// SetFocus tells the Nearest fill order which page is on screen.
func (c *PageCache) SetFocus(page int) {
	if page >= 0 && page < len(c.entries) {
		c.focus = page
	}
}

// AdvanceFill renders at most one missing page and reports whether every page
// is cached afterwards.
func (c *PageCache) AdvanceFill() (bool, error) {
	if c.Complete() {
		return true, nil
	}
	page, ok := c.next()
	if !ok {
		return c.Complete(), nil
	}
	if _, err := c.Fill(page); err != nil {
		return false, err
	}
	if c.Complete() {
		c.log.Infof("caching complete: %d pages", len(c.entries))
	}
	return c.Complete(), nil
}

func (c *PageCache) next() (int, bool) {
	n := len(c.entries)
	if c.opts.Order == Nearest {
		for d := 0; d < n; d++ {
			if p := c.focus + d; p < n && c.entries[p] == nil {
				return p, true
			}
			if p := c.focus - d; p >= 0 && c.entries[p] == nil {
				return p, true
			}
		}
		return 0, false
	}
	for c.cursor < n && c.entries[c.cursor] != nil {
		c.cursor++
	}
	return c.cursor, c.cursor < n
}

// SetScale switches the render scale. Any change drops every entry.
func (c *PageCache) SetScale(scale float64) bool {
	if scale == c.scale {
		return false
	}
	c.scale = scale
	c.InvalidateAll()
	return true
}

// InvalidateAll drops every entry and restarts the idle fill.
func (c *PageCache) InvalidateAll() {
	dropped := 0
	for i, e := range c.entries {
		if e == nil {
			continue
		}
		c.entries[i] = nil
		e.release()
		dropped++
	}
	c.count = 0
	c.cursor = 0
	c.log.Infof("cache invalidated: %d pages dropped, scale %.2f", dropped, c.scale)
}

func (c *PageCache) Close() {
	c.InvalidateAll()
}
