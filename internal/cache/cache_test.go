package cache_test

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/kjkrol/beamview/internal/cache"
	"github.com/kjkrol/beamview/internal/platform"
	"github.com/kjkrol/beamview/pkg/gfx"
)

// fakeRenderer draws page p as a solid colour whose red channel is p.
type fakeRenderer struct {
	width, height float64
	calls         []int
	fail          map[int]error
}

func (r *fakeRenderer) Render(page int, scale float64) (*image.RGBA, error) {
	r.calls = append(r.calls, page)
	if err := r.fail[page]; err != nil {
		return nil, err
	}
	w := int(math.Round(r.width * scale))
	h := int(math.Round(r.height * scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{uint8(page), 0, 0, 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}

func newWindows(t *testing.T, n int) []*platform.SoftWindow {
	t.Helper()
	d := platform.NewSoftDisplay(1920, 1080)
	windows := make([]*platform.SoftWindow, n)
	for i := range windows {
		w, err := d.NewSoftWindow(platform.WindowConfig{Width: 100, Height: 100})
		if err != nil {
			t.Fatal(err)
		}
		windows[i] = w
	}
	return windows
}

func factories(windows []*platform.SoftWindow) []platform.TextureFactory {
	out := make([]platform.TextureFactory, len(windows))
	for i, w := range windows {
		out[i] = w
	}
	return out
}

func newCache(t *testing.T, pages int, windows []*platform.SoftWindow, opts cache.Options) (*cache.PageCache, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{width: 200, height: 100}
	opts.Pages = pages
	c, err := cache.New(r, factories(windows), opts)
	if err != nil {
		t.Fatal(err)
	}
	return c, r
}

func liveTextures(windows []*platform.SoftWindow) int {
	n := 0
	for _, w := range windows {
		n += w.LiveTextures()
	}
	return n
}

func TestNew_Rejects(t *testing.T) {
	windows := newWindows(t, 1)
	if _, err := cache.New(&fakeRenderer{}, factories(windows), cache.Options{}); !errors.Is(err, cache.ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	if _, err := cache.New(&fakeRenderer{}, nil, cache.Options{Pages: 3}); !errors.Is(err, cache.ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
}

func TestFill_EntryMatchesPageAndScale(t *testing.T) {
	windows := newWindows(t, 2)
	c, _ := newCache(t, 4, windows, cache.Options{})
	c.SetScale(1.5)

	for page := 0; page < 4; page++ {
		e, err := c.Fill(page)
		if err != nil {
			t.Fatal(err)
		}
		if e.Page != page || e.Scale != 1.5 {
			t.Fatalf("entry for page %d holds page %d at %.2f", page, e.Page, e.Scale)
		}
		if len(e.Slices) != 2 {
			t.Fatalf("page %d: %d slices", page, len(e.Slices))
		}
		// 300x150 split horizontally in two.
		for i, s := range e.Slices {
			if s.Width != 150 || s.Height != 150 {
				t.Fatalf("page %d slice %d: %dx%d", page, i, s.Width, s.Height)
			}
			img := s.Texture.(interface{ Image() *image.NRGBA }).Image()
			if got := img.NRGBAAt(0, 0).R; int(got) != page {
				t.Fatalf("page %d slice %d shows page %d", page, i, got)
			}
		}
	}
	if c.Len() != 4 || !c.Complete() {
		t.Fatalf("len %d complete %v", c.Len(), c.Complete())
	}
}

func TestFill_VerticalSplit(t *testing.T) {
	windows := newWindows(t, 3)
	c, _ := newCache(t, 1, windows, cache.Options{Orientation: gfx.Vertical})
	e, err := c.Fill(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{33, 33, 34}
	for i, s := range e.Slices {
		if s.Width != 200 || s.Height != want[i] {
			t.Fatalf("slice %d: %dx%d, want 200x%d", i, s.Width, s.Height, want[i])
		}
	}
}

func TestFill_Idempotent(t *testing.T) {
	windows := newWindows(t, 2)
	c, r := newCache(t, 3, windows, cache.Options{})

	first, err := c.Fill(1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Fill(1)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("second fill replaced the entry")
	}
	if c.Renders() != 1 || len(r.calls) != 1 {
		t.Fatalf("renders %d, renderer calls %v", c.Renders(), r.calls)
	}
	if liveTextures(windows) != 2 {
		t.Fatalf("live textures %d", liveTextures(windows))
	}
}

func TestFill_PageRange(t *testing.T) {
	windows := newWindows(t, 1)
	c, r := newCache(t, 3, windows, cache.Options{})
	for _, page := range []int{-1, 3} {
		if _, err := c.Fill(page); !errors.Is(err, cache.ErrPageRange) {
			t.Fatalf("page %d: expected ErrPageRange, got %v", page, err)
		}
	}
	if _, ok := c.Lookup(3); ok {
		t.Fatal("lookup out of range hit")
	}
	if len(r.calls) != 0 {
		t.Fatalf("renderer called %v", r.calls)
	}
}

func TestFill_RenderErrorLeavesSlotEmpty(t *testing.T) {
	windows := newWindows(t, 2)
	c, r := newCache(t, 3, windows, cache.Options{})
	boom := errors.New("boom")
	r.fail = map[int]error{1: boom}

	if _, err := c.Fill(1); !errors.Is(err, boom) {
		t.Fatalf("expected render error, got %v", err)
	}
	if _, ok := c.Lookup(1); ok || c.Len() != 0 {
		t.Fatal("failed render must not be cached")
	}
}

func TestFill_TextureFailureReleasesCreatedSlices(t *testing.T) {
	windows := newWindows(t, 2)
	c, _ := newCache(t, 3, windows, cache.Options{})
	windows[1].FailTexturesAfter(0)

	if _, err := c.Fill(0); !errors.Is(err, platform.ErrTextureCreate) {
		t.Fatalf("expected ErrTextureCreate, got %v", err)
	}
	if windows[0].LiveTextures() != 0 {
		t.Fatalf("slice 0 leaked: %d live textures", windows[0].LiveTextures())
	}
	if _, ok := c.Lookup(0); ok || c.Len() != 0 {
		t.Fatal("partial entry was cached")
	}

	// The failure fires once; the retry succeeds.
	if _, err := c.Fill(0); err != nil {
		t.Fatal(err)
	}
	if liveTextures(windows) != 2 {
		t.Fatalf("live textures %d", liveTextures(windows))
	}
}

func TestSetScale_InvalidatesEverything(t *testing.T) {
	windows := newWindows(t, 2)
	c, _ := newCache(t, 5, windows, cache.Options{})
	for page := 0; page < 5; page++ {
		if _, err := c.Fill(page); err != nil {
			t.Fatal(err)
		}
	}

	if c.SetScale(1) {
		t.Fatal("unchanged scale must not invalidate")
	}
	if c.Len() != 5 {
		t.Fatalf("len %d", c.Len())
	}

	if !c.SetScale(2) {
		t.Fatal("scale change must invalidate")
	}
	if c.Len() != 0 || c.Complete() {
		t.Fatalf("len %d complete %v after invalidation", c.Len(), c.Complete())
	}
	for page := 0; page < 5; page++ {
		if _, ok := c.Lookup(page); ok {
			t.Fatalf("page %d survived invalidation", page)
		}
	}
	if liveTextures(windows) != 0 {
		t.Fatalf("%d textures leaked", liveTextures(windows))
	}

	e, err := c.Fill(2)
	if err != nil {
		t.Fatal(err)
	}
	if e.Scale != 2 {
		t.Fatalf("refilled at scale %.2f", e.Scale)
	}
}

func TestAdvanceFill_Sequential(t *testing.T) {
	windows := newWindows(t, 2)
	c, r := newCache(t, 5, windows, cache.Options{})
	if _, err := c.Fill(0); err != nil {
		t.Fatal(err)
	}

	calls := 0
	for {
		complete, err := c.AdvanceFill()
		if err != nil {
			t.Fatal(err)
		}
		calls++
		if complete {
			break
		}
		if calls > 5 {
			t.Fatal("fill did not terminate")
		}
	}
	if calls != 4 {
		t.Fatalf("completed after %d calls, want 4", calls)
	}
	want := []int{0, 1, 2, 3, 4}
	if len(r.calls) != len(want) {
		t.Fatalf("render order %v", r.calls)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Fatalf("render order %v, want %v", r.calls, want)
		}
	}

	// A complete cache does no work.
	complete, err := c.AdvanceFill()
	if err != nil || !complete || c.Renders() != 5 {
		t.Fatalf("complete %v err %v renders %d", complete, err, c.Renders())
	}
}

func TestAdvanceFill_SkipsPagesFilledOnDemand(t *testing.T) {
	windows := newWindows(t, 1)
	c, r := newCache(t, 4, windows, cache.Options{})
	if _, err := c.Demand(2); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := c.AdvanceFill(); err != nil {
			t.Fatal(err)
		}
	}
	if !c.Complete() || c.Renders() != 4 {
		t.Fatalf("complete %v renders %d (%v)", c.Complete(), c.Renders(), r.calls)
	}
}

func TestAdvanceFill_Nearest(t *testing.T) {
	windows := newWindows(t, 1)
	c, r := newCache(t, 6, windows, cache.Options{Order: cache.Nearest})
	c.SetFocus(3)
	for !c.Complete() {
		if _, err := c.AdvanceFill(); err != nil {
			t.Fatal(err)
		}
	}
	want := []int{3, 4, 2, 5, 1, 0}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Fatalf("render order %v, want %v", r.calls, want)
		}
	}
}

func TestDemand_StallsOnlyOnMiss(t *testing.T) {
	windows := newWindows(t, 1)
	var stalls []int
	c, _ := newCache(t, 3, windows, cache.Options{OnStall: func(page int) { stalls = append(stalls, page) }})

	if _, err := c.Fill(0); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Demand(0); err != nil {
		t.Fatal(err)
	}
	if len(stalls) != 0 {
		t.Fatalf("hit reported as stall: %v", stalls)
	}

	e, err := c.Demand(2)
	if err != nil {
		t.Fatal(err)
	}
	if e.Page != 2 {
		t.Fatalf("demanded page 2, got %d", e.Page)
	}
	if len(stalls) != 1 || stalls[0] != 2 {
		t.Fatalf("stalls %v", stalls)
	}
	if _, ok := c.Lookup(2); !ok {
		t.Fatal("demanded page not cached")
	}
}

func TestClose_ReleasesTextures(t *testing.T) {
	windows := newWindows(t, 2)
	c, _ := newCache(t, 3, windows, cache.Options{})
	for !c.Complete() {
		if _, err := c.AdvanceFill(); err != nil {
			t.Fatal(err)
		}
	}
	c.Close()
	if liveTextures(windows) != 0 {
		t.Fatalf("%d textures leaked", liveTextures(windows))
	}
}

func TestParseFillOrder(t *testing.T) {
	for in, want := range map[string]cache.FillOrder{"": cache.Sequential, "sequential": cache.Sequential, "nearest": cache.Nearest} {
		got, err := cache.ParseFillOrder(in)
		if err != nil || got != want {
			t.Fatalf("ParseFillOrder(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := cache.ParseFillOrder("random"); err == nil {
		t.Fatal("expected error")
	}
}
