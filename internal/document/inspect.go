package document

import (
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/ledongthuc/pdf"
)

type PageInfo struct {
	Index  int
	Width  float64
	Height float64
}

type Info struct {
	Path  string
	Pages []PageInfo
}

// Uniform reports whether every page has the size of page 0.
func (i Info) Uniform() bool {
	if len(i.Pages) == 0 {
		return true
	}
	for _, p := range i.Pages[1:] {
		if p.Width != i.Pages[0].Width || p.Height != i.Pages[0].Height {
			return false
		}
	}
	return true
}

// Inspect reads page count and page sizes with the pure-Go PDF reader, without
// rasterising anything.
func Inspect(path string) (info Info, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			info = Info{}
			err = fmt.Errorf("%w: %s: %v", ErrUnreadable, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return Info{}, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return Info{}, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	defer f.Close()

	n := r.NumPage()
	if n <= 0 {
		return Info{}, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	info = Info{Path: path, Pages: make([]PageInfo, 0, n)}
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			return Info{}, fmt.Errorf("%w: %s: page %d missing", ErrUnreadable, path, i)
		}
		w, h, ok := pageBox(page.V)
		if !ok {
			return Info{}, fmt.Errorf("%w: %s: page %d has no MediaBox", ErrUnreadable, path, i)
		}
		if rotate := inherited(page.V, "Rotate").Int64(); rotate%180 != 0 {
			w, h = h, w
		}
		info.Pages = append(info.Pages, PageInfo{Index: i - 1, Width: w, Height: h})
	}
	return info, nil
}

// inherited walks up the page tree until key is found.
func inherited(v pdf.Value, key string) pdf.Value {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		if value := node.Key(key); !value.IsNull() {
			return value
		}
	}
	return pdf.Value{}
}

// pageBox returns the size of the visible area: the CropBox when the page has
// one, otherwise the MediaBox.
func pageBox(v pdf.Value) (float64, float64, bool) {
	box := inherited(v, "CropBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		box = inherited(v, "MediaBox")
	}
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return 0, 0, false
	}
	w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
	h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
	return w, h, w > 0 && h > 0
}
