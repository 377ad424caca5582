package viewer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjkrol/beamview/internal/platform"
)

// Export renders every page through the page cache into n headless viewports
// sized like the initial windows and writes one PNG per page and viewport.
// It returns the written paths.
func Export(doc Document, dir string, n int, cfg Config) ([]string, error) {
	pageW, pageH, err := doc.PageSize(0)
	if err != nil {
		return nil, err
	}
	sizes, err := InitialWindowSizes(pageW, pageH, n, cfg.Orientation)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("viewer: export dir: %w", err)
	}

	display := platform.NewSoftDisplay(int(pageW), int(pageH))
	defer display.Close()
	windows := make([]*platform.SoftWindow, n)
	targets := make([]platform.Window, n)
	for i, size := range sizes {
		w, err := display.NewSoftWindow(platform.WindowConfig{
			Width:  size.X,
			Height: size.Y,
			Title:  fmt.Sprintf("export %d", i),
		})
		if err != nil {
			return nil, err
		}
		windows[i] = w
		targets[i] = w
	}

	ctrl, err := New(doc, targets, cfg)
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()
	if err := ctrl.Warm(); err != nil {
		return nil, err
	}

	var written []string
	for page := 0; page < ctrl.Pages(); page++ {
		if err := ctrl.GoTo(page); err != nil {
			return written, err
		}
		ctrl.Present()
		for i, w := range windows {
			path := filepath.Join(dir, fmt.Sprintf("page-%03d-view-%d.png", page+1, i))
			if err := w.Snapshot(path); err != nil {
				return written, fmt.Errorf("viewer: export page %d: %w", page+1, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}
