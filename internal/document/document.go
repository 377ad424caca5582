package document

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/tliron/commonlog"
)

var (
	ErrNotFound   = errors.New("document: file not found or unreadable")
	ErrUnreadable = errors.New("document: not a readable PDF")
	ErrEmpty      = errors.New("document: PDF has no pages")
)

// pointsPerInch is the PDF user-space unit; MuPDF renders at dpi/72 pixels per point.
const pointsPerInch = 72.0

// Document is a PDF opened with MuPDF. Render is synchronous and not safe for
// concurrent use.
type Document struct {
	path  string
	doc   *fitz.Document
	pages int
	// sizes holds the exact point sizes read from the page tree; nil when the
	// pure-Go reader could not parse a file MuPDF opened.
	sizes []PageInfo
	log   commonlog.Logger
}

func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}
	f.Close()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	pages := doc.NumPage()
	if pages <= 0 {
		doc.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	d := &Document{
		path:  path,
		doc:   doc,
		pages: pages,
		log:   commonlog.GetLogger("beamview.document"),
	}
	if info, err := Inspect(path); err != nil {
		d.log.Infof("page sizes rounded to whole points: %s", err)
	} else if len(info.Pages) != pages {
		d.log.Infof("page sizes rounded to whole points: page tree has %d pages, MuPDF %d", len(info.Pages), pages)
	} else {
		d.sizes = info.Pages
	}
	d.log.Infof("opened %s: %d pages", path, pages)
	return d, nil
}

func (d *Document) Path() string { return d.path }

func (d *Document) NumPages() int { return d.pages }

// PageSize returns the intrinsic size of page in points. Without a parsed
// page tree it falls back to MuPDF's integer bounds.
func (d *Document) PageSize(page int) (float64, float64, error) {
	if page < 0 || page >= d.pages {
		return 0, 0, fmt.Errorf("document: page %d out of range [0, %d)", page, d.pages)
	}
	if d.sizes != nil {
		return d.sizes[page].Width, d.sizes[page].Height, nil
	}
	bound, err := d.doc.Bound(page)
	if err != nil {
		return 0, 0, fmt.Errorf("document: bound of page %d: %w", page, err)
	}
	return float64(bound.Dx()), float64(bound.Dy()), nil
}

// Render rasterises page at scale pixels per point. MuPDF clears the pixmap to
// white, so transparent pages come out as paper.
func (d *Document) Render(page int, scale float64) (*image.RGBA, error) {
	if page < 0 || page >= d.pages {
		return nil, fmt.Errorf("document: page %d out of range [0, %d)", page, d.pages)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("document: invalid scale %g", scale)
	}
	img, err := d.doc.ImageDPI(page, pointsPerInch*scale)
	if err != nil {
		return nil, fmt.Errorf("document: render page %d: %w", page, err)
	}
	return img, nil
}

func (d *Document) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
