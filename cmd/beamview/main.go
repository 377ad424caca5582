package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kjkrol/beamview/internal/cache"
	"github.com/kjkrol/beamview/internal/document"
	"github.com/kjkrol/beamview/internal/platform"
	"github.com/kjkrol/beamview/internal/viewer"
	"github.com/kjkrol/beamview/pkg/gfx"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

type options struct {
	path      string
	viewports int
	cfg       viewer.Config
	exportDir string
	info      bool
	verbosity int
	logFile   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return exitUsage
	}

	var logPath *string
	if opts.logFile != "" {
		logPath = &opts.logFile
	}
	commonlog.Configure(opts.verbosity, logPath)
	log := commonlog.GetLogger("beamview")

	switch {
	case opts.info:
		err = printInfo(opts.path, stdout)
	case opts.exportDir != "":
		err = export(opts, stdout)
	default:
		err = present(opts)
	}
	if err != nil {
		log.Errorf("%s", err)
		fmt.Fprintln(stderr, "beamview:", err)
		return exitFatal
	}
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("beamview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	horizontal := fs.Bool("h", false, "split pages horizontally across viewports (default)")
	vertical := fs.Bool("v", false, "split pages vertically across viewports")
	viewports := fs.Int("n", 2, "number of viewports")
	order := fs.String("order", "sequential", "background fill order: sequential or nearest")
	exportDir := fs.String("export", "", "render every page headless into `dir` and exit")
	info := fs.Bool("info", false, "print page count and page sizes and exit")
	verbosity := fs.Int("verbose", 0, "log verbosity: -2 errors, -1 warnings, 0 notices, 1 info, 2 debug")
	logFile := fs.String("log", "", "write the log to `file` instead of stderr")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: beamview [flags] <pdf_file>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, errors.New("beamview: expected exactly one PDF file")
	}
	if *horizontal && *vertical {
		return options{}, errors.New("beamview: -h and -v are mutually exclusive")
	}
	if *viewports < 1 {
		return options{}, fmt.Errorf("beamview: invalid viewport count %d", *viewports)
	}
	fillOrder, err := cache.ParseFillOrder(*order)
	if err != nil {
		return options{}, err
	}

	opts := options{
		path:      fs.Arg(0),
		viewports: *viewports,
		exportDir: *exportDir,
		info:      *info,
		verbosity: *verbosity,
		logFile:   *logFile,
		cfg: viewer.Config{
			Orientation: gfx.Horizontal,
			Order:       fillOrder,
		},
	}
	if *vertical {
		opts.cfg.Orientation = gfx.Vertical
	}
	return opts, nil
}

func printInfo(path string, out io.Writer) error {
	info, err := document.Inspect(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d pages\n", info.Path, len(info.Pages))
	if info.Uniform() {
		p := info.Pages[0]
		fmt.Fprintf(out, "page size: %.0f x %.0f pt\n", p.Width, p.Height)
		return nil
	}
	for _, p := range info.Pages {
		fmt.Fprintf(out, "page %d: %.0f x %.0f pt\n", p.Index+1, p.Width, p.Height)
	}
	return nil
}

func export(opts options, out io.Writer) error {
	doc, err := document.Open(opts.path)
	if err != nil {
		return err
	}
	defer doc.Close()

	written, err := viewer.Export(doc, opts.exportDir, opts.viewports, opts.cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d images to %s\n", len(written), opts.exportDir)
	return nil
}

func present(opts options) error {
	log := commonlog.GetLogger("beamview")

	doc, err := document.Open(opts.path)
	if err != nil {
		return err
	}
	defer doc.Close()

	pageW, pageH, err := doc.PageSize(0)
	if err != nil {
		return err
	}
	sizes, err := viewer.InitialWindowSizes(pageW, pageH, opts.viewports, opts.cfg.Orientation)
	if err != nil {
		return err
	}

	display, err := platform.NewSDLDisplay()
	if err != nil {
		return err
	}
	defer display.Close()

	windows := make([]platform.Window, len(sizes))
	for i, size := range sizes {
		windows[i], err = display.NewWindow(platform.WindowConfig{
			Width:  size.X,
			Height: size.Y,
			Title:  fmt.Sprintf("%s [%d/%d]", filepath.Base(opts.path), i+1, len(sizes)),
		})
		if err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
	}

	ctrl, err := viewer.New(doc, windows, opts.cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Run(ctx, display); err != nil {
		return err
	}
	log.Info("Program closed")
	return nil
}
