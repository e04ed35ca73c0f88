package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/example/resumehub/internal/models"
)

var (
	// ErrRegionNotFound is returned when the requested region id is not in the document.
	ErrRegionNotFound = errors.New("export region not found")
	// ErrExportFailed marks a failed rasterization or encoding. The concrete error is an *Error.
	ErrExportFailed = errors.New("export failed")
)

// FailureNotice is shown to the user once per failed export.
const FailureNotice = "Sorry, the PDF could not be generated (possibly because of an image). Try changing the image or try again."

const exportIDAttr = "data-export-id"

var hiddenClasses = map[string]bool{"d-none": true, "shadow-lg": true}

var captureStyle = [][2]string{
	{"position", "absolute"},
	{"left", "0"},
	{"top", "0"},
	{"width", "210mm"},
	{"min-height", "297mm"},
	{"background", "#ffffff"},
	{"margin", "0"},
	{"padding", "20px"},
	{"z-index", "10000"},
	{"overflow", "visible"},
}

// Error is a failed export together with the notice the user was shown.
type Error struct {
	Notice string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", ErrExportFailed, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrExportFailed, e.Err}
}

// Notifier surfaces a message to the person who requested an export.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Notify(ctx context.Context, message string) { f(ctx, message) }

// Request selects what to export and how.
type Request struct {
	RegionID string
	// FileName is the base name of the output; ".pdf" is appended.
	FileName string
	// Theme is a catalog theme name, CustomTheme, or empty for none.
	Theme  string
	Custom *models.ThemeSettings
}

// Result is a finished export.
type Result struct {
	FileName string
	PDF      []byte
	Pages    int
}

// Config tunes the capture.
type Config struct {
	Scale       float64
	WindowWidth int
	SettleDelay time.Duration
}

// Exporter turns a region of a rendered page into an A4 PDF.
type Exporter struct {
	catalog    *Catalog
	rasterizer Rasterizer
	images     *ImageResolver
	notifier   Notifier
	cfg        Config
	logger     *zap.Logger
	observe    func(theme string, err error)
	now        func() time.Time
}

// NewExporter wires an exporter. images may be nil to leave image sources untouched.
func NewExporter(catalog *Catalog, rasterizer Rasterizer, images *ImageResolver, notifier Notifier, cfg Config, logger *zap.Logger) *Exporter {
	if cfg.Scale <= 0 {
		cfg.Scale = 5
	}
	if cfg.WindowWidth <= 0 {
		cfg.WindowWidth = 1600
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, string) {})
	}
	return &Exporter{
		catalog:    catalog,
		rasterizer: rasterizer,
		images:     images,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Observe registers fn to be called after every export attempt.
func (e *Exporter) Observe(fn func(theme string, err error)) {
	e.observe = fn
}

// Catalog returns the predefined themes the exporter knows.
func (e *Exporter) Catalog() *Catalog {
	return e.catalog
}

// Export captures the element with id req.RegionID from doc and paginates it into a PDF.
// The live region is never modified and the working copy is removed from doc
// before Export returns, whatever the outcome.
func (e *Exporter) Export(ctx context.Context, doc *Document, req Request) (res *Result, err error) {
	defer func() {
		if e.observe != nil {
			e.observe(req.Theme, err)
		}
	}()

	doc.mu.Lock()
	defer doc.mu.Unlock()

	region := findByID(doc.root, req.RegionID)
	if region == nil {
		return nil, fmt.Errorf("%w: %q", ErrRegionNotFound, req.RegionID)
	}

	themeClass, compact, err := e.resolveTheme(req)
	if err != nil {
		return nil, err
	}

	stamp := e.now()
	token := strconv.FormatInt(stamp.UnixNano(), 10)
	clone := cloneTree(region)
	setAttr(clone, "id", req.RegionID+"-export")
	setAttr(clone, exportIDAttr, token)
	stripPresentation(clone)

	switch {
	case req.Theme == CustomTheme:
		settings := models.DefaultThemeSettings()
		if req.Custom != nil {
			settings = *req.Custom
		}
		scope := "custom-theme-" + token
		e.injectCustomStyle(doc, GenerateCustomCSS(settings, scope))
		addClass(clone, scope)
	case themeClass != "":
		addClass(clone, themeClass)
	}

	setStyle(clone, captureStyle)
	body := doc.body()
	if body == nil {
		return nil, fmt.Errorf("%w: document has no body", ErrRegionNotFound)
	}
	body.AppendChild(clone)
	defer detach(clone)

	if e.images != nil {
		e.images.Resolve(ctx, clone)
	}
	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	img, err := e.rasterizer.Rasterize(ctx, doc.String(), RasterOptions{
		Selector:    fmt.Sprintf("[%s=%q]", exportIDAttr, token),
		Scale:       e.cfg.Scale,
		WindowWidth: e.cfg.WindowWidth,
	})
	if err != nil {
		return nil, e.fail(ctx, req, err)
	}

	bounds := img.Bounds()
	plan := PlanPages(bounds.Dx(), bounds.Dy(), compact)
	pdf, err := BuildPDF(img, plan)
	if err != nil {
		return nil, e.fail(ctx, req, err)
	}

	name := baseName(req)
	e.logger.Info("Resume exported",
		zap.String("region", req.RegionID),
		zap.String("theme", req.Theme),
		zap.Int("pages", len(plan.Pages)),
		zap.Duration("elapsed", e.now().Sub(stamp)))
	return &Result{FileName: name + ".pdf", PDF: pdf, Pages: len(plan.Pages)}, nil
}

func (e *Exporter) resolveTheme(req Request) (class string, compact bool, err error) {
	switch req.Theme {
	case "", CustomTheme:
		return "", false, nil
	}
	t, err := e.catalog.Lookup(req.Theme)
	if err != nil {
		return "", false, err
	}
	return t.Class(), t.Compact, nil
}

func (e *Exporter) injectCustomStyle(doc *Document, css string) {
	detach(findByID(doc.root, CustomStyleID))
	parent := doc.head()
	if parent == nil {
		parent = doc.body()
	}
	parent.AppendChild(newStyleElement(CustomStyleID, css))
}

func (e *Exporter) settle(ctx context.Context) error {
	if e.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(e.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Exporter) fail(ctx context.Context, req Request, cause error) error {
	e.logger.Error("PDF generation failed",
		zap.String("region", req.RegionID),
		zap.String("theme", req.Theme),
		zap.Error(cause))
	e.notifier.Notify(ctx, FailureNotice)
	return &Error{Notice: FailureNotice, Err: cause}
}

// stripPresentation removes hiding and entrance-animation classes from the copy.
// Elements that were animated are pinned visible.
func stripPresentation(root *html.Node) {
	removeClasses(root, func(c string) bool { return hiddenClasses[c] })
	walk(root, func(n *html.Node) {
		if removeClasses(n, func(c string) bool { return strings.HasPrefix(c, "animate__") }) {
			setStyle(n, [][2]string{{"opacity", "1"}, {"animation", "none"}})
		}
	})
}

func baseName(req Request) string {
	name := strings.TrimSpace(req.FileName)
	name = strings.TrimSuffix(name, ".pdf")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\n', '\r':
			return '-'
		}
		return r
	}, name)
	if name != "" {
		return name
	}
	if req.Theme == "" {
		return "resume"
	}
	return "resume-" + strings.TrimPrefix(req.Theme, "theme-")
}
