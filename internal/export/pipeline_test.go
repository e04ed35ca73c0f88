package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/example/resumehub/internal/models"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>cv</title></head>
<body>
<div id="profile-pdf-content" class="d-none shadow-lg container">
  <header class="animate__animated animate__fadeInDown"><h1>Jane Doe</h1><p class="lead">Engineer</p></header>
  <section class="animate__animated animate__fadeInUp"><h4>Skills</h4><span class="badge">Go</span></section>
</div>
</body></html>`

type fakeRasterizer struct {
	img   image.Image
	err   error
	calls int
	pages []string
	opts  []RasterOptions
}

func (f *fakeRasterizer) Rasterize(_ context.Context, page string, opts RasterOptions) (image.Image, error) {
	f.calls++
	f.pages = append(f.pages, page)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type recordingNotifier struct{ messages []string }

func (r *recordingNotifier) Notify(_ context.Context, message string) {
	r.messages = append(r.messages, message)
}

func newTestExporter(t *testing.T, r Rasterizer) (*Exporter, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	e := NewExporter(DefaultCatalog(), r, nil, n, Config{}, zap.NewNop())
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	e.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	return e, n
}

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseDocumentString(samplePage)
	require.NoError(t, err)
	return doc
}

// capturedRegion returns the markup of the working copy as the rasterizer saw it.
func capturedRegion(t *testing.T, page string) string {
	t.Helper()
	doc, err := ParseDocumentString(page)
	require.NoError(t, err)
	n := findByID(doc.root, "profile-pdf-content-export")
	require.NotNil(t, n, "working copy missing from captured page")
	var buf bytes.Buffer
	require.NoError(t, html.Render(&buf, n))
	return buf.String()
}

func assertCleanedUp(t *testing.T, doc *Document) {
	t.Helper()
	assert.False(t, doc.HasElement("profile-pdf-content-export"))
	assert.Zero(t, doc.CountAttr(exportIDAttr))
	assert.True(t, doc.HasElement("profile-pdf-content"))
}

func TestExport_CompactTheme(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(800, 1200)}
	e, n := newTestExporter(t, r)
	doc := parseSample(t)
	before := doc.String()

	res, err := e.Export(context.Background(), doc, Request{RegionID: "profile-pdf-content", Theme: "compact"})
	require.NoError(t, err)

	assert.Equal(t, "resume-compact.pdf", res.FileName)
	assert.Equal(t, 1, res.Pages)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")))
	assert.Empty(t, n.messages)

	require.Equal(t, 1, r.calls)
	assert.Equal(t, 5.0, r.opts[0].Scale)
	assert.Equal(t, 1600, r.opts[0].WindowWidth)
	assert.Contains(t, r.opts[0].Selector, exportIDAttr)

	region := capturedRegion(t, r.pages[0])
	assert.Contains(t, region, "theme-compact")
	assert.Contains(t, region, "position: absolute")
	assert.Contains(t, region, "width: 210mm")
	assert.NotContains(t, region, "d-none")
	assert.NotContains(t, region, "shadow-lg")
	assert.NotContains(t, region, "animate__")
	assert.Contains(t, region, "opacity: 1; animation: none;")

	assertCleanedUp(t, doc)
	assert.Equal(t, before, doc.String(), "live region must be left untouched")
}

func TestExport_NonCompactFlowsOverPages(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(800, 1200)}
	e, _ := newTestExporter(t, r)

	res, err := e.Export(context.Background(), parseSample(t), Request{
		RegionID: "profile-pdf-content",
		Theme:    "theme-modern",
		FileName: "jane.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "jane.pdf", res.FileName)
}

func TestExport_RasterizerFailureNotifiesAndCleansUp(t *testing.T) {
	r := &fakeRasterizer{err: errors.New("tainted canvas")}
	e, n := newTestExporter(t, r)
	doc := parseSample(t)

	var observed error
	e.Observe(func(_ string, err error) { observed = err })

	res, err := e.Export(context.Background(), doc, Request{RegionID: "profile-pdf-content", Theme: "classic"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrExportFailed)

	var exportErr *Error
	require.True(t, errors.As(err, &exportErr))
	assert.Equal(t, FailureNotice, exportErr.Notice)
	assert.Equal(t, []string{FailureNotice}, n.messages)
	assert.Equal(t, err, observed)

	assertCleanedUp(t, doc)
}

func TestExport_CustomThemeKeepsSingleStyleBlock(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(100, 100)}
	e, _ := newTestExporter(t, r)
	doc := parseSample(t)
	settings := &models.ThemeSettings{PrimaryColor: "#123456", HeaderStyle: models.HeaderLeftBar}

	for i := 0; i < 3; i++ {
		_, err := e.Export(context.Background(), doc, Request{RegionID: "profile-pdf-content", Theme: CustomTheme, Custom: settings})
		require.NoError(t, err)
	}

	rendered := doc.String()
	assert.Equal(t, 1, strings.Count(rendered, `id="pdf-custom-style"`))
	assert.Contains(t, rendered, "border-left: 20px solid #123456")

	last := capturedRegion(t, r.pages[2])
	assert.Contains(t, last, "custom-theme-")
	assertCleanedUp(t, doc)
}

func TestExport_CustomThemeWithoutSettingsUsesDefaults(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(100, 100)}
	e, _ := newTestExporter(t, r)
	doc := parseSample(t)

	res, err := e.Export(context.Background(), doc, Request{RegionID: "profile-pdf-content", Theme: CustomTheme})
	require.NoError(t, err)
	assert.Equal(t, "resume-custom.pdf", res.FileName)
	assert.Contains(t, doc.String(), "background: #007bff !important;")
}

func TestExport_RegionNotFound(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(10, 10)}
	e, n := newTestExporter(t, r)

	_, err := e.Export(context.Background(), parseSample(t), Request{RegionID: "missing"})
	assert.ErrorIs(t, err, ErrRegionNotFound)
	assert.Zero(t, r.calls)
	assert.Empty(t, n.messages)
}

func TestExport_UnknownTheme(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(10, 10)}
	e, _ := newTestExporter(t, r)
	doc := parseSample(t)

	_, err := e.Export(context.Background(), doc, Request{RegionID: "profile-pdf-content", Theme: "neon"})
	assert.ErrorIs(t, err, ErrUnknownTheme)
	assert.Zero(t, r.calls)
	assertCleanedUp(t, doc)
}

func TestExport_SettleDelayHonoursCancellation(t *testing.T) {
	r := &fakeRasterizer{img: solidImage(10, 10)}
	e := NewExporter(DefaultCatalog(), r, nil, nil, Config{SettleDelay: time.Hour}, zap.NewNop())
	doc := parseSample(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Export(ctx, doc, Request{RegionID: "profile-pdf-content"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.calls)
	assertCleanedUp(t, doc)
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{}, "resume"},
		{Request{Theme: "classic"}, "resume-classic"},
		{Request{Theme: "theme-minimal"}, "resume-minimal"},
		{Request{FileName: "cv.pdf"}, "cv"},
		{Request{FileName: "../etc/passwd"}, "..-etc-passwd"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, baseName(tt.req))
	}
}
