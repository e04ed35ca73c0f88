package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultViewportHeight = 1200

// offlineProxy is a proxy nothing listens on. Every http(s) request the page makes,
// loopback included, fails; images reach the page only as data URLs.
const offlineProxy = "http://127.0.0.1:9"

// ChromeRasterizer captures elements with a headless Chrome driven over the DevTools protocol.
type ChromeRasterizer struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
}

// NewChromeRasterizer starts a browser allocator. execPath may be empty to use the
// browser found on PATH. The browser has no network access. Close releases it.
func NewChromeRasterizer(execPath string, logger *zap.Logger) *ChromeRasterizer {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.ProxyServer(offlineProxy),
		chromedp.Flag("proxy-bypass-list", "<-loopback>"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRasterizer{allocCtx: allocCtx, cancelAlloc: cancel, logger: logger}
}

// Rasterize loads page into a fresh tab and screenshots the element matching opts.Selector.
func (c *ChromeRasterizer) Rasterize(ctx context.Context, page string, opts RasterOptions) (image.Image, error) {
	if opts.Selector == "" {
		return nil, errors.New("rasterize: empty selector")
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	width := opts.WindowWidth
	if width <= 0 {
		width = 1024
	}

	tabCtx, cancelTab := chromedp.NewContext(c.allocCtx)
	defer cancelTab()
	// Tie the tab to the caller's deadline.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	markup, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("rasterize: encode page: %w", err)
	}
	script := fmt.Sprintf("document.open();document.write(%s);document.close();true", markup)

	var (
		written bool
		shot    []byte
	)
	err = chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(width), defaultViewportHeight, chromedp.EmulateScale(scale)),
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(script, &written),
		chromedp.WaitVisible(opts.Selector, chromedp.ByQuery),
		chromedp.Screenshot(opts.Selector, &shot, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("rasterize: %w", ctx.Err())
		}
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("rasterize: decode screenshot: %w", err)
	}
	c.logger.Debug("Element captured",
		zap.String("selector", opts.Selector),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// Close shuts the browser down.
func (c *ChromeRasterizer) Close() {
	c.cancelAlloc()
}
