package export

import (
	"context"
	"image"
)

// RasterOptions controls one capture.
type RasterOptions struct {
	// Selector is the CSS selector of the element to capture.
	Selector string
	// Scale is the device pixel ratio; 2 doubles the output resolution.
	Scale float64
	// WindowWidth is the viewport width in CSS pixels.
	WindowWidth int
}

// Rasterizer renders a standalone HTML page and captures one element of it as an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, page string, opts RasterOptions) (image.Image, error)
}
