package export

import "math"

// A4 page size in millimetres.
const (
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

// Placement positions the captured image on one page, in millimetres.
type Placement struct {
	X, Y, W, H float64
}

// Plan is the page layout for one captured image.
type Plan struct {
	// ImageHeight is the image height at full page width.
	ImageHeight float64
	// Scale is 1 unless a compact export was shrunk onto one page.
	Scale float64
	Pages []Placement
}

// PlanPages lays out a widthPx × heightPx capture on A4 pages at full page width.
// Compact exports taller than one page are scaled uniformly onto a single page;
// everything else flows over as many pages as needed, each showing the next
// page-height slice of the image.
func PlanPages(widthPx, heightPx int, compact bool) Plan {
	if widthPx <= 0 || heightPx <= 0 {
		return Plan{Scale: 1, Pages: []Placement{{W: PageWidthMM}}}
	}
	imgHeight := float64(heightPx) * PageWidthMM / float64(widthPx)

	if compact && imgHeight > PageHeightMM {
		ratio := PageHeightMM / imgHeight
		return Plan{
			ImageHeight: imgHeight,
			Scale:       ratio,
			Pages:       []Placement{{W: PageWidthMM * ratio, H: PageHeightMM}},
		}
	}

	count := int(math.Ceil(imgHeight / PageHeightMM))
	if count < 1 {
		count = 1
	}
	pages := make([]Placement, count)
	for i := range pages {
		pages[i] = Placement{Y: -float64(i) * PageHeightMM, W: PageWidthMM, H: imgHeight}
	}
	return Plan{ImageHeight: imgHeight, Scale: 1, Pages: pages}
}
