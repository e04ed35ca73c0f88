package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPages_CompactShrinksToOnePage(t *testing.T) {
	plan := PlanPages(800, 1200, true)

	assert.InDelta(t, 315.0, plan.ImageHeight, 1e-9)
	assert.InDelta(t, 297.0/315.0, plan.Scale, 1e-9)
	require.Len(t, plan.Pages, 1)
	assert.InDelta(t, 198.0, plan.Pages[0].W, 1e-9)
	assert.InDelta(t, 297.0, plan.Pages[0].H, 1e-9)
	assert.Zero(t, plan.Pages[0].Y)
}

func TestPlanPages_FlowsOverPages(t *testing.T) {
	plan := PlanPages(800, 1200, false)

	assert.Equal(t, 1.0, plan.Scale)
	require.Len(t, plan.Pages, 2)
	for i, p := range plan.Pages {
		assert.Equal(t, PageWidthMM, p.W)
		assert.InDelta(t, 315.0, p.H, 1e-9)
		assert.InDelta(t, -297.0*float64(i), p.Y, 1e-9)
	}
}

func TestPlanPages_ShortCompactIsUnscaled(t *testing.T) {
	plan := PlanPages(800, 600, true)

	assert.Equal(t, 1.0, plan.Scale)
	require.Len(t, plan.Pages, 1)
	assert.InDelta(t, 157.5, plan.Pages[0].H, 1e-9)
}

func TestPlanPages_ExactPage(t *testing.T) {
	plan := PlanPages(210, 297, false)
	assert.Len(t, plan.Pages, 1)
}
