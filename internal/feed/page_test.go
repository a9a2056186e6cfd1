package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/khanhnotech/congdongacf-gateway/internal/model"
)

func metaWith(current, last, total, perPage int, hasNext *bool) model.PageMeta {
	m := model.PageMeta{HasNext: hasNext}
	if current > 0 {
		m.CurrentPage = &current
	}
	if last > 0 {
		m.LastPage = &last
	}
	if total > 0 {
		m.Total = &total
	}
	if perPage > 0 {
		m.PerPage = &perPage
	}
	return m
}

func boolp(b bool) *bool { return &b }

func TestNextPage_ExplicitFlagWins(t *testing.T) {
	// hasNext=false stops even though total/limit would say otherwise.
	next, ok := NextPage(metaWith(1, 0, 100, 10, boolp(false)), 1, 10, 10)
	assert.False(t, ok)
	assert.Zero(t, next)

	next, ok = NextPage(metaWith(3, 0, 0, 0, boolp(true)), 1, 2, 10)
	assert.True(t, ok)
	assert.Equal(t, 4, next, "current page from metadata, not pages fetched")
}

func TestNextPage_TotalAndLimit(t *testing.T) {
	// 25 items at 10 per page: pages 1 and 2 continue, page 3 stops.
	next, ok := NextPage(metaWith(1, 0, 25, 10, nil), 1, 10, 10)
	assert.True(t, ok)
	assert.Equal(t, 2, next)

	next, ok = NextPage(metaWith(2, 0, 25, 10, nil), 2, 10, 10)
	assert.True(t, ok)
	assert.Equal(t, 3, next)

	_, ok = NextPage(metaWith(3, 0, 25, 10, nil), 3, 5, 10)
	assert.False(t, ok)
}

func TestNextPage_TotalUsesRequestedSizeWhenPerPageMissing(t *testing.T) {
	next, ok := NextPage(metaWith(1, 0, 15, 0, nil), 1, 10, 10)
	assert.True(t, ok)
	assert.Equal(t, 2, next)
}

func TestNextPage_LengthHeuristic(t *testing.T) {
	// Short page means exhaustion.
	_, ok := NextPage(model.PageMeta{}, 1, 7, 10)
	assert.False(t, ok)

	// Full page assumes one more; the current page falls back to the number
	// of pages fetched so far when metadata is silent.
	next, ok := NextPage(model.PageMeta{}, 2, 10, 10)
	assert.True(t, ok)
	assert.Equal(t, 3, next)
}

func TestNextPage_TerminatesOnShortPageInAllTiers(t *testing.T) {
	short := 4
	size := 10

	_, ok := NextPage(metaWith(2, 0, 14, 10, boolp(false)), 2, short, size)
	assert.False(t, ok, "explicit flag tier")

	_, ok = NextPage(metaWith(2, 0, 14, 10, nil), 2, short, size)
	assert.False(t, ok, "total/limit tier")

	_, ok = NextPage(model.PageMeta{}, 2, short, size)
	assert.False(t, ok, "heuristic tier")
}
