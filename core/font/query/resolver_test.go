package query_test

import (
	"testing"

	"github.com/npillmayer/fontkit/core/font/key"
	"github.com/npillmayer/fontkit/core/font/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSans(weight int, italic bool, stretch int) key.FontKey {
	return key.New("Open Sans", weight, italic, stretch, nil)
}

func ptr[T any](v T) *T { return &v }

func TestResolveFamilyOnlySingleMatch(t *testing.T) {
	candidates := []key.FontKey{openSans(400, false, 5), key.New("Inter", 400, false, 5, nil)}
	idx, ok := query.Resolve(candidates, query.Query{Family: "open sans"})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestResolveUnmatchedFamilyFails(t *testing.T) {
	candidates := []key.FontKey{openSans(400, false, 5)}
	_, ok := query.Resolve(candidates, query.Query{Family: "nonexistent"})
	assert.False(t, ok)
}

// An empty family query matches no registered key (CanonicalFamily("") is
// never a key's Family, since FontKey.Family is required to be non-empty),
// so it falls out of the family stage the same as any other unmatched
// family: no candidates survive and Resolve reports failure. Per spec this
// is the boundary behavior for an empty family query — the registry turns
// that into NotFound, not a distinct raised error.
func TestResolveEmptyFamilyFails(t *testing.T) {
	candidates := []key.FontKey{openSans(400, false, 5)}
	_, ok := query.Resolve(candidates, query.Query{Family: ""})
	assert.False(t, ok)
}

func TestResolveWeightNearestTiesTowardLighter(t *testing.T) {
	candidates := []key.FontKey{
		openSans(300, false, 5),
		openSans(500, false, 5),
	}
	idx, ok := query.Resolve(candidates, query.Query{Family: "Open Sans", Weight: ptr(400)})
	require.True(t, ok)
	assert.Equal(t, 300, candidates[idx].Weight)
}

func TestResolveWeightFarOutsideRangePicksHeaviest(t *testing.T) {
	candidates := []key.FontKey{
		openSans(300, false, 5),
		openSans(700, false, 5),
	}
	idx, ok := query.Resolve(candidates, query.Query{Family: "Open Sans", Weight: ptr(2000)})
	require.True(t, ok)
	assert.Equal(t, 700, candidates[idx].Weight)
}

func TestResolveItalicRevertsWhenNoMatch(t *testing.T) {
	candidates := []key.FontKey{openSans(400, false, 5)}
	idx, ok := query.Resolve(candidates, query.Query{Family: "Open Sans", Italic: ptr(true)})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestResolveItalicPrefersExactWhenAvailable(t *testing.T) {
	candidates := []key.FontKey{
		openSans(400, false, 5),
		openSans(400, true, 5),
	}
	idx, ok := query.Resolve(candidates, query.Query{Family: "Open Sans", Italic: ptr(true)})
	require.True(t, ok)
	assert.True(t, candidates[idx].Italic)
}

func TestResolveStretchNearestTiesTowardNarrower(t *testing.T) {
	candidates := []key.FontKey{
		openSans(400, false, 3),
		openSans(400, false, 7),
	}
	idx, ok := query.Resolve(candidates, query.Query{Family: "Open Sans", Stretch: ptr(5)})
	require.True(t, ok)
	assert.Equal(t, 3, candidates[idx].Stretch)
}

func TestExactMatchRequiresEveryField(t *testing.T) {
	candidates := []key.FontKey{
		openSans(400, false, 5),
		openSans(400, true, 5),
	}
	idx, ok := query.ExactMatch(candidates, query.Query{
		Family: "open sans", Weight: ptr(400), Italic: ptr(true), Stretch: ptr(5),
	})
	require.True(t, ok)
	assert.True(t, candidates[idx].Italic)
}

func TestExactMatchVariationsAsMultiset(t *testing.T) {
	withVariations := key.New("Inter", 400, false, 5, []key.Variation{
		{Axis: "wght", Value: 400}, {Axis: "opsz", Value: 14},
	})
	candidates := []key.FontKey{withVariations}
	idx, ok := query.ExactMatch(candidates, query.Query{
		Family: "Inter",
		Variations: []key.Variation{
			{Axis: "OPSZ", Value: 14}, {Axis: "WGHT", Value: 400},
		},
	})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestResolveDeterministicAcrossInsertionOrder(t *testing.T) {
	a := []key.FontKey{openSans(300, false, 5), openSans(700, false, 5)}
	b := []key.FontKey{openSans(700, false, 5), openSans(300, false, 5)}

	idxA, okA := query.Resolve(a, query.Query{Family: "Open Sans", Weight: ptr(400)})
	idxB, okB := query.Resolve(b, query.Query{Family: "Open Sans", Weight: ptr(400)})
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a[idxA].Weight, b[idxB].Weight)
}
