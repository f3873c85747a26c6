/*
Package query implements the staged filter pipeline that turns a partial
FontKey into at most one candidate: family, then weight, then italic,
then stretch, each stage reverting to its input set when it would
otherwise eliminate every candidate.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package query

import (
	"github.com/npillmayer/fontkit/core/font/key"
)

// Query is a partial FontKey: Family is mandatory, the remaining fields
// are optional filters. A nil pointer means "not constrained by this
// field"; ExactMatch additionally treats a nil Variations as "don't
// care" and a non-nil (possibly empty) Variations as a required exact
// multiset match.
type Query struct {
	Family     string
	Weight     *int
	Italic     *bool
	Stretch    *int
	Variations []key.Variation
}

// Resolve narrows candidates (by index) to the ones matching q, applying
// the weight/italic/stretch stages in order and reverting a stage to its
// input set whenever it would otherwise empty it. It returns the index
// of the sole surviving candidate, or -1 if zero or more than one
// candidate survives every stage.
func Resolve(candidates []key.FontKey, q Query) (int, bool) {
	set := familyFilter(candidates, q.Family)
	if len(set) == 0 {
		return -1, false
	}
	if len(set) == 1 {
		return set[0], true
	}

	if q.Weight != nil {
		set = narrowOrRevert(set, func(idxs []int) []int {
			return exactWeight(candidates, idxs, *q.Weight)
		}, func(idxs []int) []int {
			return nearestWeight(candidates, idxs, *q.Weight)
		})
	}
	if len(set) == 1 {
		return set[0], true
	}

	if q.Italic != nil {
		set = narrowOrRevert(set, func(idxs []int) []int {
			return exactItalic(candidates, idxs, *q.Italic)
		}, nil)
	}
	if len(set) == 1 {
		return set[0], true
	}

	if q.Stretch != nil {
		set = narrowOrRevert(set, func(idxs []int) []int {
			return exactStretch(candidates, idxs, *q.Stretch)
		}, func(idxs []int) []int {
			return nearestStretch(candidates, idxs, *q.Stretch)
		})
	}
	if len(set) == 1 {
		return set[0], true
	}
	return -1, false
}

// ExactMatch requires every provided field of q to match exactly — no
// relaxation, no revert — and variation lists (when q.Variations is
// non-nil) to match as multisets. It returns the index of the sole
// surviving candidate, or -1 if zero or more than one candidate
// survives.
func ExactMatch(candidates []key.FontKey, q Query) (int, bool) {
	set := familyFilter(candidates, q.Family)
	if q.Weight != nil {
		set = exactWeight(candidates, set, *q.Weight)
	}
	if q.Italic != nil {
		set = exactItalic(candidates, set, *q.Italic)
	}
	if q.Stretch != nil {
		set = exactStretch(candidates, set, *q.Stretch)
	}
	if q.Variations != nil {
		want := key.CanonicalVariations(q.Variations)
		set = filterIdx(set, func(i int) bool {
			return variationsEqual(candidates[i].Variations, want)
		})
	}
	if len(set) == 1 {
		return set[0], true
	}
	return -1, false
}

func familyFilter(candidates []key.FontKey, family string) []int {
	want := key.CanonicalFamily(family)
	out := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Family == want {
			out = append(out, i)
		}
	}
	return out
}

// narrowOrRevert applies exact to idxs; if the result is empty and
// nearest is non-nil, it applies nearest to idxs instead; if the result
// is empty and nearest is nil, idxs itself (the revert case) is
// returned unchanged.
func narrowOrRevert(idxs []int, exact func([]int) []int, nearest func([]int) []int) []int {
	if next := exact(idxs); len(next) > 0 {
		return next
	}
	if nearest != nil {
		if next := nearest(idxs); len(next) > 0 {
			return next
		}
	}
	return idxs
}

func exactWeight(candidates []key.FontKey, idxs []int, weight int) []int {
	return filterIdx(idxs, func(i int) bool { return candidates[i].Weight == weight })
}

// nearestWeight keeps the candidates whose weight is numerically closest
// to weight, ties breaking toward the lighter weight.
func nearestWeight(candidates []key.FontKey, idxs []int, weight int) []int {
	best := -1
	bestDelta := -1
	for _, i := range idxs {
		d := abs(candidates[i].Weight - weight)
		if best == -1 || d < bestDelta ||
			(d == bestDelta && candidates[i].Weight < candidates[best].Weight) {
			best, bestDelta = i, d
		}
	}
	if best == -1 {
		return nil
	}
	out := make([]int, 0, 1)
	for _, i := range idxs {
		if candidates[i].Weight == candidates[best].Weight {
			out = append(out, i)
		}
	}
	return out
}

func exactItalic(candidates []key.FontKey, idxs []int, italic bool) []int {
	return filterIdx(idxs, func(i int) bool { return candidates[i].Italic == italic })
}

func exactStretch(candidates []key.FontKey, idxs []int, stretch int) []int {
	return filterIdx(idxs, func(i int) bool { return candidates[i].Stretch == stretch })
}

// nearestStretch keeps the candidates minimizing |stretch - K.stretch|,
// ties breaking toward the narrower (smaller) stretch.
func nearestStretch(candidates []key.FontKey, idxs []int, stretch int) []int {
	best := -1
	bestDelta := -1
	for _, i := range idxs {
		d := abs(candidates[i].Stretch - stretch)
		if best == -1 || d < bestDelta ||
			(d == bestDelta && candidates[i].Stretch < candidates[best].Stretch) {
			best, bestDelta = i, d
		}
	}
	if best == -1 {
		return nil
	}
	out := make([]int, 0, 1)
	for _, i := range idxs {
		if candidates[i].Stretch == candidates[best].Stretch {
			out = append(out, i)
		}
	}
	return out
}

func variationsEqual(a, b []key.Variation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func filterIdx(idxs []int, keep func(int) bool) []int {
	out := make([]int, 0, len(idxs))
	for _, i := range idxs {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
