package key_test

import (
	"testing"

	"github.com/npillmayer/fontkit/core/font/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrWidthToNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"Ultra-Condensed", 1},
		{"ultracondensed", 1},
		{"  Condensed ", 3},
		{"normal", 5},
		{"Semi-Expanded", 6},
		{"ULTRA-EXPANDED", 9},
		{"bogus-width", 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, key.StrWidthToNumber(c.in), "input %q", c.in)
	}
}

func TestNumberWidthToStr(t *testing.T) {
	assert.Equal(t, "normal", key.NumberWidthToStr(5))
	assert.Equal(t, "ultra-condensed", key.NumberWidthToStr(1))
	assert.Equal(t, "extra-expanded", key.NumberWidthToStr(8))
	assert.Equal(t, "normal", key.NumberWidthToStr(42))
}

func TestKeyEqualityIgnoresVariationOrder(t *testing.T) {
	a := key.New("Open Sans", 400, true, 5, []key.Variation{
		{Axis: "wght", Value: 400},
		{Axis: "ital", Value: 1},
	})
	b := key.New("open sans", 400, true, 5, []key.Variation{
		{Axis: "ITAL", Value: 1},
		{Axis: "WGHT", Value: 400},
	})
	require.True(t, a.Equal(b))
}

func TestKeyDefaults(t *testing.T) {
	k := key.New("Inter", 0, false, 0, nil)
	assert.Equal(t, key.DefaultWeight, k.Weight)
	assert.Equal(t, key.DefaultStretch, k.Stretch)
}

func TestDigestStable(t *testing.T) {
	a := key.New("Inter", 700, false, 5, nil)
	b := key.New("Inter", 700, false, 5, nil)
	assert.Equal(t, a.Digest(), b.Digest())
}
