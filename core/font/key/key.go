/*
Package key defines the canonical font identity used to index and query
the registry, together with the width string/number alias table.

A FontKey is built from family, weight, italic, stretch and a variation
axis list. Two keys are equal iff every field compares equal, with the
variation list compared as a multiset (order-independent) after axis-tag
uppercasing.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package key

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultWeight is the OpenType usWeightClass default.
const DefaultWeight = 400

// DefaultStretch is the OpenType usWidthClass default ("normal").
const DefaultStretch = 5

// Variation is one (axis-tag, value) pair of a variable font instance.
type Variation struct {
	Axis  string // four-letter OpenType axis tag, e.g. "wght"
	Value float32
}

// FontKey is the canonical identity of a font, used both to index the
// registry and to express queries against it.
//
// Family is matched case-insensitively after NFC normalization; the zero
// value of Weight/Stretch is not meaningful on its own — New replaces an
// unset (zero) weight or stretch with the default. Registry keys always
// carry concrete, defaulted values.
type FontKey struct {
	Family     string
	Weight     int // 1..=1000, default 400
	Italic     bool
	Stretch    int // 1..=9, default 5
	Variations []Variation
}

// New builds a FontKey from a family name, applying spec defaults for
// weight and stretch and canonicalizing the family and variation list.
func New(family string, weight int, italic bool, stretch int, variations []Variation) FontKey {
	if weight <= 0 {
		weight = DefaultWeight
	}
	if stretch <= 0 || stretch > 9 {
		stretch = DefaultStretch
	}
	k := FontKey{
		Family:     canonicalFamily(family),
		Weight:     weight,
		Italic:     italic,
		Stretch:    stretch,
		Variations: canonicalVariations(variations),
	}
	return k
}

// canonicalFamily normalizes a family name to NFC and folds it to lower
// case for comparison. The original spelling is not kept.
func canonicalFamily(family string) string {
	return strings.ToLower(norm.NFC.String(family))
}

// CanonicalFamily exposes canonicalFamily for callers outside this
// package that need to compare a raw family string against a stored
// FontKey.Family without going through New (the query resolver, in
// particular, matches on family before any of the other fields are
// known to be present).
func CanonicalFamily(family string) string { return canonicalFamily(family) }

// CanonicalVariations exposes canonicalVariations for the same reason as
// CanonicalFamily.
func CanonicalVariations(vs []Variation) []Variation { return canonicalVariations(vs) }

// canonicalVariations sorts a variation list by upper-cased axis tag, so
// that two lists with the same axes in different orders compare equal.
func canonicalVariations(vs []Variation) []Variation {
	if len(vs) == 0 {
		return nil
	}
	out := make([]Variation, len(vs))
	for i, v := range vs {
		out[i] = Variation{Axis: strings.ToUpper(v.Axis), Value: v.Value}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Axis < out[j].Axis })
	return out
}

// Equal reports whether k and other denote the same canonical identity.
// Variation lists are compared as multisets — both are pre-sorted by
// canonicalVariations, so this reduces to a plain slice comparison.
func (k FontKey) Equal(other FontKey) bool {
	if k.Family != other.Family || k.Weight != other.Weight ||
		k.Italic != other.Italic || k.Stretch != other.Stretch {
		return false
	}
	if len(k.Variations) != len(other.Variations) {
		return false
	}
	for i := range k.Variations {
		if k.Variations[i] != other.Variations[i] {
			return false
		}
	}
	return true
}

// Digest returns a stable, deterministic string identifying the key,
// suitable as a cache-spill filename stem. It is not a cryptographic hash;
// it is built to be stable across processes for identical keys.
func (k FontKey) Digest() string {
	var b strings.Builder
	b.WriteString(k.Family)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(k.Weight))
	b.WriteByte('|')
	if k.Italic {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(k.Stretch))
	for _, v := range k.Variations {
		b.WriteByte('|')
		b.WriteString(v.Axis)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(float64(v.Value), 'g', -1, 32))
	}
	return fnvHex(b.String())
}

// fnvHex computes a stable hex digest of s without pulling in crypto/hash
// package variety beyond what the standard library already offers.
func fnvHex(s string) string {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return strconv.FormatUint(h, 16)
}

// widthAliases maps the named width/stretch strings to their OpenType
// usWidthClass numbers 1..9. display carries the canonical hyphenated
// spelling; matching itself folds case and interior hyphenation away.
var widthAliases = []struct {
	display string
	number  int
}{
	{"ultra-condensed", 1},
	{"extra-condensed", 2},
	{"condensed", 3},
	{"semi-condensed", 4},
	{"normal", 5},
	{"semi-expanded", 6},
	{"expanded", 7},
	{"extra-expanded", 8},
	{"ultra-expanded", 9},
}

func foldWidthName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "-", "")
}

// StrWidthToNumber maps a named stretch/width string to its OpenType
// usWidthClass number. Matching is case-insensitive and ignores interior
// hyphenation. Unknown input yields 5 ("normal").
func StrWidthToNumber(s string) int {
	folded := foldWidthName(s)
	for _, a := range widthAliases {
		if foldWidthName(a.display) == folded {
			return a.number
		}
	}
	return DefaultStretch
}

// NumberWidthToStr maps an OpenType usWidthClass number to its canonical
// named alias. Unknown input yields "normal".
func NumberWidthToStr(n int) string {
	for _, a := range widthAliases {
		if a.number == n {
			return a.display
		}
	}
	return "normal"
}
