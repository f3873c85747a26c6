package text

import (
	"github.com/go-text/typesetting/segmenter"
	"github.com/npillmayer/fontkit/core/font"
	"github.com/npillmayer/fontkit/core/font/key"
	"golang.org/x/text/unicode/bidi"
	"golang.org/x/text/unicode/norm"
)

// Cluster is one grapheme-extended unit of measured text: the runes it
// covers, its accumulated font-unit advance, and the attributes carried
// along for line breaking and bidi-aware layout.
type Cluster struct {
	Runes     []rune
	Offset    int // rune offset into the owning TextMetrics.Source
	Advance   float32
	Missing   bool
	BidiRTL   bool
	Script    string
	HardBreak bool // a mandatory line break; Advance is always 0
	FontKey   key.FontKey
}

// Run is a maximal span of consecutive clusters attributed to the same
// font, as produced by Runs(). [Start, End) are rune offsets into the
// owning TextMetrics.Source.
type Run struct {
	Key        key.FontKey
	Start, End int
}

// Runs groups m's clusters into maximal same-font spans, in source order.
// Append and Replace(..., fallback=true) can each attribute different
// clusters to different fonts (the latter via a fallback font); Runs lets
// a caller recover which FontRecord produced which part of the text.
func (m *TextMetrics) Runs() []Run {
	var out []Run
	for _, c := range m.Clusters {
		end := c.Offset + len(c.Runes)
		if n := len(out); n > 0 && out[n-1].Key.Equal(c.FontKey) && out[n-1].End == c.Offset {
			out[n-1].End = end
			continue
		}
		out = append(out, Run{Key: c.FontKey, Start: c.Offset, End: end})
	}
	return out
}

// TextMetrics is the measured result of one call to Measure: font-unit
// advances per cluster, together with the vertical metrics of the
// primary font used to produce them. Widths and heights are derived at
// read time by Width/Height, scaled by the caller's font size.
type TextMetrics struct {
	Source     []rune
	Clusters   []Cluster
	UnitsPerEm uint16
	Ascender   float32
	Descender  float32
	LineGap    float32
	HasMissing bool
}

// Measure normalizes text to NFC, segments it into script runs and bidi
// runs, clusters it into grapheme-extended units, and accumulates each
// cluster's horizontal advance from rec. The first rune of a cluster is
// taken as its representative glyph, per the rest of the pipeline; a
// cluster the font has no glyph for is marked Missing rather than
// failing the whole call.
func Measure(rec *font.FontRecord, s string) (*TextMetrics, error) {
	normalized := norm.NFC.String(s)
	runes := []rune(normalized)
	scriptRuns := segmentByScript(runes)

	var p bidi.Paragraph
	if _, err := p.SetString(normalized); err != nil {
		return nil, err
	}
	ordering, err := p.Order()
	if err != nil {
		return nil, err
	}
	runeOffset := byteToRuneOffsets(normalized)
	type bidiRange struct {
		start, end int
		rtl        bool
	}
	ranges := make([]bidiRange, 0, ordering.NumRuns())
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		bs, be := run.Pos()
		ranges = append(ranges, bidiRange{
			start: runeOffset[bs],
			end:   runeOffset[be],
			rtl:   run.Direction() == bidi.RightToLeft,
		})
	}

	var sg segmenter.Segmenter
	sg.Init(runes)
	gi := sg.GraphemeIterator()

	clusters := make([]Cluster, 0, len(runes))
	hasMissing := false
	rangeIdx := 0
	for gi.Next() {
		g := gi.Grapheme()
		if len(g.Text) == 0 {
			continue
		}
		hard := isHardBreak(g.Text)
		var adv float32
		missing := false
		if hard {
			adv = 0
		} else {
			repr := g.Text[0]
			if !rec.HasGlyph(repr) {
				missing = true
				hasMissing = true
			}
			adv = rec.Advance(repr)
		}
		for rangeIdx < len(ranges) && g.Offset >= ranges[rangeIdx].end {
			rangeIdx++
		}
		rtl := rangeIdx < len(ranges) && ranges[rangeIdx].rtl

		clusters = append(clusters, Cluster{
			Runes:     append([]rune{}, g.Text...),
			Offset:    g.Offset,
			Advance:   adv,
			Missing:   missing,
			BidiRTL:   rtl,
			Script:    scriptAt(scriptRuns, g.Offset),
			HardBreak: hard,
			FontKey:   rec.Key(),
		})
	}

	return &TextMetrics{
		Source:     runes,
		Clusters:   clusters,
		UnitsPerEm: rec.UnitsPerEm(),
		Ascender:   rec.Ascender(),
		Descender:  rec.Descender(),
		LineGap:    rec.LineGap(),
		HasMissing: hasMissing,
	}, nil
}

// byteToRuneOffsets maps every byte offset of s (including len(s)) to the
// rune index it falls on, for translating bidi.Run byte positions into
// the rune-indexed offsets the rest of this package works in.
func byteToRuneOffsets(s string) []int {
	out := make([]int, len(s)+1)
	ri := 0
	for bi := range s {
		out[bi] = ri
		ri++
	}
	out[len(s)] = ri
	return out
}

func isHardBreak(cluster []rune) bool {
	if len(cluster) == 0 {
		return false
	}
	switch cluster[0] {
	case '\n', '\r', ' ', ' ':
		return true
	}
	return false
}

func scriptAt(runs []scriptRun, offset int) string {
	for _, r := range runs {
		if offset >= r.start && offset < r.end {
			return r.script
		}
	}
	return ""
}

// Width returns the measured width at fontSize with the given
// letter-spacing applied between clusters (not after the last one).
func (m *TextMetrics) Width(fontSize, letterSpacing float32) float32 {
	if m.UnitsPerEm == 0 {
		return 0
	}
	scale := fontSize / float32(m.UnitsPerEm)
	var w float32
	for i, c := range m.Clusters {
		w += c.Advance * scale
		if i < len(m.Clusters)-1 {
			w += letterSpacing
		}
	}
	return w
}

// Height returns lineHeight verbatim when non-nil, else the font's
// natural line height (ascender - descender + line gap) scaled to
// fontSize.
func (m *TextMetrics) Height(fontSize float32, lineHeight *float32) float32 {
	if lineHeight != nil {
		return *lineHeight
	}
	if m.UnitsPerEm == 0 {
		return 0
	}
	scale := fontSize / float32(m.UnitsPerEm)
	return (m.Ascender - m.Descender + m.LineGap) * scale
}

// SplitByWidth runs a Unicode line-break pass over the source text and
// returns the longest prefix (ending at an allowed break, when one
// exists within budget) whose width at fontSize/letterSpacing is at most
// maxWidth, plus the remainder. rest is nil when head covers the whole
// text.
func (m *TextMetrics) SplitByWidth(fontSize, letterSpacing, maxWidth float32) (head, rest *TextMetrics) {
	if len(m.Clusters) == 0 {
		return m, nil
	}
	scale := float32(1)
	if m.UnitsPerEm != 0 {
		scale = fontSize / float32(m.UnitsPerEm)
	}
	breakOffsets := lineBreakOffsets(m.Source)

	clusterEnd := make([]int, len(m.Clusters))
	for i, c := range m.Clusters {
		clusterEnd[i] = c.Offset + len(c.Runes)
	}

	var width float32
	bestBreak := -1
	for i, c := range m.Clusters {
		w := c.Advance * scale
		if i > 0 {
			w += letterSpacing
		}
		if width+w > maxWidth {
			break
		}
		width += w
		if breakOffsets[clusterEnd[i]] {
			bestBreak = i
		}
	}

	if bestBreak == -1 {
		// No allowed break fits within budget: fall back to the longest
		// prefix that fits regardless of break opportunity, guaranteeing
		// at least one cluster of progress.
		width = 0
		for i, c := range m.Clusters {
			w := c.Advance * scale
			if i > 0 {
				w += letterSpacing
			}
			if width+w > maxWidth && i > 0 {
				break
			}
			width += w
			bestBreak = i
		}
	}
	if bestBreak < 0 {
		bestBreak = 0
	}

	head = m.sub(0, bestBreak+1)
	if bestBreak+1 >= len(m.Clusters) {
		return head, nil
	}
	return head, m.sub(bestBreak+1, len(m.Clusters))
}

func (m *TextMetrics) sub(from, to int) *TextMetrics {
	clusters := append([]Cluster{}, m.Clusters[from:to]...)
	var src []rune
	if len(clusters) > 0 {
		start := clusters[0].Offset
		end := clusters[len(clusters)-1].Offset + len(clusters[len(clusters)-1].Runes)
		src = m.Source[start:end]
		for i := range clusters {
			clusters[i].Offset -= start
		}
	}
	missing := false
	for _, c := range clusters {
		if c.Missing {
			missing = true
			break
		}
	}
	return &TextMetrics{
		Source:     src,
		Clusters:   clusters,
		UnitsPerEm: m.UnitsPerEm,
		Ascender:   m.Ascender,
		Descender:  m.Descender,
		LineGap:    m.LineGap,
		HasMissing: missing,
	}
}

// lineBreakOffsets returns the set of rune offsets (0..len(runes)) after
// which a Unicode line break is permitted.
func lineBreakOffsets(runes []rune) map[int]bool {
	var sg segmenter.Segmenter
	sg.Init(runes)
	it := sg.LineIterator()
	out := map[int]bool{}
	for it.Next() {
		ln := it.Line()
		out[ln.Offset+len(ln.Text)] = true
	}
	return out
}

// Append concatenates other's clusters after m's, producing a new
// TextMetrics whose HasMissing reflects either source.
func (m *TextMetrics) Append(other *TextMetrics) *TextMetrics {
	src := append(append([]rune{}, m.Source...), other.Source...)
	clusters := append([]Cluster{}, m.Clusters...)
	offset := len(m.Source)
	for _, c := range other.Clusters {
		c.Offset += offset
		clusters = append(clusters, c)
	}
	return &TextMetrics{
		Source:     src,
		Clusters:   clusters,
		UnitsPerEm: m.UnitsPerEm,
		Ascender:   m.Ascender,
		Descender:  m.Descender,
		LineGap:    m.LineGap,
		HasMissing: m.HasMissing || other.HasMissing,
	}
}

// Replace substitutes m with other. When fallback is false this is a
// plain substitution. When fallback is true, only the clusters m marked
// Missing are taken from other (by index); every other cluster is kept
// from m, producing a per-cluster merged result.
func (m *TextMetrics) Replace(other *TextMetrics, fallback bool) *TextMetrics {
	if !fallback {
		return other
	}
	clusters := append([]Cluster{}, m.Clusters...)
	for i := range clusters {
		if clusters[i].Missing && i < len(other.Clusters) {
			clusters[i] = other.Clusters[i]
		}
	}
	missing := false
	for _, c := range clusters {
		if c.Missing {
			missing = true
			break
		}
	}
	return &TextMetrics{
		Source:     append([]rune{}, m.Source...),
		Clusters:   clusters,
		UnitsPerEm: m.UnitsPerEm,
		Ascender:   m.Ascender,
		Descender:  m.Descender,
		LineGap:    m.LineGap,
		HasMissing: missing,
	}
}

