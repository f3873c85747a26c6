package font

import (
	"bytes"
	"sync"

	gxfont "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/npillmayer/fontkit/core/font/container"
	"github.com/npillmayer/fontkit/core/font/ferrors"
	"github.com/npillmayer/fontkit/core/font/key"
	"github.com/npillmayer/fontkit/core/font/outline"
)

// FontRecord is one parsed, queryable font: a go-text face together with
// the canonical FontKey the registry uses to find it, the raw bytes that
// back the face (kept alive for LRU spill-to-disk), and its origin.
//
// *gxfont.Face is documented as unsafe for concurrent use — it lazily
// fills a per-glyph extents cache. Every FontRecord therefore carries its
// own mutex, independent of whatever locking discipline the registry uses
// around its own map of records.
type FontRecord struct {
	mu     sync.Mutex
	face   *gxfont.Face
	fkey   key.FontKey
	buffer []byte
	path   string
	index  int // position within a TTC/WOFF2-collection source, 0 otherwise
}

// NewFontRecords decodes buf (an OTF, TTF, TTC, WOFF or WOFF2 buffer) and
// returns one FontRecord per logical font found inside it. path is kept
// for diagnostics and so that a registry can reload the font from it after
// an eviction; it is not interpreted here.
func NewFontRecords(buf []byte, path string) ([]*FontRecord, error) {
	logicals, err := container.Decode(buf)
	if err != nil {
		return nil, err
	}

	// Group logicals by underlying buffer identity so a TTC's N members,
	// which all share one Bytes slice, only get parsed once.
	type parsed struct {
		faces []*gxfont.Face
	}
	cache := map[*byte]*parsed{}
	records := make([]*FontRecord, 0, len(logicals))
	for _, lg := range logicals {
		var bufKey *byte
		if len(lg.Bytes) > 0 {
			bufKey = &lg.Bytes[0]
		}
		p, ok := cache[bufKey]
		if !ok {
			faces, err := gxfont.ParseTTC(bytes.NewReader(lg.Bytes))
			if err != nil {
				return nil, &ferrors.ParseError{Table: "sfnt", Cause: err}
			}
			p = &parsed{faces: faces}
			cache[bufKey] = p
		}
		if lg.Index >= len(p.faces) {
			return nil, &ferrors.CorruptContainer{Reason: "collection index out of range"}
		}
		face := p.faces[lg.Index]
		rec := &FontRecord{
			face:   face,
			buffer: lg.Bytes,
			path:   path,
			index:  lg.Index,
		}
		rec.fkey = deriveKey(face)
		records = append(records, rec)
	}
	return records, nil
}

// deriveKey builds a canonical FontKey from a parsed face's metadata
// table, mapping go-text's fractional Stretch back to the OpenType
// usWidthClass 1..9 scale the registry keys on.
func deriveKey(face *gxfont.Face) key.FontKey {
	desc := face.Describe()
	weight := int(desc.Aspect.Weight)
	italic := desc.Aspect.Style == gxfont.StyleItalic
	stretch := stretchToWidthClass(desc.Aspect.Stretch)
	return key.New(desc.Family, weight, italic, stretch, nil)
}

var stretchScale = []struct {
	s gxfont.Stretch
	n int
}{
	{gxfont.StretchUltraCondensed, 1},
	{gxfont.StretchExtraCondensed, 2},
	{gxfont.StretchCondensed, 3},
	{gxfont.StretchSemiCondensed, 4},
	{gxfont.StretchNormal, 5},
	{gxfont.StretchSemiExpanded, 6},
	{gxfont.StretchExpanded, 7},
	{gxfont.StretchExtraExpanded, 8},
	{gxfont.StretchUltraExpanded, 9},
}

// stretchToWidthClass finds the usWidthClass number nearest to s. Named
// instances of variable fonts may report stretch values between the nine
// canonical points; we snap to the closest one rather than interpolate,
// since usWidthClass itself is an integer scale.
func stretchToWidthClass(s gxfont.Stretch) int {
	best := 5
	bestDelta := gxfont.Stretch(1 << 30)
	for _, e := range stretchScale {
		d := s - e.s
		if d < 0 {
			d = -d
		}
		if d < bestDelta {
			bestDelta = d
			best = e.n
		}
	}
	return best
}

// Key returns the record's canonical identity.
func (r *FontRecord) Key() key.FontKey { return r.fkey }

// Path returns the originating file path given at construction, or "" if
// none was given.
func (r *FontRecord) Path() string { return r.path }

// Buffer returns the raw bytes backing this record's face. The slice
// must not be mutated by callers.
func (r *FontRecord) Buffer() []byte { return r.buffer }

// ByteSize is the footprint counted against the registry's memory budget.
func (r *FontRecord) ByteSize() int { return len(r.buffer) }

// UnitsPerEm returns the font's design grid resolution.
func (r *FontRecord) UnitsPerEm() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.face.Upem()
}

// Ascender and Descender return the font's typographic vertical metrics,
// in font units.
func (r *FontRecord) Ascender() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ext, _ := r.face.FontHExtents()
	return ext.Ascender
}

func (r *FontRecord) Descender() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ext, _ := r.face.FontHExtents()
	return ext.Descender
}

// LineGap returns the font's recommended extra spacing between lines, in
// font units.
func (r *FontRecord) LineGap() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ext, _ := r.face.FontHExtents()
	return ext.LineGap
}

// UnderlineMetrics returns the suggested underline position (distance
// above the baseline, typically negative) and thickness, in font units.
func (r *FontRecord) UnderlineMetrics() (position, thickness float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.face.LineMetric(gxfont.UnderlinePosition), r.face.LineMetric(gxfont.UnderlineThickness)
}

// HasGlyph reports whether the font's cmap maps ch to a glyph.
func (r *FontRecord) HasGlyph(ch rune) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.face.NominalGlyph(ch)
	return ok
}

// Advance returns the horizontal advance width of ch's glyph, in font
// units, or 0 if ch is not covered.
func (r *FontRecord) Advance(ch rune) float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	gid, ok := r.face.NominalGlyph(ch)
	if !ok {
		return 0
	}
	return r.face.HorizontalAdvance(gid)
}

// GlyphPath returns the outline of ch's glyph, in font units, or false if
// ch is not covered, the font carries no outline data for it (e.g. a
// pure bitmap/SVG glyph), or its outline has no contours (e.g. space).
func (r *FontRecord) GlyphPath(ch rune) (*outline.GlyphPath, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gid, ok := r.face.NominalGlyph(ch)
	if !ok {
		return nil, false
	}
	data := r.face.GlyphData(gid)
	gOutline, ok := data.(gxfont.GlyphOutline)
	if !ok {
		return nil, false
	}
	path := segmentsToPath(gOutline.Segments)
	if path.Empty() {
		return nil, false
	}
	return path, true
}

// segmentsToPath adapts go-text's outline segment list to GlyphPath,
// closing each subpath on seeing the next MoveTo (or at the end).
func segmentsToPath(segs []gxfont.Segment) *outline.GlyphPath {
	p := outline.New()
	open := false
	for _, seg := range segs {
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			if open {
				p.ClosePath()
			}
			p.MoveTo(seg.Args[0].X, seg.Args[0].Y)
			open = true
		case ot.SegmentOpLineTo:
			p.LineTo(seg.Args[0].X, seg.Args[0].Y)
		case ot.SegmentOpQuadTo:
			p.QuadTo(seg.Args[0].X, seg.Args[0].Y, seg.Args[1].X, seg.Args[1].Y)
		case ot.SegmentOpCubeTo:
			p.CurveTo(seg.Args[0].X, seg.Args[0].Y, seg.Args[1].X, seg.Args[1].Y, seg.Args[2].X, seg.Args[2].Y)
		}
	}
	if open {
		p.ClosePath()
	}
	return p
}
