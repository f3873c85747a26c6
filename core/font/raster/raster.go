/*
Package raster rasterizes a glyph outline into a coverage bitmap at a
given size, with an optional approximate stroke buffer.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package raster

import (
	"image"
	"math"

	"github.com/npillmayer/fontkit/core/font"
	"github.com/npillmayer/fontkit/core/font/outline"
	"golang.org/x/image/vector"
)

// GlyphBitmap is a rasterized glyph: an 8-bit row-major coverage buffer
// with no padding, an optional stroke buffer of identical geometry, and
// the originating font's metrics at the chosen size.
type GlyphBitmap struct {
	Width, Height int
	Coverage      []byte
	StrokeCoverage []byte // nil unless stroke_width > 0
	XMin, YMax    int     // bounding-box origin offsets, in pixels
	Advance       float32
	Ascender      float32
	Descender     float32
}

// Bitmap rasterizes ch's outline from rec at fontSize, returning false if
// rec.GlyphPath yields no outline for ch (no glyph, or a glyph with no
// contours, which HasGlyph still reports as present). When
// strokeWidth > 0, a second coverage buffer approximating a stroke of
// that width is produced alongside the fill.
func Bitmap(rec *font.FontRecord, ch rune, fontSize, strokeWidth float32) (*GlyphBitmap, bool) {
	path, ok := rec.GlyphPath(ch)
	if !ok || path.Empty() {
		return nil, false
	}
	upem := rec.UnitsPerEm()
	if upem == 0 {
		return nil, false
	}
	scale := fontSize / float32(upem)

	minX, minY, maxX, maxY := boundingBox(path, scale)
	width := int(maxX-minX) + 1
	height := int(maxY-minY) + 1
	if width <= 0 || height <= 0 {
		return nil, false
	}

	fill := rasterize(path, scale, minX, maxY, width, height)

	gb := &GlyphBitmap{
		Width:     width,
		Height:    height,
		Coverage:  fill,
		XMin:      int(minX),
		YMax:      int(maxY),
		Advance:   rec.Advance(ch) * scale,
		Ascender:  rec.Ascender() * scale,
		Descender: rec.Descender() * scale,
	}
	if strokeWidth > 0 {
		gb.StrokeCoverage = strokeBand(fill, width, height, strokeWidth)
	}
	return gb, true
}

// boundingBox returns the scaled (but not yet flipped) font-unit bounding
// box of path, rounded outward to whole pixels.
func boundingBox(path *outline.GlyphPath, scale float32) (minX, minY, maxX, maxY float32) {
	first := true
	for _, cmd := range path.Commands {
		n := argCount(cmd.Op)
		for i := 0; i < n; i++ {
			x := cmd.Args[i].X * scale
			y := cmd.Args[i].Y * scale
			if first {
				minX, maxX, minY, maxY = x, x, y, y
				first = false
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	minX, minY = float32(math.Floor(float64(minX))), float32(math.Floor(float64(minY)))
	maxX, maxY = float32(math.Ceil(float64(maxX))), float32(math.Ceil(float64(maxY)))
	return
}

// rasterize scales path by scale, flips it from OpenType's Y-up to the
// rasterizer's Y-down convention (pixelY = maxY - y), shifts it to a
// non-negative origin, and fills it via an edge rasterizer.
func rasterize(path *outline.GlyphPath, scale, minX, maxY float32, width, height int) []byte {
	z := vector.NewRasterizer(width, height)
	toPixel := func(p outline.Point) (float32, float32) {
		return p.X*scale - minX, maxY - p.Y*scale
	}
	for _, cmd := range path.Commands {
		switch cmd.Op {
		case outline.MoveTo:
			x, y := toPixel(cmd.Args[0])
			z.MoveTo(x, y)
		case outline.LineTo:
			x, y := toPixel(cmd.Args[0])
			z.LineTo(x, y)
		case outline.QuadTo:
			cx, cy := toPixel(cmd.Args[0])
			x, y := toPixel(cmd.Args[1])
			z.QuadTo(cx, cy, x, y)
		case outline.CurveTo:
			c1x, c1y := toPixel(cmd.Args[0])
			c2x, c2y := toPixel(cmd.Args[1])
			x, y := toPixel(cmd.Args[2])
			z.CubeTo(c1x, c1y, c2x, c2y, x, y)
		case outline.Close:
			z.ClosePath()
		}
	}
	dst := image.NewAlpha(image.Rect(0, 0, width, height))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst.Pix
}

// argCount mirrors outline's own per-op argument count (not exported).
func argCount(op outline.Op) int {
	switch op {
	case outline.MoveTo, outline.LineTo:
		return 1
	case outline.QuadTo:
		return 2
	case outline.CurveTo:
		return 3
	default:
		return 0
	}
}

// strokeBand approximates a stroke of the given width by marking every
// pixel within radius(strokeWidth) of a fill/no-fill boundary. There is
// no path offset-curve stroker in this toolkit's dependency set; this
// morphological approximation avoids needing one.
func strokeBand(fill []byte, w, h int, strokeWidth float32) []byte {
	radius := int(strokeWidth/2 + 0.5)
	if radius < 1 {
		radius = 1
	}
	filled := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return fill[y*w+x] > 127
	}
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			self := filled(x, y)
			near := false
			for dy := -radius; dy <= radius && !near; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if filled(x+dx, y+dy) != self {
						near = true
						break
					}
				}
			}
			if near {
				out[y*w+x] = 255
			}
		}
	}
	return out
}
