/*
Package outline accumulates glyph outline callbacks (move/line/quad/cubic/
close) from a font parser into a GlyphPath, and serializes that path to SVG
path-data syntax.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package outline

import (
	"strconv"
	"strings"
)

// Op identifies one outline command.
type Op uint8

const (
	MoveTo Op = iota
	LineTo
	QuadTo
	CurveTo
	Close
)

// Command is one step of a GlyphPath. Args holds the coordinates relevant
// to Op: MoveTo/LineTo use Args[0], QuadTo uses Args[0] (control) and
// Args[1] (end), CurveTo uses Args[0],Args[1] (controls) and Args[2] (end),
// Close uses none.
type Command struct {
	Op   Op
	Args [3]Point
}

// Point is a coordinate in font units (or, after Scale/Translate, whatever
// units the caller has rescaled into).
type Point struct {
	X, Y float32
}

// GlyphPath is an ordered sequence of outline commands, built up from
// parser callbacks. It supports in-place Scale and Translate, and
// serializes to SVG path "d" syntax.
type GlyphPath struct {
	Commands []Command
}

// New returns an empty GlyphPath, ready to receive callbacks.
func New() *GlyphPath {
	return &GlyphPath{}
}

// MoveTo starts a new subpath at (x, y).
func (p *GlyphPath) MoveTo(x, y float32) {
	p.Commands = append(p.Commands, Command{Op: MoveTo, Args: [3]Point{{x, y}}})
}

// LineTo appends a straight segment to (x, y).
func (p *GlyphPath) LineTo(x, y float32) {
	p.Commands = append(p.Commands, Command{Op: LineTo, Args: [3]Point{{x, y}}})
}

// QuadTo appends a quadratic Bezier segment with control point (cx, cy)
// ending at (x, y).
func (p *GlyphPath) QuadTo(cx, cy, x, y float32) {
	p.Commands = append(p.Commands, Command{Op: QuadTo, Args: [3]Point{{cx, cy}, {x, y}}})
}

// CurveTo appends a cubic Bezier segment with control points (c1x,c1y),
// (c2x,c2y) ending at (x, y).
func (p *GlyphPath) CurveTo(c1x, c1y, c2x, c2y, x, y float32) {
	p.Commands = append(p.Commands, Command{Op: CurveTo, Args: [3]Point{{c1x, c1y}, {c2x, c2y}, {x, y}}})
}

// ClosePath closes the current subpath.
func (p *GlyphPath) ClosePath() {
	p.Commands = append(p.Commands, Command{Op: Close})
}

// Empty reports whether the path has no contours.
func (p *GlyphPath) Empty() bool { return len(p.Commands) == 0 }

// Scale multiplies every stored coordinate by factor, in place.
func (p *GlyphPath) Scale(factor float32) {
	for i := range p.Commands {
		args := &p.Commands[i].Args
		for j := range args {
			args[j].X *= factor
			args[j].Y *= factor
		}
	}
}

// Translate adds (dx, dy) to every stored coordinate, in place.
func (p *GlyphPath) Translate(dx, dy float32) {
	for i := range p.Commands {
		args := &p.Commands[i].Args
		for j := range args {
			args[j].X += dx
			args[j].Y += dy
		}
	}
}

// argCount returns how many of Args are meaningful for op.
func argCount(op Op) int {
	switch op {
	case MoveTo, LineTo:
		return 1
	case QuadTo:
		return 2
	case CurveTo:
		return 3
	default: // Close
		return 0
	}
}

var opLetter = map[Op]byte{
	MoveTo:  'M',
	LineTo:  'L',
	QuadTo:  'Q',
	CurveTo: 'C',
	Close:   'z',
}

// String serializes the path to SVG path "d" syntax: commands "M"/"L"/
// "Q"/"C"/"z" separated by single spaces, with the command letter repeated
// explicitly even across successive commands of the same type. Numbers are
// emitted trimmed of trailing zeros; integral values print without a
// decimal point.
func (p *GlyphPath) String() string {
	var b strings.Builder
	for i, cmd := range p.Commands {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(opLetter[cmd.Op])
		n := argCount(cmd.Op)
		for j := 0; j < n; j++ {
			b.WriteByte(' ')
			b.WriteString(formatNumber(cmd.Args[j].X))
			b.WriteByte(' ')
			b.WriteString(formatNumber(cmd.Args[j].Y))
		}
	}
	return b.String()
}

// formatNumber emits f with the minimal decimal representation: integral
// values print without a decimal point, otherwise trailing zeros are
// trimmed.
func formatNumber(f float32) string {
	if f == float32(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}
