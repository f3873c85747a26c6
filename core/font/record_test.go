package font

import (
	"testing"

	gxfont "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/npillmayer/fontkit/core/font/outline"
	"github.com/stretchr/testify/assert"
)

func TestStretchToWidthClassSnapsToNearestCanonicalPoint(t *testing.T) {
	cases := []struct {
		s    gxfont.Stretch
		want int
	}{
		{gxfont.StretchNormal, 5},
		{gxfont.StretchCondensed, 3},
		{gxfont.StretchUltraExpanded, 9},
		{gxfont.StretchUltraCondensed, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, stretchToWidthClass(c.s))
	}
}

func TestStretchToWidthClassSnapsBetweenPoints(t *testing.T) {
	// Between Normal (1.0) and SemiExpanded (1.125), closer to Normal.
	got := stretchToWidthClass(gxfont.Stretch(1.05))
	assert.Equal(t, 5, got)
}

func TestSegmentsToPathClosesOpenSubpathAtEnd(t *testing.T) {
	segs := []gxfont.Segment{
		{Op: ot.SegmentOpMoveTo, Args: [3]gxfont.SegmentPoint{{X: 0, Y: 0}}},
		{Op: ot.SegmentOpLineTo, Args: [3]gxfont.SegmentPoint{{X: 10, Y: 0}}},
		{Op: ot.SegmentOpLineTo, Args: [3]gxfont.SegmentPoint{{X: 10, Y: 10}}},
	}
	path := segmentsToPath(segs)
	cmds := path.Commands
	if len(cmds) == 0 {
		t.Fatal("expected commands on the path")
	}
	if cmds[len(cmds)-1].Op != outline.Close {
		t.Errorf("expected path to be closed at the end, last op = %v", cmds[len(cmds)-1].Op)
	}
}

func TestSegmentsToPathClosesBeforeSecondMoveTo(t *testing.T) {
	segs := []gxfont.Segment{
		{Op: ot.SegmentOpMoveTo, Args: [3]gxfont.SegmentPoint{{X: 0, Y: 0}}},
		{Op: ot.SegmentOpLineTo, Args: [3]gxfont.SegmentPoint{{X: 10, Y: 0}}},
		{Op: ot.SegmentOpMoveTo, Args: [3]gxfont.SegmentPoint{{X: 5, Y: 5}}},
		{Op: ot.SegmentOpLineTo, Args: [3]gxfont.SegmentPoint{{X: 15, Y: 5}}},
	}
	path := segmentsToPath(segs)
	closes := 0
	for _, c := range path.Commands {
		if c.Op == outline.Close {
			closes++
		}
	}
	assert.Equal(t, 2, closes, "expected a close before the second subpath and one at the end")
}

func TestSegmentsToPathTranslatesQuadAndCubic(t *testing.T) {
	segs := []gxfont.Segment{
		{Op: ot.SegmentOpMoveTo, Args: [3]gxfont.SegmentPoint{{X: 0, Y: 0}}},
		{Op: ot.SegmentOpQuadTo, Args: [3]gxfont.SegmentPoint{{X: 5, Y: 5}, {X: 10, Y: 0}}},
		{Op: ot.SegmentOpCubeTo, Args: [3]gxfont.SegmentPoint{{X: 12, Y: 2}, {X: 14, Y: 4}, {X: 16, Y: 0}}},
	}
	path := segmentsToPath(segs)
	assert.Len(t, path.Commands, 4) // move, quad, curve, implicit close
}
