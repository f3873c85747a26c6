package text

import "testing"

func TestSegmentByScriptSplitsLatinAndHan(t *testing.T) {
	runes := []rune("Hi 世界")
	runs := segmentByScript(runes)
	if len(runs) != 2 {
		t.Fatalf("expected 2 script runs, got %d: %+v", len(runs), runs)
	}
	if runs[0].script != "Latin" {
		t.Errorf("expected first run to be Latin, got %s", runs[0].script)
	}
	if runs[1].script != "Han" {
		t.Errorf("expected second run to be Han, got %s", runs[1].script)
	}
}

func TestIsHardBreakRecognizesNewlineVariants(t *testing.T) {
	cases := []struct {
		r    rune
		want bool
	}{
		{'\n', true},
		{'\r', true},
		{' ', true},
		{' ', true},
		{'a', false},
		{' ', false},
	}
	for _, c := range cases {
		got := isHardBreak([]rune{c.r})
		if got != c.want {
			t.Errorf("isHardBreak(%q) = %v, want %v", c.r, got, c.want)
		}
	}
}

func TestScriptAtLooksUpOffsetWithinRun(t *testing.T) {
	runs := []scriptRun{{start: 0, end: 3, script: "Latin"}, {start: 3, end: 5, script: "Han"}}
	if got := scriptAt(runs, 1); got != "Latin" {
		t.Errorf("scriptAt(1) = %s, want Latin", got)
	}
	if got := scriptAt(runs, 4); got != "Han" {
		t.Errorf("scriptAt(4) = %s, want Han", got)
	}
}
