package container

import (
	"encoding/binary"
	"testing"
)

func TestDetectMagicBytes(t *testing.T) {
	cases := []struct {
		magic string
		want  Format
	}{
		{"OTTO", FormatOpenType},
		{"true", FormatOpenType},
		{"\x00\x01\x00\x00", FormatOpenType},
		{"ttcf", FormatCollection},
		{"wOFF", FormatWOFF1},
		{"wOF2", FormatWOFF2},
		{"xxxx", FormatUnknown},
		{"ab", FormatUnknown},
	}
	for _, c := range cases {
		buf := append([]byte(c.magic), make([]byte, 8)...)
		if got := Detect(buf); got != c.want {
			t.Errorf("Detect(%q) = %v, want %v", c.magic, got, c.want)
		}
	}
}

func TestDecodeOpenTypePassesThrough(t *testing.T) {
	buf := append([]byte("OTTO"), make([]byte, 32)...)
	logicals, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(logicals) != 1 || logicals[0].Index != 0 {
		t.Fatalf("expected one logical at index 0, got %+v", logicals)
	}
	if &logicals[0].Bytes[0] != &buf[0] {
		t.Errorf("expected pass-through buffer identity")
	}
}

func TestDecodeUnsupportedMagicFails(t *testing.T) {
	buf := []byte("????????????")
	_, err := Decode(buf)
	if err == nil {
		t.Fatal("expected an error for unrecognized magic")
	}
	if _, ok := err.(interface{ Error() string }); !ok {
		t.Fatalf("expected an error value, got %T", err)
	}
}

func buildTTC(offsets []uint32) []byte {
	buf := make([]byte, 12+4*len(offsets))
	copy(buf, "ttcf")
	binary.BigEndian.PutUint32(buf[4:8], 0x00010000)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(offsets)))
	for i, off := range offsets {
		binary.BigEndian.PutUint32(buf[12+4*i:16+4*i], off)
	}
	return buf
}

func TestDecodeCollectionEnumeratesOffsets(t *testing.T) {
	buf := buildTTC([]uint32{0, 1})
	logicals, err := decodeCollection(buf)
	if err != nil {
		t.Fatalf("decodeCollection: %v", err)
	}
	if len(logicals) != 2 {
		t.Fatalf("expected 2 logicals, got %d", len(logicals))
	}
	for i, lg := range logicals {
		if lg.Index != i {
			t.Errorf("logical %d has Index %d", i, lg.Index)
		}
		if &lg.Bytes[0] != &buf[0] {
			t.Errorf("logical %d does not share the collection buffer", i)
		}
	}
}

func TestDecodeCollectionRejectsTruncatedDirectory(t *testing.T) {
	buf := buildTTC([]uint32{0, 1})
	_, err := decodeCollection(buf[:16]) // cuts off the second offset
	if err == nil {
		t.Fatal("expected an error for a truncated ttc directory")
	}
}

func TestBuildSfntProducesValidDirectoryHeader(t *testing.T) {
	tables := []rawTable{
		{tag: tagToUint32("head"), data: []byte{1, 2, 3}},
		{tag: tagToUint32("hhea"), data: []byte{4, 5, 6, 7}},
	}
	out, err := buildSfnt(0x00010000, tables)
	if err != nil {
		t.Fatalf("buildSfnt: %v", err)
	}
	if len(out) < 12 {
		t.Fatalf("sfnt buffer too short: %d bytes", len(out))
	}
	numTables := binary.BigEndian.Uint16(out[4:6])
	if int(numTables) != len(tables) {
		t.Errorf("numTables = %d, want %d", numTables, len(tables))
	}
}

func TestBuildSfntRejectsEmptyTableList(t *testing.T) {
	if _, err := buildSfnt(0x00010000, nil); err == nil {
		t.Fatal("expected an error building an sfnt with no tables")
	}
}

func TestChecksumPadsToWordBoundary(t *testing.T) {
	a := checksum([]byte{1, 2, 3})
	b := checksum([]byte{1, 2, 3, 0})
	if a != b {
		t.Errorf("checksum should pad to a 4-byte boundary: got %d and %d", a, b)
	}
}

func TestSfntSearchParamsMonotonic(t *testing.T) {
	sr4, _, _ := sfntSearchParams(4)
	sr5, _, _ := sfntSearchParams(5)
	if sr5 < sr4 {
		t.Errorf("searchRange should not shrink as numTables grows: sr4=%d sr5=%d", sr4, sr5)
	}
}
