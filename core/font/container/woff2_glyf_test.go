package container

import (
	"testing"
)

func TestReadUintBase128SingleByte(t *testing.T) {
	r := &byteReader{buf: []byte{0x7f}}
	got, err := r.readUintBase128()
	if err != nil {
		t.Fatalf("readUintBase128: %v", err)
	}
	if got != 0x7f {
		t.Errorf("got %d, want 127", got)
	}
}

func TestReadUintBase128MultiByte(t *testing.T) {
	// 0x81 0x00 encodes (1<<7)|0 = 128.
	r := &byteReader{buf: []byte{0x81, 0x00}}
	got, err := r.readUintBase128()
	if err != nil {
		t.Fatalf("readUintBase128: %v", err)
	}
	if got != 128 {
		t.Errorf("got %d, want 128", got)
	}
}

func TestReadUintBase128RejectsLeadingZeroByte(t *testing.T) {
	r := &byteReader{buf: []byte{0x80, 0x01}}
	if _, err := r.readUintBase128(); err == nil {
		t.Fatal("expected an error for a leading 0x80 byte")
	}
}

func TestRead255UInt16PlainValue(t *testing.T) {
	r := &byteReader{buf: []byte{100}}
	got, err := read255UInt16(r)
	if err != nil {
		t.Fatalf("read255UInt16: %v", err)
	}
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestRead255UInt16WordCode(t *testing.T) {
	r := &byteReader{buf: []byte{253, 0x03, 0xe8}} // wordCode, then 1000 as big-endian u16
	got, err := read255UInt16(r)
	if err != nil {
		t.Fatalf("read255UInt16: %v", err)
	}
	if got != 1000 {
		t.Errorf("got %d, want 1000", got)
	}
}

func TestRead255UInt16OneMoreByteCode1(t *testing.T) {
	r := &byteReader{buf: []byte{255, 10}} // 10 + 253
	got, err := read255UInt16(r)
	if err != nil {
		t.Fatalf("read255UInt16: %v", err)
	}
	if got != 263 {
		t.Errorf("got %d, want 263", got)
	}
}

func TestRead255UInt16OneMoreByteCode2(t *testing.T) {
	r := &byteReader{buf: []byte{254, 5}} // 5 + 506
	got, err := read255UInt16(r)
	if err != nil {
		t.Fatalf("read255UInt16: %v", err)
	}
	if got != 511 {
		t.Errorf("got %d, want 511", got)
	}
}

func TestDecodeTripletShortDyOnly(t *testing.T) {
	r := &byteReader{buf: []byte{5}}
	dx, dy, err := decodeTriplet(r, 2) // flag&1==0 -> negative dy, no dx
	if err != nil {
		t.Fatalf("decodeTriplet: %v", err)
	}
	if dx != 0 || dy != -261 {
		t.Errorf("got dx=%d dy=%d, want dx=0 dy=-261", dx, dy)
	}
}

func TestDecodeTripletShortDxOnly(t *testing.T) {
	r := &byteReader{buf: []byte{5}}
	dx, dy, err := decodeTriplet(r, 13) // flag&1==1 -> positive dx, no dy
	if err != nil {
		t.Fatalf("decodeTriplet: %v", err)
	}
	if dx != 261 || dy != 0 {
		t.Errorf("got dx=%d dy=%d, want dx=261 dy=0", dx, dy)
	}
}

func TestDecodeTripletOneByteBoth(t *testing.T) {
	r := &byteReader{buf: []byte{0x35}}
	dx, dy, err := decodeTriplet(r, 20)
	if err != nil {
		t.Fatalf("decodeTriplet: %v", err)
	}
	if dx != -4 || dy != -6 {
		t.Errorf("got dx=%d dy=%d, want dx=-4 dy=-6", dx, dy)
	}
}

func TestDecodeTripletTwoByteBoth(t *testing.T) {
	r := &byteReader{buf: []byte{10, 20}}
	dx, dy, err := decodeTriplet(r, 84)
	if err != nil {
		t.Fatalf("decodeTriplet: %v", err)
	}
	if dx != -11 || dy != -21 {
		t.Errorf("got dx=%d dy=%d, want dx=-11 dy=-21", dx, dy)
	}
}

func TestDecodeTripletThreeByteBoth(t *testing.T) {
	r := &byteReader{buf: []byte{1, 0x23, 5}}
	dx, dy, err := decodeTriplet(r, 120)
	if err != nil {
		t.Fatalf("decodeTriplet: %v", err)
	}
	if dx != -18 || dy != -773 {
		t.Errorf("got dx=%d dy=%d, want dx=-18 dy=-773", dx, dy)
	}
}

func TestDecodeTripletFourByteBoth(t *testing.T) {
	r := &byteReader{buf: []byte{1, 2, 3, 4}}
	dx, dy, err := decodeTriplet(r, 124)
	if err != nil {
		t.Fatalf("decodeTriplet: %v", err)
	}
	if dx != -258 || dy != -772 {
		t.Errorf("got dx=%d dy=%d, want dx=-258 dy=-772", dx, dy)
	}
}

func TestDecodeTripletTruncatedStreamErrors(t *testing.T) {
	r := &byteReader{buf: []byte{1, 2}} // flag 124 wants 4 bytes
	if _, _, err := decodeTriplet(r, 124); err == nil {
		t.Fatal("expected an error reading a truncated triplet")
	}
}

func TestEncodeDeltaUsesTwoBytesWhenItFits(t *testing.T) {
	if got := encodeDelta(1000); len(got) != 2 {
		t.Errorf("expected a 2-byte delta, got %d bytes", len(got))
	}
	if got := encodeDelta(-1000); len(got) != 2 {
		t.Errorf("expected a 2-byte delta, got %d bytes", len(got))
	}
}

func TestEncodeDeltaFallsBackToFourBytesOutOfRange(t *testing.T) {
	if got := encodeDelta(100000); len(got) != 4 {
		t.Errorf("expected a 4-byte delta, got %d bytes", len(got))
	}
}

func TestAssembleGlyfLocaOffset16HalvesByteOffsets(t *testing.T) {
	glyphs := [][]byte{{1, 2, 3, 4}, {5, 6}}
	glyf, loca, err := assembleGlyfLoca(glyphs, 0)
	if err != nil {
		t.Fatalf("assembleGlyfLoca: %v", err)
	}
	if len(glyf) != 6 {
		t.Fatalf("expected 6 bytes of glyf data, got %d", len(glyf))
	}
	// Offset16 entries: 0, 4/2=2, 6/2=3.
	want := []uint16{0, 2, 3}
	for i, w := range want {
		got := uint16(loca[2*i])<<8 | uint16(loca[2*i+1])
		if got != w {
			t.Errorf("loca[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestAssembleGlyfLocaPadsOddLengthGlyphs(t *testing.T) {
	glyphs := [][]byte{{1, 2, 3}} // odd length, must be padded to 4
	glyf, _, err := assembleGlyfLoca(glyphs, 1)
	if err != nil {
		t.Fatalf("assembleGlyfLoca: %v", err)
	}
	if len(glyf) != 4 {
		t.Errorf("expected padding to an even length, got %d bytes", len(glyf))
	}
}

func TestCopyCompositeRecordStopsAtLastComponent(t *testing.T) {
	// One component: flags=0 (no MORE_COMPONENTS, no WE_HAVE_INSTRUCTIONS,
	// args are bytes), glyphIndex=7, two 1-byte args.
	buf := []byte{0x00, 0x00, 0x00, 0x07, 0x01, 0x02}
	r := &byteReader{buf: buf}
	body, hasInstr, err := copyCompositeRecord(r)
	if err != nil {
		t.Fatalf("copyCompositeRecord: %v", err)
	}
	if hasInstr {
		t.Error("did not expect WE_HAVE_INSTRUCTIONS")
	}
	if len(body) != len(buf) {
		t.Errorf("expected the whole single-component record copied through, got %d of %d bytes", len(body), len(buf))
	}
}

func TestCopyCompositeRecordReadsMultipleComponents(t *testing.T) {
	moreComponents := uint16(1 << 5)
	// First component sets MORE_COMPONENTS; second does not.
	buf := []byte{
		byte(moreComponents >> 8), byte(moreComponents), 0x00, 0x01, 0x01, 0x02,
		0x00, 0x00, 0x00, 0x02, 0x03, 0x04,
	}
	r := &byteReader{buf: buf}
	body, _, err := copyCompositeRecord(r)
	if err != nil {
		t.Fatalf("copyCompositeRecord: %v", err)
	}
	if len(body) != len(buf) {
		t.Errorf("expected both components copied through, got %d of %d bytes", len(body), len(buf))
	}
	if r.pos != len(buf) {
		t.Errorf("expected the cursor to land exactly at the end of the stream, pos=%d len=%d", r.pos, len(buf))
	}
}
