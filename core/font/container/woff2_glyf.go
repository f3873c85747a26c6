package container

import (
	"encoding/binary"
	"fmt"

	"github.com/npillmayer/fontkit/core/font/ferrors"
)

// byteReader is a minimal forward-only cursor over a WOFF2 byte stream,
// exposing the handful of variable-width integer encodings the format
// directory and transformed tables use.
type byteReader struct {
	buf    []byte
	pos    int
	failed bool
}

func (r *byteReader) readU8() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("read past end of stream")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readU16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("read past end of stream")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readUintBase128 decodes the UIntBase128 variable-length encoding used
// throughout the WOFF2 table directory: a base-128 big-endian varint with
// at most 5 bytes and no leading zero byte in a multi-byte sequence.
func (r *byteReader) readUintBase128() (uint32, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		b, err := r.readU8()
		if err != nil {
			return 0, err
		}
		if i == 0 && b == 0x80 {
			return 0, fmt.Errorf("uintbase128: leading zero byte")
		}
		if result&0xfe000000 != 0 {
			return 0, fmt.Errorf("uintbase128: overflow")
		}
		result = (result << 7) | uint32(b&0x7f)
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, fmt.Errorf("uintbase128: too long")
}

// read255UInt16 decodes the variable-length point/contour count encoding
// used inside the transformed glyf table's nPointsStream.
func read255UInt16(r *byteReader) (uint16, error) {
	const (
		oneMoreByteCode1 = 255
		oneMoreByteCode2 = 254
		wordCode         = 253
		lowestUCode      = 253
	)
	code, err := r.readU8()
	if err != nil {
		return 0, err
	}
	switch code {
	case wordCode:
		v, err := r.readU16()
		return v, err
	case oneMoreByteCode1:
		b, err := r.readU8()
		if err != nil {
			return 0, err
		}
		return uint16(b) + lowestUCode, nil
	case oneMoreByteCode2:
		b, err := r.readU8()
		if err != nil {
			return 0, err
		}
		return uint16(b) + lowestUCode*2, nil
	default:
		return uint16(code), nil
	}
}

// glyfHeader is the fixed part of a WOFF2-transformed glyf table.
type glyfHeader struct {
	optionFlags      uint16
	numGlyphs        uint16
	indexFormat      uint16
	nContourStream   uint32
	nPointsStream    uint32
	nFlagStream      uint32
	nGlyphStream     uint32
	nCompositeStream uint32
	nBboxStream      uint32
	nInstrStream     uint32
}

// reconstructTransformedGlyf rebuilds standard 'glyf' and 'loca' tables
// from the WOFF2 transform-0 representation described in the WOFF2
// specification section 5.1. Point deltas are decoded with the triplet
// scheme from the same section; composite glyphs are copied through from
// the composite stream, which already holds plain sfnt composite records.
func reconstructTransformedGlyf(payload []byte, headTable []byte) (glyfOut, locaOut []byte, err error) {
	r := &byteReader{buf: payload}
	if _, err := r.readU16(); err != nil { // reserved
		return nil, nil, err
	}
	var h glyfHeader
	var e error
	if h.optionFlags, e = r.readU16(); e != nil {
		return nil, nil, e
	}
	if h.numGlyphs, e = r.readU16(); e != nil {
		return nil, nil, e
	}
	if h.indexFormat, e = r.readU16(); e != nil {
		return nil, nil, e
	}
	for _, dst := range []*uint32{&h.nContourStream, &h.nPointsStream, &h.nFlagStream,
		&h.nGlyphStream, &h.nCompositeStream, &h.nBboxStream, &h.nInstrStream} {
		if *dst, e = r.readU32(); e != nil {
			return nil, nil, e
		}
	}

	contourR := &byteReader{buf: mustSlice(r, int(h.nContourStream))}
	pointsR := &byteReader{buf: mustSlice(r, int(h.nPointsStream))}
	flagR := &byteReader{buf: mustSlice(r, int(h.nFlagStream))}
	glyphR := &byteReader{buf: mustSlice(r, int(h.nGlyphStream))}
	compositeR := &byteReader{buf: mustSlice(r, int(h.nCompositeStream))}
	bboxBitmapLen := (int(h.numGlyphs) + 31) / 32 * 4
	bboxR := &byteReader{buf: mustSlice(r, int(h.nBboxStream))}
	bboxBitmap, e := bboxR.readBytes(bboxBitmapLen)
	if e != nil {
		return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 glyf bbox bitmap: " + e.Error()}
	}
	instrR := &byteReader{buf: mustSlice(r, int(h.nInstrStream))}
	if r.failed {
		return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 transformed glyf streams truncated"}
	}

	glyphs := make([][]byte, h.numGlyphs)
	for gid := 0; gid < int(h.numGlyphs); gid++ {
		nContours, err := contourR.readU16()
		if err != nil {
			return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 contour stream: " + err.Error()}
		}
		hasBbox := bboxBitmap[gid/8]&(1<<(7-uint(gid%8))) != 0

		var body []byte
		var xMin, yMin, xMax, yMax int16
		if int16(nContours) == -1 {
			// Composite glyph: copy through the raw component records and
			// decide instruction presence from the last component's flags.
			compBody, hasInstr, cerr := copyCompositeRecord(compositeR)
			if cerr != nil {
				return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 composite stream: " + cerr.Error()}
			}
			body = compBody
			if hasInstr {
				n, err := readInstructionLength(glyphR)
				if err == nil {
					instr, _ := instrR.readBytes(int(n))
					body = append(body, encodeU16(n)...)
					body = append(body, instr...)
				}
			}
		} else {
			contours := make([]uint16, nContours)
			total := 0
			for c := range contours {
				np, err := read255UInt16(pointsR)
				if err != nil {
					return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 points stream: " + err.Error()}
				}
				contours[c] = np
				total += int(np)
			}
			xs := make([]int32, total)
			ys := make([]int32, total)
			onCurve := make([]bool, total)
			x, y := int32(0), int32(0)
			for i := 0; i < total; i++ {
				flag, err := flagR.readU8()
				if err != nil {
					return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 flag stream: " + err.Error()}
				}
				dx, dy, err := decodeTriplet(glyphR, flag&0x7f)
				if err != nil {
					return nil, nil, &ferrors.CorruptContainer{Reason: "woff2 glyph stream: " + err.Error()}
				}
				x += dx
				y += dy
				xs[i], ys[i] = x, y
				onCurve[i] = flag&0x80 == 0
				if xs[i] < int32(xMin) || i == 0 {
					xMin = int16(xs[i])
				}
				if xs[i] > int32(xMax) || i == 0 {
					xMax = int16(xs[i])
				}
				if ys[i] < int32(yMin) || i == 0 {
					yMin = int16(ys[i])
				}
				if ys[i] > int32(yMax) || i == 0 {
					yMax = int16(ys[i])
				}
			}
			instrLen := uint16(0)
			var instr []byte
			if h.nInstrStream > 0 {
				n, err := readInstructionLength(glyphR)
				if err == nil {
					instrLen = n
					instr, _ = instrR.readBytes(int(n))
				}
			}
			body = encodeSimpleGlyph(contours, xs, ys, onCurve, instrLen, instr)
		}
		if hasBbox {
			bx0, _ := bboxR.readU16()
			by0, _ := bboxR.readU16()
			bx1, _ := bboxR.readU16()
			by1, _ := bboxR.readU16()
			xMin, yMin, xMax, yMax = int16(bx0), int16(by0), int16(bx1), int16(by1)
		}
		glyphs[gid] = append(encodeGlyphHeader(int16(nContours), xMin, yMin, xMax, yMax), body...)
	}

	return assembleGlyfLoca(glyphs, h.indexFormat)
}

// mustSlice carves n bytes out of r, recording failure on r rather than
// returning an error, so the caller can read every stream before checking
// for a single combined error.
func mustSlice(r *byteReader, n int) []byte {
	b, err := r.readBytes(n)
	if err != nil {
		r.failed = true
		return nil
	}
	return b
}

func encodeU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func encodeGlyphHeader(numContours, xMin, yMin, xMax, yMax int16) []byte {
	b := make([]byte, 10)
	binary.BigEndian.PutUint16(b[0:2], uint16(numContours))
	binary.BigEndian.PutUint16(b[2:4], uint16(xMin))
	binary.BigEndian.PutUint16(b[4:6], uint16(yMin))
	binary.BigEndian.PutUint16(b[6:8], uint16(xMax))
	binary.BigEndian.PutUint16(b[8:10], uint16(yMax))
	return b
}

// readInstructionLength reads the 255UInt16-encoded instruction length
// that the glyph stream carries immediately after a glyph's point/flag
// data (only present when the source table declared an instruction
// stream).
func readInstructionLength(glyphR *byteReader) (uint16, error) {
	return read255UInt16(glyphR)
}

// decodeTriplet reads the dx/dy pair for one point, given its lower 7
// flag bits, using the byte-count table and sign convention of the WOFF2
// point-coordinate triplet encoding.
func decodeTriplet(r *byteReader, flag byte) (dx, dy int32, err error) {
	withSign := func(flag byte, base int32) int32 {
		if flag&1 != 0 {
			return base
		}
		return -base
	}
	switch {
	case flag < 10:
		b0, err := r.readU8()
		if err != nil {
			return 0, 0, err
		}
		dy = withSign(flag, (int32(flag&14)<<7)+int32(b0))
		return 0, dy, nil
	case flag < 20:
		b0, err := r.readU8()
		if err != nil {
			return 0, 0, err
		}
		f := flag - 10
		dx = withSign(flag, (int32(f&14)<<7)+int32(b0))
		return dx, 0, nil
	case flag < 84:
		b0, err := r.readU8()
		if err != nil {
			return 0, 0, err
		}
		f := int32(flag) - 20
		dx = withSign(flag, 1+(f&0x30)+(int32(b0)>>4))
		dy = withSign(flag>>1, 1+((f&0x0c)<<2)+(int32(b0)&0xf))
		return dx, dy, nil
	case flag < 120:
		b, err := r.readBytes(2)
		if err != nil {
			return 0, 0, err
		}
		f := int32(flag) - 84
		dx = withSign(flag, 1+((f/12)<<8)+int32(b[0]))
		dy = withSign(flag>>1, 1+(((f%12)>>2)<<8)+int32(b[1]))
		return dx, dy, nil
	case flag < 124:
		b, err := r.readBytes(3)
		if err != nil {
			return 0, 0, err
		}
		dx = withSign(flag, (int32(b[0])<<4)+(int32(b[1])>>4))
		dy = withSign(flag>>1, ((int32(b[1])&0xf)<<8)+int32(b[2]))
		return dx, dy, nil
	default:
		b, err := r.readBytes(4)
		if err != nil {
			return 0, 0, err
		}
		dx = withSign(flag, (int32(b[0])<<8)+int32(b[1]))
		dy = withSign(flag>>1, (int32(b[2])<<8)+int32(b[3]))
		return dx, dy, nil
	}
}

// encodeSimpleGlyph serializes contour end points, on-curve flags and
// absolute x/y coordinates into a plain sfnt simple glyph body (the part
// following the shared 10-byte glyph header).
func encodeSimpleGlyph(contours []uint16, xs, ys []int32, onCurve []bool, instrLen uint16, instr []byte) []byte {
	var b []byte
	endPt := uint16(0)
	endPts := make([]byte, 0, 2*len(contours))
	for _, n := range contours {
		endPt += n
		endPts = append(endPts, encodeU16(endPt-1)...)
	}
	b = append(b, endPts...)
	b = append(b, encodeU16(instrLen)...)
	b = append(b, instr...)

	flags := make([]byte, len(onCurve))
	for i, oc := range onCurve {
		if oc {
			flags[i] = 1
		}
	}
	b = append(b, flags...)

	prev := int32(0)
	for _, x := range xs {
		d := x - prev
		prev = x
		b = append(b, encodeDelta(d)...)
	}
	prev = 0
	for _, y := range ys {
		d := y - prev
		prev = y
		b = append(b, encodeDelta(d)...)
	}
	return b
}

func encodeDelta(d int32) []byte {
	if d >= -32768 && d <= 32767 {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(int16(d)))
		return b
	}
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(d))
	return b
}

// copyCompositeRecord reads one composite glyph's worth of component
// records from compositeR — the WOFF2 composite stream already stores
// these as plain sfnt composite records — stopping after the component
// that clears MORE_COMPONENTS. It reports whether the final component
// requested WE_HAVE_INSTRUCTIONS.
func copyCompositeRecord(r *byteReader) (body []byte, hasInstr bool, err error) {
	const (
		argsAreWords    = 1 << 0
		moreComponents  = 1 << 5
		weHaveInstr     = 1 << 8
		weHaveAScale    = 1 << 3
		weHaveXYScale   = 1 << 6
		weHaveTwoByTwo  = 1 << 7
	)
	for {
		start := r.pos
		flags, err := r.readU16()
		if err != nil {
			return nil, false, err
		}
		if _, err := r.readU16(); err != nil { // glyphIndex
			return nil, false, err
		}
		argBytes := 2
		if flags&argsAreWords != 0 {
			argBytes = 4
		}
		if _, err := r.readBytes(argBytes); err != nil {
			return nil, false, err
		}
		switch {
		case flags&weHaveTwoByTwo != 0:
			if _, err := r.readBytes(8); err != nil {
				return nil, false, err
			}
		case flags&weHaveXYScale != 0:
			if _, err := r.readBytes(4); err != nil {
				return nil, false, err
			}
		case flags&weHaveAScale != 0:
			if _, err := r.readBytes(2); err != nil {
				return nil, false, err
			}
		}
		body = append(body, r.buf[start:r.pos]...)
		if flags&moreComponents == 0 {
			return body, flags&weHaveInstr != 0, nil
		}
	}
}

// assembleGlyfLoca concatenates per-glyph bodies into a 'glyf' table and
// derives the matching 'loca' table in the requested index format (0 =
// Offset16 in half-units, 1 = Offset32).
func assembleGlyfLoca(glyphs [][]byte, indexFormat uint16) (glyf, loca []byte, err error) {
	offsets := make([]uint32, len(glyphs)+1)
	var buf []byte
	for i, g := range glyphs {
		if len(g)%2 != 0 {
			g = append(g, 0)
		}
		buf = append(buf, g...)
		offsets[i+1] = uint32(len(buf))
	}
	if indexFormat == 0 {
		loca = make([]byte, 2*len(offsets))
		for i, o := range offsets {
			binary.BigEndian.PutUint16(loca[2*i:], uint16(o/2))
		}
	} else {
		loca = make([]byte, 4*len(offsets))
		for i, o := range offsets {
			binary.BigEndian.PutUint32(loca[4*i:], o)
		}
	}
	return buf, loca, nil
}
