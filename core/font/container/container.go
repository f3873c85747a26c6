/*
Package container detects and decodes the binary font container formats
accepted by the registry: bare OpenType/TrueType (OTF/TTF), TrueType
Collections (TTC), and the two web container formats WOFF1 and WOFF2.

Detection is by magic bytes at offset 0, never by file extension — bytes
buffers supplied directly by a caller never went through a directory walk
and so never had an extension to begin with.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/npillmayer/fontkit/core/font/ferrors"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("fontkit.container")
}

// Format identifies a detected container format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatOpenType
	FormatCollection
	FormatWOFF1
	FormatWOFF2
)

// rawTable is a tag/bytes pair ready for sfnt table-directory assembly.
type rawTable struct {
	tag  uint32
	data []byte
}

// Logical is one logical font extracted from a container: Bytes holds a
// self-contained (or, for a TTC member, collection-shared) sfnt byte
// buffer, and Index is its position within that buffer's collection (0 for
// non-collection containers and for singleton containers reconstructed
// from WOFF/WOFF2).
type Logical struct {
	Bytes []byte
	Index int
}

// Detect inspects the magic bytes at the start of buf and returns the
// container format, or FormatUnknown if nothing matches.
func Detect(buf []byte) Format {
	if len(buf) < 4 {
		return FormatUnknown
	}
	switch string(buf[:4]) {
	case "OTTO", "true", "typ1":
		return FormatOpenType
	case "\x00\x01\x00\x00":
		return FormatOpenType
	case "ttcf":
		return FormatCollection
	case "wOFF":
		return FormatWOFF1
	case "wOF2":
		return FormatWOFF2
	}
	return FormatUnknown
}

// Decode inspects buf's magic and produces one Logical font per logical
// font found inside the container. OTF/TTF yield exactly one Logical (a
// pass-through of buf); a TTC yields one Logical per offset in its header,
// all sharing buf; WOFF1/WOFF2 are decompressed into a single reconstructed
// sfnt buffer. A WOFF2 collection is not split into its members: it also
// yields one buffer, holding every table of the collection.
func Decode(buf []byte) ([]Logical, error) {
	switch Detect(buf) {
	case FormatOpenType:
		return []Logical{{Bytes: buf, Index: 0}}, nil
	case FormatCollection:
		return decodeCollection(buf)
	case FormatWOFF1:
		sfnt, err := decodeWOFF1(buf)
		if err != nil {
			return nil, err
		}
		return []Logical{{Bytes: sfnt, Index: 0}}, nil
	case FormatWOFF2:
		sfnts, err := decodeWOFF2(buf)
		if err != nil {
			return nil, err
		}
		out := make([]Logical, len(sfnts))
		for i, s := range sfnts {
			out[i] = Logical{Bytes: s, Index: i}
		}
		return out, nil
	default:
		var magic [4]byte
		copy(magic[:], buf)
		return nil, &ferrors.UnsupportedContainer{Magic: magic}
	}
}

// --- TrueType Collection ---------------------------------------------------

func decodeCollection(buf []byte) ([]Logical, error) {
	if len(buf) < 16 {
		return nil, &ferrors.CorruptContainer{Reason: "ttc header truncated"}
	}
	numFonts := int(binary.BigEndian.Uint32(buf[8:12]))
	if numFonts <= 0 || 12+4*numFonts > len(buf) {
		return nil, &ferrors.CorruptContainer{Reason: "ttc directory truncated"}
	}
	out := make([]Logical, numFonts)
	for i := 0; i < numFonts; i++ {
		off := 12 + 4*i
		offset := binary.BigEndian.Uint32(buf[off : off+4])
		if int(offset) >= len(buf) {
			return nil, &ferrors.CorruptContainer{Reason: "ttc offset out of range"}
		}
		out[i] = Logical{Bytes: buf, Index: i}
	}
	return out, nil
}

// --- WOFF1 ------------------------------------------------------------------

type woff1Header struct {
	Signature     uint32
	Flavor        uint32
	Length        uint32
	NumTables     uint16
	Reserved      uint16
	TotalSfntSize uint32
	MajorVersion  uint16
	MinorVersion  uint16
	MetaOffset    uint32
	MetaLength    uint32
	MetaOrigLen   uint32
	PrivOffset    uint32
	PrivLength    uint32
}

type woff1TableEntry struct {
	Tag           uint32
	Offset        uint32
	CompLength    uint32
	OrigLength    uint32
	OrigChecksum  uint32
}

// decodeWOFF1 decompresses a WOFF1 container into a freshly built sfnt
// buffer (table directory + zlib-inflated tables).
func decodeWOFF1(buf []byte) ([]byte, error) {
	r := bytes.NewReader(buf)
	var hdr woff1Header
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, &ferrors.CorruptContainer{Reason: "woff1 header: " + err.Error()}
	}
	entries := make([]woff1TableEntry, hdr.NumTables)
	for i := range entries {
		if err := binary.Read(r, binary.BigEndian, &entries[i]); err != nil {
			return nil, &ferrors.CorruptContainer{Reason: "woff1 table directory: " + err.Error()}
		}
	}

	tables := make([]rawTable, hdr.NumTables)
	for i, e := range entries {
		if uint64(e.Offset)+uint64(e.CompLength) > uint64(len(buf)) {
			return nil, &ferrors.CorruptContainer{Reason: "woff1 table offset out of range"}
		}
		raw := buf[e.Offset : e.Offset+e.CompLength]
		var data []byte
		if e.CompLength == e.OrigLength {
			data = raw
		} else {
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, &ferrors.CorruptContainer{Reason: "woff1 zlib: " + err.Error()}
			}
			data = make([]byte, 0, e.OrigLength)
			buf2 := &bytes.Buffer{}
			if _, err := io.Copy(buf2, zr); err != nil {
				return nil, &ferrors.CorruptContainer{Reason: "woff1 inflate: " + err.Error()}
			}
			data = buf2.Bytes()
			if uint32(len(data)) != e.OrigLength {
				return nil, &ferrors.CorruptContainer{Reason: "woff1 inflated length mismatch"}
			}
		}
		tables[i] = rawTable{tag: e.Tag, data: data}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })

	return buildSfnt(hdr.Flavor, tables)
}

// --- WOFF2 -------------------------------------------------------------------

// knownTags is the WOFF2 fixed table-tag dictionary (§5 of the WOFF2
// spec): a table directory entry whose flags byte encodes index 0..62
// refers to one of these by position instead of spelling out the tag.
var knownTags = []string{
	"cmap", "head", "hhea", "hmtx", "maxp", "name", "OS/2", "post", "cvt ",
	"fpgm", "glyf", "loca", "prep", "CFF ", "VORG", "EBDT", "EBLC", "gasp",
	"hdmx", "kern", "LTSH", "PCLT", "VDMX", "vhea", "vmtx", "BASE", "GDEF",
	"GPOS", "GSUB", "EBSC", "JSTF", "MATH", "CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar", "bdat", "bloc", "bsln", "cvar", "fdsc",
	"feat", "fmtx", "fvar", "gvar", "hsty", "just", "lcar", "mort", "morx",
	"opbd", "prop", "trak", "Zapf", "Silf", "Glat", "Gloc", "Feat", "Sill",
}

type woff2TableEntry struct {
	tag              string
	origLength       uint32
	transformVersion uint8
	transformLength  uint32
	hasTransform     bool
}

// decodeWOFF2 decompresses a WOFF2 container, returning one reconstructed
// sfnt buffer. For a collection the buffer holds every table of the
// collection under the 'ttcf' flavor; members are not separated.
func decodeWOFF2(buf []byte) ([][]byte, error) {
	if len(buf) < 48 {
		return nil, &ferrors.CorruptContainer{Reason: "woff2 header truncated"}
	}
	flavor := binary.BigEndian.Uint32(buf[4:8])
	totalCompressedSize := binary.BigEndian.Uint32(buf[20:24])
	numTables := binary.BigEndian.Uint16(buf[12:14])

	br := &byteReader{buf: buf, pos: 48}

	isCollection := flavor == 0x74746366 // 'ttcf'
	var fontFlavors []uint32
	var fontTableIndices [][]int

	entries := make([]woff2TableEntry, 0, numTables)
	for i := 0; i < int(numTables); i++ {
		flagsByte, err := br.readU8()
		if err != nil {
			return nil, &ferrors.CorruptContainer{Reason: "woff2 table flags: " + err.Error()}
		}
		tagIndex := flagsByte & 0x3f
		transformVersion := (flagsByte >> 6) & 0x3
		var tag string
		if tagIndex == 0x3f {
			raw, err := br.readBytes(4)
			if err != nil {
				return nil, &ferrors.CorruptContainer{Reason: "woff2 arbitrary tag: " + err.Error()}
			}
			tag = string(raw)
		} else if int(tagIndex) < len(knownTags) {
			tag = knownTags[tagIndex]
		} else {
			return nil, &ferrors.CorruptContainer{Reason: "woff2 unknown table index"}
		}
		origLength, err := br.readUintBase128()
		if err != nil {
			return nil, &ferrors.CorruptContainer{Reason: "woff2 origLength: " + err.Error()}
		}
		e := woff2TableEntry{tag: tag, origLength: origLength, transformVersion: transformVersion}
		// transform applies to glyf/loca (version 0 means "transformed"),
		// and to any other table when transformVersion != 0.
		transformed := (tag == "glyf" || tag == "loca") && transformVersion == 0
		transformed = transformed || (tag != "glyf" && tag != "loca" && transformVersion != 0)
		if transformed {
			tl, err := br.readUintBase128()
			if err != nil {
				return nil, &ferrors.CorruptContainer{Reason: "woff2 transformLength: " + err.Error()}
			}
			e.transformLength = tl
			e.hasTransform = true
		}
		entries = append(entries, e)
	}

	numFonts := 1
	if isCollection {
		// Collection font directory: numFonts (255UInt16), then per font
		// numTables, a flavor and a table-index list. It is read past here
		// but not used to split members: every table is reassembled into
		// the single buffer built below.
		n, err := read255UInt16(br)
		if err != nil {
			return nil, &ferrors.CorruptContainer{Reason: "woff2 collection count: " + err.Error()}
		}
		numFonts = int(n)
		fontFlavors = make([]uint32, numFonts)
		fontTableIndices = make([][]int, numFonts)
		for f := 0; f < numFonts; f++ {
			nt, err := br.readU8()
			if err != nil {
				return nil, &ferrors.CorruptContainer{Reason: "woff2 collection entry: " + err.Error()}
			}
			flav, err := br.readBytes(4)
			if err != nil {
				return nil, err
			}
			fontFlavors[f] = binary.BigEndian.Uint32(flav)
			idx := make([]int, nt)
			for t := 0; t < int(nt); t++ {
				ti, err := br.readU8()
				if err != nil {
					return nil, err
				}
				idx[t] = int(ti)
			}
			fontTableIndices[f] = idx
		}
	}

	compressed := buf[br.pos:]
	if uint32(len(compressed)) < totalCompressedSize {
		return nil, &ferrors.CorruptContainer{Reason: "woff2 compressed stream truncated"}
	}
	compressed = compressed[:totalCompressedSize]

	decomp, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return nil, &ferrors.CorruptContainer{Reason: "woff2 brotli: " + err.Error()}
	}

	// Slice the decompressed stream into per-table payloads, in directory
	// order, reconstructing glyf/loca where transformed.
	tables := make([]rawTable, 0, len(entries))
	pos := 0
	var glyfTransformed, locaOrig []byte
	var headForLoca []byte
	for _, e := range entries {
		n := e.origLength
		if e.hasTransform {
			n = e.transformLength
		}
		if pos+int(n) > len(decomp) {
			return nil, &ferrors.CorruptContainer{Reason: "woff2 table stream truncated"}
		}
		payload := decomp[pos : pos+int(n)]
		pos += int(n)

		switch {
		case e.tag == "glyf" && e.hasTransform:
			glyfTransformed = payload
		case e.tag == "loca" && e.hasTransform:
			locaOrig = payload // placeholder; loca is rebuilt from glyf transform
		case e.tag == "head":
			headForLoca = payload
			tables = append(tables, rawTable{tag: tagToUint32(e.tag), data: payload})
		default:
			tables = append(tables, rawTable{tag: tagToUint32(e.tag), data: payload})
		}
	}

	if glyfTransformed != nil {
		glyfOut, locaOut, err := reconstructTransformedGlyf(glyfTransformed, headForLoca)
		if err != nil {
			tracer().Errorf("woff2 glyf reconstruction failed, falling back to raw: %v", err)
			if locaOrig != nil {
				tables = append(tables, rawTable{tag: tagToUint32("glyf"), data: glyfTransformed})
				tables = append(tables, rawTable{tag: tagToUint32("loca"), data: locaOrig})
			}
		} else {
			tables = append(tables, rawTable{tag: tagToUint32("glyf"), data: glyfOut})
			tables = append(tables, rawTable{tag: tagToUint32("loca"), data: locaOut})
		}
	}

	sort.Slice(tables, func(i, j int) bool { return tables[i].tag < tables[j].tag })
	sfnt, err := buildSfnt(flavor, tables)
	if err != nil {
		return nil, err
	}
	return [][]byte{sfnt}, nil
}

func tagToUint32(tag string) uint32 {
	var b [4]byte
	copy(b[:], tag)
	return binary.BigEndian.Uint32(b[:])
}

// --- sfnt reconstruction -----------------------------------------------------

// buildSfnt assembles a standard sfnt binary (OffsetTable + TableDirectory
// + table data) from a flavor (sfnt version) and an already tag-sorted set
// of tables. Checksums are computed per-table; the head table's
// checkSumAdjustment is left as provided by the source (recomputing it
// requires a second pass over the fully assembled file, which downstream
// parsers in this module do not rely on).
func buildSfnt(flavor uint32, tables []rawTable) ([]byte, error) {
	numTables := len(tables)
	if numTables == 0 {
		return nil, &ferrors.CorruptContainer{Reason: "no tables to reconstruct"}
	}
	searchRange, entrySelector, rangeShift := sfntSearchParams(numTables)

	headerSize := 12 + 16*numTables
	var buf bytes.Buffer
	buf.Grow(headerSize)

	writeU32(&buf, flavor)
	writeU16(&buf, uint16(numTables))
	writeU16(&buf, searchRange)
	writeU16(&buf, entrySelector)
	writeU16(&buf, rangeShift)

	offset := uint32(headerSize)
	type placed struct {
		tag    uint32
		offset uint32
		length uint32
		data   []byte
	}
	placedTables := make([]placed, numTables)
	for i, t := range tables {
		placedTables[i] = placed{tag: t.tag, offset: offset, length: uint32(len(t.data)), data: t.data}
		offset += align4(uint32(len(t.data)))
	}
	for _, p := range placedTables {
		writeU32(&buf, p.tag)
		writeU32(&buf, checksum(p.data))
		writeU32(&buf, p.offset)
		writeU32(&buf, p.length)
	}
	for _, p := range placedTables {
		buf.Write(p.data)
		if pad := align4(p.length) - p.length; pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}
	return buf.Bytes(), nil
}

func sfntSearchParams(numTables int) (searchRange, entrySelector, rangeShift uint16) {
	entries := 1
	sel := 0
	for entries*2 <= numTables {
		entries *= 2
		sel++
	}
	searchRange = uint16(entries * 16)
	entrySelector = uint16(sel)
	rangeShift = uint16(numTables*16) - searchRange
	return
}

func align4(n uint32) uint32 { return (n + 3) &^ 3 }

func checksum(data []byte) uint32 {
	var sum uint32
	padded := data
	if r := len(padded) % 4; r != 0 {
		padded = append(append([]byte{}, padded...), make([]byte, 4-r)...)
	}
	for i := 0; i+4 <= len(padded); i += 4 {
		sum += binary.BigEndian.Uint32(padded[i : i+4])
	}
	return sum
}

func writeU16(buf *bytes.Buffer, v uint16) { _ = binary.Write(buf, binary.BigEndian, v) }
func writeU32(buf *bytes.Buffer, v uint32) { _ = binary.Write(buf, binary.BigEndian, v) }
