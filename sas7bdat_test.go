package sas7bdat

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Synthetic file construction.  The fixtures below emit minimal but
// structurally valid 32-bit little-endian files: a 1024 byte header
// followed by 1024 byte pages whose subheaders grow downward from the
// page end, clear of the pointer table and any row region.

const testPageSize = 1024

func putU16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }
func putU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }
func putF64(b []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v))
}

func testFileHeader(pageCount int) []byte {
	b := make([]byte, 1024)
	copy(b, magic)
	b[align1Offset] = 0x22 // 32-bit
	b[align2Offset] = 0x22
	b[endiannessOffset] = 0x01
	b[platformOffset] = '1'
	b[encodingOffset] = 20 // utf-8
	copy(b[datasetOffset:], "PATIENTS")
	copy(b[fileTypeOffset:], "DATA")
	putF64(b, dateCreatedOffset, 0)
	putF64(b, dateModifiedOffset, 86400)
	putU32(b, headerSizeOffset, 1024)
	putU32(b, pageSizeOffset, testPageSize)
	putU32(b, pageCountOffset, uint32(pageCount))
	copy(b[sasReleaseOffset:], "9.0401M2")
	copy(b[serverTypeOffset:], "X64_10PRO")
	copy(b[osNameOffset:], "Linux")
	return b
}

type testPage struct {
	buf  []byte
	nptr int
	tail int
}

func newTestPage(ptype int) *testPage {
	p := &testPage{buf: make([]byte, testPageSize), tail: testPageSize}
	putU16(p.buf, 16, uint16(ptype))
	return p
}

func (p *testPage) setBlockCount(n int) { putU16(p.buf, 18, uint16(n)) }

func (p *testPage) addSubheader(raw []byte, compression, ptype byte) {
	p.tail -= len(raw)
	copy(p.buf[p.tail:], raw)
	base := 24 + p.nptr*12
	putU32(p.buf, base, uint32(p.tail))
	putU32(p.buf, base+4, uint32(len(raw)))
	p.buf[base+8] = compression
	p.buf[base+9] = ptype
	p.nptr++
	putU16(p.buf, 20, uint16(p.nptr))
}

func rowSizeSubheader(rowLength, rowCount, colCount, mixRowCount, lcs, lcp int) []byte {
	b := make([]byte, 400)
	copy(b, "\xF7\xF7\xF7\xF7")
	putU32(b, 20, uint32(rowLength))
	putU32(b, 24, uint32(rowCount))
	putU32(b, 36, uint32(colCount))
	putU32(b, 60, uint32(mixRowCount))
	putU16(b, lcsOffset32, uint16(lcs))
	putU16(b, lcpOffset32, uint16(lcp))
	return b
}

func columnSizeSubheader(n int) []byte {
	b := make([]byte, 12)
	copy(b, "\xF6\xF6\xF6\xF6")
	putU32(b, 4, uint32(n))
	return b
}

func columnTextSubheader(blob []byte) []byte {
	b := make([]byte, 4+len(blob))
	copy(b, "\xFD\xFF\xFF\xFF")
	copy(b[4:], blob)
	return b
}

type nameEntry struct{ off, length int }

func columnNameSubheader(entries []nameEntry) []byte {
	b := make([]byte, 20+8*len(entries))
	copy(b, "\xFF\xFF\xFF\xFF")
	for i, e := range entries {
		putU16(b, 12+8*i+2, uint16(e.off))
		putU16(b, 12+8*i+4, uint16(e.length))
	}
	return b
}

type attrEntry struct {
	offset, width int
	ctype         byte // 1 numeric, 2 character
}

func columnAttrSubheader(entries []attrEntry) []byte {
	b := make([]byte, 20+12*len(entries))
	copy(b, "\xFC\xFF\xFF\xFF")
	for i, e := range entries {
		putU32(b, 12+12*i, uint32(e.offset))
		putU32(b, 16+12*i, uint32(e.width))
		b[22+12*i] = e.ctype
	}
	return b
}

func formatLabelSubheader(fmtOff, fmtLen, lblOff, lblLen int) []byte {
	b := make([]byte, 48)
	copy(b, "\xFE\xFB\xFF\xFF")
	putU16(b, 36, uint16(fmtOff))
	putU16(b, 38, uint16(fmtLen))
	putU16(b, 42, uint16(lblOff))
	putU16(b, 44, uint16(lblLen))
	return b
}

// addSimpleMetadata emits the metadata for a three column table:
// value (numeric, 8 bytes), when (numeric DATE, 8 bytes) and name
// (character, 8 bytes), so rows are 24 bytes wide.
func addSimpleMetadata(pg *testPage, rowLength, rowCount, mixRowCount int) {
	blob := make([]byte, 72)
	copy(blob[28:], "value")
	copy(blob[36:], "when")
	copy(blob[44:], "name")
	copy(blob[52:], "DATE")
	copy(blob[58:], "Visit date")

	pg.addSubheader(rowSizeSubheader(rowLength, rowCount, 3, mixRowCount, 0, 0), 0, 0)
	pg.addSubheader(columnSizeSubheader(3), 0, 0)
	pg.addSubheader(columnTextSubheader(blob), 0, 0)
	pg.addSubheader(columnNameSubheader([]nameEntry{{28, 5}, {36, 4}, {44, 4}}), 0, 0)
	pg.addSubheader(columnAttrSubheader([]attrEntry{
		{0, 8, 1}, {8, 8, 1}, {16, 8, 2},
	}), 0, 0)
	pg.addSubheader(formatLabelSubheader(0, 0, 0, 0), 0, 0)
	pg.addSubheader(formatLabelSubheader(52, 4, 58, 10), 0, 0)
	pg.addSubheader(formatLabelSubheader(0, 0, 0, 0), 0, 0)
}

func writeSimpleRows(buf []byte, base int) {
	putF64(buf, base, 1.5)
	putF64(buf, base+8, 21915) // 2020-01-01
	copy(buf[base+16:], "alpha   ")
	putF64(buf, base+24, math.NaN())
	putF64(buf, base+32, 0) // 1960-01-01
	copy(buf[base+40:], "beta\x00\x00\x00\x00")
}

// simpleTableFile builds a one page file whose mix page carries both
// the metadata subheaders and two rows.
func simpleTableFile(rowCount int) []byte {
	pg := newTestPage(pageMixType1)
	addSimpleMetadata(pg, 24, rowCount, 2)
	// Rows start after the 8 pointer entries: 16+8+8*12 = 120, which
	// is already 8-aligned.
	writeSimpleRows(pg.buf, 120)
	return append(testFileHeader(1), pg.buf...)
}

func openTable(t *testing.T, file []byte) *Table {
	t.Helper()
	tbl, err := Open(bytes.NewReader(file))
	require.NoError(t, err)
	tbl.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	return tbl
}

func readAll(t *testing.T, tbl *Table) []Row {
	t.Helper()
	var all []Row
	rows := tbl.Rows()
	for rows.Next() {
		all = append(all, rows.Row())
	}
	require.NoError(t, rows.Err())
	return all
}

func TestOpenHeader(t *testing.T) {

	tbl := openTable(t, simpleTableFile(2))
	hdr := tbl.Header

	assert.Equal(t, "PATIENTS", hdr.Name)
	assert.Equal(t, "DATA", hdr.FileType)
	assert.Equal(t, "unix", hdr.Platform)
	assert.Equal(t, "utf-8", hdr.Encoding)
	assert.Equal(t, "9.0401M2", hdr.SASRelease)
	assert.Equal(t, "X64_10PRO", hdr.ServerType)
	assert.Equal(t, "Linux", hdr.OSName)
	assert.False(t, hdr.U64)
	assert.Equal(t, binary.ByteOrder(binary.LittleEndian), hdr.ByteOrder)
	assert.Equal(t, 1024, hdr.HeaderSize)
	assert.Equal(t, testPageSize, hdr.PageSize)
	assert.Equal(t, 1, hdr.PageCount)
	assert.Equal(t, "", hdr.Compression)
	assert.Equal(t, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), hdr.DateCreated)
	assert.Equal(t, time.Date(1960, 1, 2, 0, 0, 0, 0, time.UTC), hdr.DateModified)
}

func TestOpenSchema(t *testing.T) {

	tbl := openTable(t, simpleTableFile(2))
	schema := tbl.Schema()
	require.NotNil(t, schema)

	assert.Equal(t, 24, schema.RowLength)
	assert.Equal(t, 2, schema.RowCount)
	assert.Equal(t, "", schema.Compression)

	require.Len(t, schema.Columns, 3)
	assert.Equal(t, Column{Ordinal: 0, Name: "value", Type: NumericColumn, Offset: 0, Width: 8}, schema.Columns[0])
	assert.Equal(t, Column{Ordinal: 1, Name: "when", Format: "DATE", Label: "Visit date",
		Type: NumericColumn, Offset: 8, Width: 8}, schema.Columns[1])
	assert.Equal(t, Column{Ordinal: 2, Name: "name", Type: CharacterColumn, Offset: 16, Width: 8}, schema.Columns[2])
}

func TestReadRows(t *testing.T) {

	tbl := openTable(t, simpleTableFile(2))
	all := readAll(t, tbl)
	require.Len(t, all, 2)

	assert.Equal(t, Number, all[0][0].Kind())
	assert.Equal(t, 1.5, all[0][0].Float64())
	assert.Equal(t, Date, all[0][1].Kind())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), all[0][1].Time())
	assert.Equal(t, "alpha", all[0][2].String())

	assert.True(t, all[1][0].IsMissing())
	assert.Equal(t, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), all[1][1].Time())
	assert.Equal(t, "beta", all[1][2].String())
}

func TestRowCountLimitsIteration(t *testing.T) {

	// Two physical rows on the page, but the declared row count wins.
	tbl := openTable(t, simpleTableFile(1))
	all := readAll(t, tbl)
	require.Len(t, all, 1)
	assert.Equal(t, 1.5, all[0][0].Float64())
}

func TestUnknownSubheaderIgnored(t *testing.T) {

	pg := newTestPage(pageMixType1)
	unknown := make([]byte, 16)
	copy(unknown, "\xDE\xAD\xBE\xEF")
	pg.addSubheader(unknown, 0, 0)
	addSimpleMetadata(pg, 24, 2, 2)
	// 9 pointers end at 16+8+9*12 = 132; rows align up to 136.
	writeSimpleRows(pg.buf, 136)
	file := append(testFileHeader(1), pg.buf...)

	tbl := openTable(t, file)
	all := readAll(t, tbl)
	require.Len(t, all, 2)
	assert.Equal(t, 1.5, all[0][0].Float64())
	assert.Equal(t, "beta", all[1][2].String())
}

func TestDataPageRows(t *testing.T) {

	// Metadata on a meta page, rows on a separate data page.
	pg0 := newTestPage(pageMetaType)
	addSimpleMetadata(pg0, 24, 2, 0)
	pg1 := newTestPage(pageDataType)
	pg1.setBlockCount(2)
	writeSimpleRows(pg1.buf, 24)

	file := append(testFileHeader(2), pg0.buf...)
	file = append(file, pg1.buf...)

	tbl := openTable(t, file)
	all := readAll(t, tbl)
	require.Len(t, all, 2)
	assert.Equal(t, 1.5, all[0][0].Float64())
	assert.Equal(t, "alpha", all[0][2].String())
}

func TestTruncatedFile(t *testing.T) {

	// Three declared pages, only two present.  The declared row count
	// exceeds the stored rows, so iteration reaches the missing page.
	pg0 := newTestPage(pageMetaType)
	addSimpleMetadata(pg0, 24, 10, 0)
	pg1 := newTestPage(pageDataType)
	pg1.setBlockCount(2)
	writeSimpleRows(pg1.buf, 24)

	file := append(testFileHeader(3), pg0.buf...)
	file = append(file, pg1.buf...)

	tbl := openTable(t, file)
	rows := tbl.Rows()
	n := 0
	for rows.Next() {
		n++
	}
	assert.Equal(t, 2, n)
	require.Error(t, rows.Err())
	assert.ErrorIs(t, rows.Err(), ErrTruncatedFile)

	var ferr *FormatError
	require.ErrorAs(t, rows.Err(), &ferr)
	assert.Equal(t, 2, ferr.Page)
}

func TestTruncatedHeader(t *testing.T) {
	_, err := Open(bytes.NewReader(testFileHeader(1)[:100]))
	assert.ErrorIs(t, err, ErrTruncatedFile)
}

func TestBadMagic(t *testing.T) {
	_, err := Open(bytes.NewReader(make([]byte, 1024)))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestUnsupportedAlignment(t *testing.T) {
	file := simpleTableFile(2)
	file[align1Offset] = 0x99
	_, err := Open(bytes.NewReader(file))
	assert.ErrorIs(t, err, ErrUnsupportedBitness)
}

func TestWidthSumMismatch(t *testing.T) {
	// Declared row length disagrees with the summed column widths.
	pg := newTestPage(pageMixType1)
	addSimpleMetadata(pg, 25, 2, 2)
	file := append(testFileHeader(1), pg.buf...)

	_, err := Open(bytes.NewReader(file))
	assert.ErrorIs(t, err, ErrMetadataInconsistent)
}

func TestOpenTwiceDeterministic(t *testing.T) {

	file := simpleTableFile(2)

	f1, err := ReadFrame(openTable(t, file))
	require.NoError(t, err)
	f2, err := ReadFrame(openTable(t, file))
	require.NoError(t, err)

	assert.True(t, f1.AllEqual(f2))
}

// Compressed fixtures.  Rows are stored as subheaders on the meta
// page, each holding an RLE stream that expands to the 24 byte row:
// a numeric column followed by a 16 byte character column.

func rleRowSubheader(x float64, fill byte) []byte {
	b := make([]byte, 0, 11)
	b = append(b, 0x87) // 8 literal bytes
	var f [8]byte
	binary.LittleEndian.PutUint64(f[:], math.Float64bits(x))
	b = append(b, f[:]...)
	b = append(b, 0xCD, fill) // run of 16
	return b
}

func compressedTableFile(row0 []byte) []byte {
	blob := make([]byte, 56)
	copy(blob[12:], CompressionRLE)
	copy(blob[36:], "DATASTEP")
	copy(blob[46:], "x")
	copy(blob[48:], "s")

	pg := newTestPage(pageMetaType)
	pg.addSubheader(rowSizeSubheader(24, 2, 2, 0, 0, 8), 0, 0)
	pg.addSubheader(columnSizeSubheader(2), 0, 0)
	pg.addSubheader(columnTextSubheader(blob), 0, 0)
	pg.addSubheader(columnNameSubheader([]nameEntry{{46, 1}, {48, 1}}), 0, 0)
	pg.addSubheader(columnAttrSubheader([]attrEntry{{0, 8, 1}, {8, 16, 2}}), 0, 0)
	pg.addSubheader(row0, compressedSubheaderID, compressedSubheaderType)
	pg.addSubheader(rleRowSubheader(4.5, 'b'), compressedSubheaderID, compressedSubheaderType)
	return append(testFileHeader(1), pg.buf...)
}

func TestCompressedTable(t *testing.T) {

	tbl := openTable(t, compressedTableFile(rleRowSubheader(3.25, 'a')))

	assert.Equal(t, CompressionRLE, tbl.Header.Compression)
	assert.Equal(t, CompressionRLE, tbl.Schema().Compression)
	assert.Equal(t, "DATASTEP", tbl.Header.CreatorProc)

	all := readAll(t, tbl)
	require.Len(t, all, 2)
	assert.Equal(t, 3.25, all[0][0].Float64())
	assert.Equal(t, "aaaaaaaaaaaaaaaa", all[0][1].String())
	assert.Equal(t, 4.5, all[1][0].Float64())
	assert.Equal(t, "bbbbbbbbbbbbbbbb", all[1][1].String())
}

func TestCorruptCompressedRowStrict(t *testing.T) {

	tbl := openTable(t, compressedTableFile([]byte{0x40, 0x05}))
	rows := tbl.Rows()
	assert.False(t, rows.Next())
	assert.ErrorIs(t, rows.Err(), ErrDecompressionLengthMismatch)
}

func TestCorruptCompressedRowLenient(t *testing.T) {

	tbl := openTable(t, compressedTableFile([]byte{0x40, 0x05}))
	tbl.Lenient = true

	all := readAll(t, tbl)
	require.Len(t, all, 1)
	assert.Equal(t, 4.5, all[0][0].Float64())
}

// 64-bit big-endian fixtures.  The header tail shifts by both
// alignment values, the page bit offset grows to 32, pointer entries
// to 24 bytes, and the row-size fields to 8-byte words.

func putBU16(b []byte, off int, v uint16) { binary.BigEndian.PutUint16(b[off:], v) }
func putBU32(b []byte, off int, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }
func putBU64(b []byte, off int, v uint64) { binary.BigEndian.PutUint64(b[off:], v) }
func putBF64(b []byte, off int, v float64) {
	binary.BigEndian.PutUint64(b[off:], math.Float64bits(v))
}

const u64PageSize = 2048

func u64FileHeader(pageCount int) []byte {
	b := make([]byte, 1024)
	copy(b, magic)
	b[align1Offset] = alignValue // 64-bit, shifts the page count width
	b[align2Offset] = alignValue // shifts the header tail
	b[endiannessOffset] = 0x00   // big endian
	b[platformOffset] = '1'
	b[encodingOffset] = 20
	copy(b[datasetOffset:], "PATIENTS")
	copy(b[fileTypeOffset:], "DATA")
	putBF64(b, dateCreatedOffset+4, 0)
	putBF64(b, dateModifiedOffset+4, 86400)
	putBU32(b, headerSizeOffset+4, 1024)
	putBU32(b, pageSizeOffset+4, u64PageSize)
	putBU64(b, pageCountOffset+4, uint64(pageCount))
	copy(b[sasReleaseOffset+8:], "9.0401M2")
	return b
}

func newU64TestPage(ptype int) *testPage {
	p := &testPage{buf: make([]byte, u64PageSize), tail: u64PageSize}
	putBU16(p.buf, 32, uint16(ptype))
	return p
}

func (p *testPage) addSubheader64(raw []byte, compression, ptype byte) {
	p.tail -= len(raw)
	copy(p.buf[p.tail:], raw)
	base := 40 + p.nptr*24
	putBU64(p.buf, base, uint64(p.tail))
	putBU64(p.buf, base+8, uint64(len(raw)))
	p.buf[base+16] = compression
	p.buf[base+17] = ptype
	p.nptr++
	putBU16(p.buf, 36, uint16(p.nptr))
}

func rowSizeSubheader64(rowLength, rowCount, colCount, mixRowCount int) []byte {
	b := make([]byte, 720)
	copy(b, "\x00\x00\x00\x00\xF7\xF7\xF7\xF7")
	putBU64(b, 40, uint64(rowLength))
	putBU64(b, 48, uint64(rowCount))
	putBU64(b, 72, uint64(colCount))
	putBU64(b, 120, uint64(mixRowCount))
	return b
}

func columnSizeSubheader64(n int) []byte {
	b := make([]byte, 24)
	copy(b, "\x00\x00\x00\x00\xF6\xF6\xF6\xF6")
	putBU64(b, 8, uint64(n))
	return b
}

func columnTextSubheader64(blob []byte) []byte {
	b := make([]byte, 8+len(blob))
	copy(b, "\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFD")
	copy(b[8:], blob)
	return b
}

func columnNameSubheader64(entries []nameEntry) []byte {
	b := make([]byte, 28+8*len(entries))
	copy(b, "\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFF")
	for i, e := range entries {
		putBU16(b, 16+8*i+2, uint16(e.off))
		putBU16(b, 16+8*i+4, uint16(e.length))
	}
	return b
}

func columnAttrSubheader64(entries []attrEntry) []byte {
	b := make([]byte, 28+16*len(entries))
	copy(b, "\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFC")
	for i, e := range entries {
		putBU64(b, 16+16*i, uint64(e.offset))
		putBU32(b, 24+16*i, uint32(e.width))
		b[30+16*i] = e.ctype
	}
	return b
}

func formatLabelSubheader64(fmtOff, fmtLen, lblOff, lblLen int) []byte {
	b := make([]byte, 64)
	copy(b, "\xFF\xFF\xFF\xFF\xFF\xFF\xFB\xFE")
	putBU16(b, 48, uint16(fmtOff))
	putBU16(b, 50, uint16(fmtLen))
	putBU16(b, 54, uint16(lblOff))
	putBU16(b, 56, uint16(lblLen))
	return b
}

// u64TableFile builds the same three column, two row table as
// simpleTableFile, as a 64-bit big-endian file.
func u64TableFile() []byte {
	blob := make([]byte, 72)
	copy(blob[28:], "value")
	copy(blob[36:], "when")
	copy(blob[44:], "name")
	copy(blob[52:], "DATE")
	copy(blob[58:], "Visit date")

	pg := newU64TestPage(pageMixType1)
	pg.addSubheader64(rowSizeSubheader64(24, 2, 3, 2), 0, 0)
	pg.addSubheader64(columnSizeSubheader64(3), 0, 0)
	pg.addSubheader64(columnTextSubheader64(blob), 0, 0)
	pg.addSubheader64(columnNameSubheader64([]nameEntry{{28, 5}, {36, 4}, {44, 4}}), 0, 0)
	pg.addSubheader64(columnAttrSubheader64([]attrEntry{
		{0, 8, 1}, {8, 8, 1}, {16, 8, 2},
	}), 0, 0)
	pg.addSubheader64(formatLabelSubheader64(0, 0, 0, 0), 0, 0)
	pg.addSubheader64(formatLabelSubheader64(52, 4, 58, 10), 0, 0)
	pg.addSubheader64(formatLabelSubheader64(0, 0, 0, 0), 0, 0)

	// Rows start after the 8 pointer entries: 32+8+8*24 = 232,
	// already 8-aligned.
	base := 232
	putBF64(pg.buf, base, 1.5)
	putBF64(pg.buf, base+8, 21915)
	copy(pg.buf[base+16:], "alpha   ")
	putBF64(pg.buf, base+24, math.NaN())
	putBF64(pg.buf, base+32, 0)
	copy(pg.buf[base+40:], "beta\x00\x00\x00\x00")

	return append(u64FileHeader(1), pg.buf...)
}

func TestOpen64BitBigEndian(t *testing.T) {

	tbl := openTable(t, u64TableFile())
	hdr := tbl.Header

	assert.True(t, hdr.U64)
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), hdr.ByteOrder)
	assert.Equal(t, "PATIENTS", hdr.Name)
	assert.Equal(t, "9.0401M2", hdr.SASRelease)
	assert.Equal(t, u64PageSize, hdr.PageSize)
	assert.Equal(t, 1, hdr.PageCount)
	assert.Equal(t, time.Date(1960, 1, 2, 0, 0, 0, 0, time.UTC), hdr.DateModified)

	schema := tbl.Schema()
	assert.Equal(t, 24, schema.RowLength)
	assert.Equal(t, 2, schema.RowCount)
	require.Len(t, schema.Columns, 3)
	assert.Equal(t, Column{Ordinal: 0, Name: "value", Type: NumericColumn, Offset: 0, Width: 8}, schema.Columns[0])
	assert.Equal(t, Column{Ordinal: 1, Name: "when", Format: "DATE", Label: "Visit date",
		Type: NumericColumn, Offset: 8, Width: 8}, schema.Columns[1])
	assert.Equal(t, Column{Ordinal: 2, Name: "name", Type: CharacterColumn, Offset: 16, Width: 8}, schema.Columns[2])
}

func TestRead64BitBigEndianRows(t *testing.T) {

	tbl := openTable(t, u64TableFile())
	all := readAll(t, tbl)
	require.Len(t, all, 2)

	assert.Equal(t, 1.5, all[0][0].Float64())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), all[0][1].Time())
	assert.Equal(t, "alpha", all[0][2].String())
	assert.True(t, all[1][0].IsMissing())
	assert.Equal(t, "beta", all[1][2].String())
}

func TestSubheaderPointerOverflow(t *testing.T) {

	// An 8-byte pointer whose offset and length sum past the int
	// range must be rejected, not sliced.
	pg := newU64TestPage(pageMetaType)
	putBU64(pg.buf, 40, 1<<62)
	putBU64(pg.buf, 48, 1<<62)
	putBU16(pg.buf, 36, 1)
	file := append(u64FileHeader(1), pg.buf...)

	_, err := Open(bytes.NewReader(file))
	assert.ErrorIs(t, err, ErrSubheaderOutOfBounds)
}

func TestCorruptCompressedRowLenientNilLog(t *testing.T) {

	tbl, err := Open(bytes.NewReader(compressedTableFile([]byte{0x40, 0x05})))
	require.NoError(t, err)
	tbl.Lenient = true
	tbl.Log = nil

	all := readAll(t, tbl)
	require.Len(t, all, 1)
	assert.Equal(t, 4.5, all[0][0].Float64())
}

func TestWriteMetadata(t *testing.T) {

	tbl := openTable(t, simpleTableFile(2))
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteMetadata(&buf))

	out := buf.String()
	assert.Contains(t, out, "dataset: PATIENTS")
	assert.Contains(t, out, "row count: 2")
	assert.Contains(t, out, "value")
	assert.Contains(t, out, "Visit date")
	assert.Contains(t, out, "character")
}
