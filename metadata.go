package sas7bdat

import (
	"encoding/binary"
	"log/slog"
)

// ColumnType is the declared type of a table column.
type ColumnType uint8

const (
	NumericColumn ColumnType = iota
	CharacterColumn
)

func (t ColumnType) String() string {
	if t == NumericColumn {
		return "numeric"
	}
	return "character"
}

// A Column describes one column of the table.
type Column struct {
	// Position of the column, starting at 0.
	Ordinal int

	// The column name.
	Name string

	// The SAS format attached to the column, e.g. "DATE" or
	// "MMDDYY", possibly empty.
	Format string

	// The column label, possibly empty.
	Label string

	// The declared type.
	Type ColumnType

	// Byte range of the column within a row.
	Offset, Width int
}

// A Schema is the finalized, ordered column layout of a table.  It is
// immutable and shared read-only once built.
type Schema struct {
	Columns []Column

	// Length of one uncompressed row in bytes.  The column widths
	// sum to this value.
	RowLength int

	// Declared number of rows in the table.
	RowCount int

	// Compression literal constant across all data pages ("",
	// CompressionRLE or CompressionRDC).
	Compression string
}

// Offsets within the row-size subheader that are not multiples of the
// word size.
const (
	lcsOffset32 = 354
	lcsOffset64 = 682
	lcpOffset32 = 378
	lcpOffset64 = 706
)

// textRef is an unresolved reference into a column-text blob.  Name,
// format and label subheaders may arrive before the text subheader
// they point into, so references are accumulated raw and resolved in
// one pass at metadata closure.
type textRef struct {
	blob   int
	offset int
	length int
}

type columnAttr struct {
	offset int
	width  int
	ctype  ColumnType
}

// metadataBuilder accumulates subheader payloads across metadata
// pages and produces the Schema once metadata is closed.  The schema
// is only constructible through finalize.
type metadataBuilder struct {
	lay layout
	u64 bool
	log *slog.Logger

	rowLength   int
	rowCount    int
	colCountP1  int
	colCountP2  int
	mixRowCount int
	lcs, lcp    int
	columnCount int

	haveRowSize    bool
	haveColumnSize bool

	textBlobs   [][]byte
	nameRefs    []textRef
	attrs       []columnAttr
	formatRefs  []textRef
	labelRefs   []textRef
	compression string
	creator     string
	creatorProc string
}

func newMetadataBuilder(lay layout, log *slog.Logger) *metadataBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &metadataBuilder{lay: lay, u64: lay.intLen == 8, log: log}
}

// consume routes one subheader payload to its parser.  raw aliases
// the page buffer and is only valid for the duration of the call.
func (mb *metadataBuilder) consume(kind subheaderKind, raw []byte, order binary.ByteOrder, pageIdx int) error {

	cur := cursor{buf: raw, order: order, intLen: mb.lay.intLen}

	switch kind {
	case subheaderRowSize:
		return mb.consumeRowSize(&cur, pageIdx)
	case subheaderColumnSize:
		return mb.consumeColumnSize(&cur, pageIdx)
	case subheaderColumnText:
		return mb.consumeColumnText(&cur, pageIdx)
	case subheaderColumnName:
		return mb.consumeColumnName(&cur, pageIdx)
	case subheaderColumnAttrs:
		return mb.consumeColumnAttrs(&cur, pageIdx)
	case subheaderFormatLabel:
		return mb.consumeFormatLabel(&cur, pageIdx)
	case subheaderCounts, subheaderColumnList, subheaderUnknown:
		// Not needed for decoding.
		return nil
	}
	return nil
}

func (mb *metadataBuilder) consumeRowSize(cur *cursor, pageIdx int) error {

	intLen := mb.lay.intLen
	lcsOffset, lcpOffset := lcsOffset32, lcpOffset32
	if mb.u64 {
		lcsOffset, lcpOffset = lcsOffset64, lcpOffset64
	}

	fields := []struct {
		dst    *int
		offset int
		width  int
	}{
		{&mb.rowLength, 5 * intLen, intLen},
		{&mb.rowCount, 6 * intLen, intLen},
		{&mb.colCountP1, 9 * intLen, intLen},
		{&mb.colCountP2, 10 * intLen, intLen},
		{&mb.mixRowCount, 15 * intLen, intLen},
		{&mb.lcs, lcsOffset, 2},
		{&mb.lcp, lcpOffset, 2},
	}
	for _, f := range fields {
		x, err := cur.intAt(f.offset, f.width)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "row size", "%v", err)
		}
		*f.dst = x
	}
	mb.haveRowSize = true

	return nil
}

func (mb *metadataBuilder) consumeColumnSize(cur *cursor, pageIdx int) error {

	x, err := cur.wordAt(mb.lay.intLen)
	if err != nil {
		return formatError(ErrSubheaderOutOfBounds, pageIdx, "column size", "%v", err)
	}
	mb.columnCount = x
	mb.haveColumnSize = true

	if mb.haveRowSize && mb.colCountP1+mb.colCountP2 != mb.columnCount {
		mb.log.Warn("column count mismatch",
			"colCountP1", mb.colCountP1, "colCountP2", mb.colCountP2, "columnCount", mb.columnCount)
	}

	return nil
}

func (mb *metadataBuilder) consumeColumnText(cur *cursor, pageIdx int) error {

	intLen := mb.lay.intLen
	if len(cur.buf) < intLen {
		return formatError(ErrSubheaderOutOfBounds, pageIdx, "column text", "%d byte payload", len(cur.buf))
	}

	// The page buffer is reused; text blobs must survive it.
	blob := make([]byte, len(cur.buf)-intLen)
	copy(blob, cur.buf[intLen:])
	mb.textBlobs = append(mb.textBlobs, blob)

	if len(mb.textBlobs) > 1 {
		return nil
	}

	// The first text subheader carries the compression literal and
	// the creator proc name.
	litOffset := 16
	if mb.u64 {
		litOffset = 20
	}
	var literal string
	if b, err := cur.bytesAt(litOffset, 8); err == nil {
		literal = trimPadding(b)
	}

	switch {
	case literal == "":
		mb.creatorProc = mb.rawString(cur, litOffset+16, mb.lcp)
	case literal == CompressionRLE:
		mb.compression = CompressionRLE
		mb.creatorProc = mb.rawString(cur, litOffset+24, mb.lcp)
	case literal == CompressionRDC:
		mb.compression = CompressionRDC
	case mb.lcs > 0:
		// Not a compression literal at all: the field holds the
		// creator software name.
		mb.lcp = 0
		mb.creator = mb.rawString(cur, litOffset, mb.lcs)
	default:
		return formatError(ErrUnsupportedCompression, pageIdx, "column text",
			"compression literal %q", literal)
	}

	return nil
}

func (mb *metadataBuilder) rawString(cur *cursor, offset, length int) string {
	b, err := cur.bytesAt(offset, length)
	if err != nil {
		return ""
	}
	return trimPadding(b)
}

func (mb *metadataBuilder) consumeColumnName(cur *cursor, pageIdx int) error {

	intLen := mb.lay.intLen
	count := (len(cur.buf) - 2*intLen - 12) / 8
	for i := 0; i < count; i++ {
		base := intLen + 8*(i+1)
		idx, err := cur.intAt(base, 2)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column name", "entry %d", i)
		}
		offset, err := cur.intAt(base+2, 2)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column name", "entry %d", i)
		}
		length, err := cur.intAt(base+4, 2)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column name", "entry %d", i)
		}
		mb.nameRefs = append(mb.nameRefs, textRef{blob: idx, offset: offset, length: length})
	}

	return nil
}

func (mb *metadataBuilder) consumeColumnAttrs(cur *cursor, pageIdx int) error {

	intLen := mb.lay.intLen
	stride := intLen + 8
	count := (len(cur.buf) - 2*intLen - 12) / stride
	for i := 0; i < count; i++ {
		offset, err := cur.intAt(intLen+8+i*stride, intLen)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column attributes", "entry %d", i)
		}
		width, err := cur.intAt(2*intLen+8+i*stride, 4)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column attributes", "entry %d", i)
		}
		ctype, err := cur.intAt(2*intLen+14+i*stride, 1)
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column attributes", "entry %d", i)
		}

		attr := columnAttr{offset: offset, width: width}
		switch ctype {
		case 1:
			attr.ctype = NumericColumn
		case 2:
			attr.ctype = CharacterColumn
		default:
			return formatError(ErrMetadataInconsistent, pageIdx, "column attributes",
				"column type code %d for column %d", ctype, len(mb.attrs))
		}
		mb.attrs = append(mb.attrs, attr)
	}

	return nil
}

func (mb *metadataBuilder) consumeFormatLabel(cur *cursor, pageIdx int) error {

	base := 3 * mb.lay.intLen

	read := func(offset int) (int, error) {
		return cur.intAt(base+offset, 2)
	}

	fmtIdx, err1 := read(22)
	fmtOffset, err2 := read(24)
	fmtLen, err3 := read(26)
	lblIdx, err4 := read(28)
	lblOffset, err5 := read(30)
	lblLen, err6 := read(32)
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return formatError(ErrSubheaderOutOfBounds, pageIdx, "column format/label", "%v", err)
		}
	}

	mb.formatRefs = append(mb.formatRefs, textRef{blob: fmtIdx, offset: fmtOffset, length: fmtLen})
	mb.labelRefs = append(mb.labelRefs, textRef{blob: lblIdx, offset: lblOffset, length: lblLen})

	return nil
}

// resolve maps a text reference to its string.  Some files store an
// out-of-range blob index where they mean the last blob, so the index
// is clamped; offsets are checked strictly.
func (mb *metadataBuilder) resolve(ref textRef) (string, error) {

	if len(mb.textBlobs) == 0 {
		return "", formatError(ErrMetadataInconsistent, -1, "", "text reference with no text subheaders")
	}
	idx := ref.blob
	if idx < 0 {
		idx = 0
	}
	if idx >= len(mb.textBlobs) {
		idx = len(mb.textBlobs) - 1
	}
	blob := mb.textBlobs[idx]
	if ref.offset < 0 || ref.length < 0 || ref.offset+ref.length > len(blob) {
		return "", formatError(ErrMetadataInconsistent, -1, "",
			"text reference [%d:%d] outside a %d byte text block",
			ref.offset, ref.offset+ref.length, len(blob))
	}
	return trimPadding(blob[ref.offset : ref.offset+ref.length]), nil
}

// finalize resolves all pending text references and produces the
// schema.  It must only be called once the first data-bearing page
// has been seen (or the pages are exhausted): reading fewer than all
// metadata pages first is an invariant violation.
func (mb *metadataBuilder) finalize() (*Schema, error) {

	if !mb.haveRowSize {
		return nil, formatError(ErrMetadataInconsistent, -1, "", "no row size subheader found")
	}
	if !mb.haveColumnSize {
		return nil, formatError(ErrMetadataInconsistent, -1, "", "no column size subheader found")
	}
	if mb.columnCount <= 0 {
		return nil, formatError(ErrMetadataInconsistent, -1, "", "column count %d", mb.columnCount)
	}
	if len(mb.attrs) != mb.columnCount {
		return nil, formatError(ErrMetadataInconsistent, -1, "",
			"%d column attribute entries for %d columns", len(mb.attrs), mb.columnCount)
	}
	if len(mb.nameRefs) != mb.columnCount {
		return nil, formatError(ErrMetadataInconsistent, -1, "",
			"%d column name entries for %d columns", len(mb.nameRefs), mb.columnCount)
	}
	if len(mb.formatRefs) != 0 && len(mb.formatRefs) != mb.columnCount {
		return nil, formatError(ErrMetadataInconsistent, -1, "",
			"%d format/label entries for %d columns", len(mb.formatRefs), mb.columnCount)
	}

	schema := &Schema{
		Columns:     make([]Column, mb.columnCount),
		RowLength:   mb.rowLength,
		RowCount:    mb.rowCount,
		Compression: mb.compression,
	}

	widthSum := 0
	for i := 0; i < mb.columnCount; i++ {
		name, err := mb.resolve(mb.nameRefs[i])
		if err != nil {
			return nil, err
		}
		col := Column{
			Ordinal: i,
			Name:    name,
			Type:    mb.attrs[i].ctype,
			Offset:  mb.attrs[i].offset,
			Width:   mb.attrs[i].width,
		}
		if len(mb.formatRefs) > 0 {
			if col.Format, err = mb.resolve(mb.formatRefs[i]); err != nil {
				return nil, err
			}
			if col.Label, err = mb.resolve(mb.labelRefs[i]); err != nil {
				return nil, err
			}
		}
		widthSum += col.Width
		schema.Columns[i] = col
	}

	if widthSum != schema.RowLength {
		return nil, formatError(ErrMetadataInconsistent, -1, "",
			"column widths sum to %d but the declared row length is %d", widthSum, schema.RowLength)
	}

	return schema, nil
}
