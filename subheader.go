package sas7bdat

// Subheader pointer flags.
const (
	truncatedSubheaderID    = 1
	compressedSubheaderID   = 4
	compressedSubheaderType = 1
)

// subheaderKind identifies the typed subheader parsers.  Signatures
// outside this closed set map to subheaderUnknown and are inert.
type subheaderKind int

const (
	subheaderUnknown subheaderKind = iota
	subheaderRowSize
	subheaderColumnSize
	subheaderCounts
	subheaderColumnText
	subheaderColumnName
	subheaderColumnAttrs
	subheaderFormatLabel
	subheaderColumnList
	subheaderData
)

func (k subheaderKind) String() string {
	switch k {
	case subheaderRowSize:
		return "row size"
	case subheaderColumnSize:
		return "column size"
	case subheaderCounts:
		return "subheader counts"
	case subheaderColumnText:
		return "column text"
	case subheaderColumnName:
		return "column name"
	case subheaderColumnAttrs:
		return "column attributes"
	case subheaderFormatLabel:
		return "column format/label"
	case subheaderColumnList:
		return "column list"
	case subheaderData:
		return "data"
	default:
		return "unknown"
	}
}

// Subheader signatures, 32 and 64 bit, little and big endian.  These
// byte patterns are fixed properties of the format and cannot be
// derived; they are reproduced from validated sample files.
var subheaderSignatures = map[string]subheaderKind{
	"\xF7\xF7\xF7\xF7":                 subheaderRowSize,
	"\x00\x00\x00\x00\xF7\xF7\xF7\xF7": subheaderRowSize,
	"\xF7\xF7\xF7\xF7\x00\x00\x00\x00": subheaderRowSize,
	"\xF7\xF7\xF7\xF7\xFF\xFF\xFB\xFE": subheaderRowSize,
	"\xF6\xF6\xF6\xF6":                 subheaderColumnSize,
	"\x00\x00\x00\x00\xF6\xF6\xF6\xF6": subheaderColumnSize,
	"\xF6\xF6\xF6\xF6\x00\x00\x00\x00": subheaderColumnSize,
	"\xF6\xF6\xF6\xF6\xFF\xFF\xFB\xFE": subheaderColumnSize,
	"\x00\xFC\xFF\xFF":                 subheaderCounts,
	"\xFF\xFF\xFC\x00":                 subheaderCounts,
	"\x00\xFC\xFF\xFF\xFF\xFF\xFF\xFF": subheaderCounts,
	"\xFF\xFF\xFF\xFF\xFF\xFF\xFC\x00": subheaderCounts,
	"\xFD\xFF\xFF\xFF":                 subheaderColumnText,
	"\xFF\xFF\xFF\xFD":                 subheaderColumnText,
	"\xFD\xFF\xFF\xFF\xFF\xFF\xFF\xFF": subheaderColumnText,
	"\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFD": subheaderColumnText,
	"\xFF\xFF\xFF\xFF":                 subheaderColumnName,
	"\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFF": subheaderColumnName,
	"\xFC\xFF\xFF\xFF":                 subheaderColumnAttrs,
	"\xFF\xFF\xFF\xFC":                 subheaderColumnAttrs,
	"\xFC\xFF\xFF\xFF\xFF\xFF\xFF\xFF": subheaderColumnAttrs,
	"\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFC": subheaderColumnAttrs,
	"\xFE\xFB\xFF\xFF":                 subheaderFormatLabel,
	"\xFF\xFF\xFB\xFE":                 subheaderFormatLabel,
	"\xFE\xFB\xFF\xFF\xFF\xFF\xFF\xFF": subheaderFormatLabel,
	"\xFF\xFF\xFF\xFF\xFF\xFF\xFB\xFE": subheaderFormatLabel,
	"\xFE\xFF\xFF\xFF":                 subheaderColumnList,
	"\xFF\xFF\xFF\xFE":                 subheaderColumnList,
	"\xFE\xFF\xFF\xFF\xFF\xFF\xFF\xFF": subheaderColumnList,
	"\xFF\xFF\xFF\xFF\xFF\xFF\xFF\xFE": subheaderColumnList,
}

// A subheaderPointer locates one subheader inside a page.  Pointers
// are ephemeral: they are read from the page's pointer table and
// consumed immediately.
type subheaderPointer struct {
	offset      int
	length      int
	compression int
	ptype       int
}

// readSubheaderPointer decodes the i-th entry of the page's pointer
// table.
func readSubheaderPointer(pg *page, lay layout, i int) (subheaderPointer, error) {

	var ptr subheaderPointer
	base := lay.pageBitOffset + subheaderPtrsOffset + i*lay.subheaderPtrLen

	var err error
	if ptr.offset, err = pg.cur.wordAt(base); err != nil {
		return ptr, formatError(ErrTruncatedFile, pg.index, "", "subheader pointer %d offset", i)
	}
	if ptr.length, err = pg.cur.wordAt(base + lay.intLen); err != nil {
		return ptr, formatError(ErrTruncatedFile, pg.index, "", "subheader pointer %d length", i)
	}
	if ptr.compression, err = pg.cur.intAt(base+2*lay.intLen, 1); err != nil {
		return ptr, formatError(ErrTruncatedFile, pg.index, "", "subheader pointer %d compression", i)
	}
	if ptr.ptype, err = pg.cur.intAt(base+2*lay.intLen+1, 1); err != nil {
		return ptr, formatError(ErrTruncatedFile, pg.index, "", "subheader pointer %d type", i)
	}

	return ptr, nil
}

// classifySubheader maps a subheader to its parser.  Unknown
// signatures on a compressed table with the compressed pointer flags
// are row data; any other unknown signature is ignored.
func classifySubheader(signature []byte, ptr subheaderPointer, compressed bool) subheaderKind {

	if kind, ok := subheaderSignatures[string(signature)]; ok {
		return kind
	}
	flagged := ptr.compression == compressedSubheaderID || ptr.compression == 0
	if compressed && flagged && ptr.ptype == compressedSubheaderType {
		return subheaderData
	}
	return subheaderUnknown
}

// subheaderBytes bounds-checks and slices the subheader's byte range
// out of its page.
func subheaderBytes(pg *page, ptr subheaderPointer) ([]byte, error) {
	raw, err := pg.cur.bytesAt(ptr.offset, ptr.length)
	if err != nil {
		return nil, formatError(ErrSubheaderOutOfBounds, pg.index, "",
			"offset %d length %d in a %d byte page", ptr.offset, ptr.length, len(pg.cur.buf))
	}
	return raw, nil
}
