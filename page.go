package sas7bdat

import (
	"encoding/binary"
	"io"
)

// Page type codes as they appear in the page header.
const (
	pageMetaType  = 0
	pageDataType  = 256
	pageMixType1  = 512
	pageMixType2  = 640
	pageAmdType   = 1024
	pageMetcType  = 16384
	pageCompType  = -28672
)

// Offsets within a page, relative to the bitness-dependent bit
// offset.
const (
	pageTypeOffset        = 0
	blockCountOffset      = 2
	subheaderCountOffset  = 4
	subheaderPtrsOffset   = 8
)

// pageKind classifies a page for dispatch.  Unknown page types map to
// pageOther and are skipped, not rejected: files may contain page
// types this decoder does not act on.
type pageKind int

const (
	pageOther pageKind = iota
	pageMeta
	pageData
	pageMix
	pageAmd
	pageComp
)

func classifyPage(ptype int) pageKind {
	switch ptype {
	case pageMetaType:
		return pageMeta
	case pageDataType:
		return pageData
	case pageMixType1, pageMixType2:
		return pageMix
	case pageAmdType:
		return pageAmd
	case pageMetcType, pageCompType:
		return pageComp
	default:
		return pageOther
	}
}

// hasSubheaders reports whether the page carries a subheader pointer
// table.
func (k pageKind) hasSubheaders() bool {
	switch k {
	case pageMeta, pageMix, pageAmd:
		return true
	}
	return false
}

// A page is one fixed-size block of the file.  Exactly one page is
// live at a time; the reader replaces it on each advance, so row data
// must be copied out before advancing.
type page struct {
	index          int
	ptype          int
	kind           pageKind
	blockCount     int
	subheaderCount int
	cur            cursor
}

// pageReader sequentially loads pages.  Reads are forward-only; no
// page is revisited.
type pageReader struct {
	r     io.Reader
	order binary.ByteOrder
	lay   layout
	size  int
	count int
	next  int
	buf   []byte
}

func newPageReader(r io.Reader, hdr *Header, lay layout) *pageReader {
	return &pageReader{
		r:     r,
		order: hdr.ByteOrder,
		lay:   lay,
		size:  hdr.PageSize,
		count: hdr.PageCount,
		buf:   make([]byte, hdr.PageSize),
	}
}

// readPage loads the next page, or returns io.EOF once the declared
// page count is exhausted.  A short read before that point is a
// truncation error.
func (pr *pageReader) readPage() (*page, error) {

	if pr.next >= pr.count {
		return nil, io.EOF
	}

	if _, err := io.ReadFull(pr.r, pr.buf); err != nil {
		return nil, formatError(ErrTruncatedFile, pr.next, "",
			"expected a %d byte page, %d of %d pages read", pr.size, pr.next, pr.count)
	}

	pg := &page{
		index: pr.next,
		cur:   cursor{buf: pr.buf, order: pr.order, intLen: pr.lay.intLen},
	}
	pr.next++

	bit := pr.lay.pageBitOffset
	var err error
	if pg.ptype, err = pg.cur.intAt(bit+pageTypeOffset, 2); err != nil {
		return nil, formatError(ErrTruncatedFile, pg.index, "", "page type")
	}
	if pg.blockCount, err = pg.cur.intAt(bit+blockCountOffset, 2); err != nil {
		return nil, formatError(ErrTruncatedFile, pg.index, "", "block count")
	}
	if pg.subheaderCount, err = pg.cur.intAt(bit+subheaderCountOffset, 2); err != nil {
		return nil, formatError(ErrTruncatedFile, pg.index, "", "subheader count")
	}
	pg.kind = classifyPage(pg.ptype)

	return pg, nil
}
