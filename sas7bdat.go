package sas7bdat

import (
	"errors"
	"io"
	"log/slog"
	"os"

	xencoding "golang.org/x/text/encoding"
)

// A Table is an open SAS7BDAT file: the parsed header, the finalized
// column schema, and a forward-only row stream.  All file state is
// held here explicitly; nothing is ambient.
//
// The exported option fields may be adjusted between Open and the
// first call to Next.
type Table struct {

	// The parsed file header.  Immutable.
	Header *Header

	// If true, trim trailing NUL/space padding from character
	// values (SAS strings are fixed width).  Defaults to true.
	TrimStrings bool

	// If true, decode numeric columns whose format declares a
	// date, datetime or time as calendar values.  Defaults to
	// true; when false such columns decode as plain numbers.
	ConvertDates bool

	// If true, a row whose decompressed length does not match the
	// declared row length is logged and skipped instead of
	// aborting the iteration.  Strict behavior is the default;
	// lenient mode must be chosen explicitly.
	Lenient bool

	// If true, turns off alignment correction when reading
	// mix-type pages.  In general this should be false, but some
	// files are laid out without the correction and there is no
	// known way to detect this.
	NoAlignCorrection bool

	// Decoder used for character values.  Defaults to a decoder
	// for the encoding declared in the file header; nil leaves
	// bytes unchanged.
	TextDecoder *xencoding.Decoder

	// Destination for diagnostic warnings.
	Log *slog.Logger

	lay    layout
	pr     *pageReader
	schema *Schema
	vd     *valueDecoder
	closer io.Closer

	// Iteration state.  cur is the page currently yielding rows;
	// its buffer is owned by the page reader and replaced on each
	// advance, so decoded rows are always copied out.
	cur       *page
	dataPtrs  []subheaderPointer
	rowOnPage int
	rowsRead  int

	mixRowCount int
}

// Open reads the file header and all metadata pages from r and
// returns a Table with its schema finalized.  The source is read
// strictly forward; iterating the rows a second time requires
// reopening the source.
func Open(r io.Reader) (*Table, error) {

	hdr, lay, err := parseHeader(r)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Header:       hdr,
		TrimStrings:  true,
		ConvertDates: true,
		Log:          slog.Default(),
		lay:          lay,
		pr:           newPageReader(r, hdr, lay),
	}

	mb := newMetadataBuilder(lay, t.Log)
	if err := t.parseMetadata(mb); err != nil {
		return nil, err
	}

	t.schema, err = mb.finalize()
	if err != nil {
		return nil, err
	}
	t.mixRowCount = mb.mixRowCount
	hdr.Compression = mb.compression
	hdr.Creator = mb.creator
	hdr.CreatorProc = mb.creatorProc

	t.TextDecoder = decoderForEncoding(hdr.encodingCode)

	return t, nil
}

// OpenFile opens the named file.  Close releases the underlying file.
func OpenFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	t, err := Open(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

// Close releases the underlying file when the table was opened with
// OpenFile; otherwise it is a no-op.
func (t *Table) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Schema returns the finalized column schema.  It is available
// immediately after Open and never changes.
func (t *Table) Schema() *Schema {
	return t.schema
}

// logger tolerates a caller zeroing the exported Log field.
func (t *Table) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

// parseMetadata consumes pages until metadata closure: the first
// data-bearing page (a mix or data page, or a meta page carrying
// compressed row subheaders).  No row is ever emitted before this
// point, which is what makes the schema trustworthy.
func (t *Table) parseMetadata(mb *metadataBuilder) error {

	for {
		pg, err := t.pr.readPage()
		if errors.Is(err, io.EOF) {
			// All pages were metadata; an empty table.
			return nil
		}
		if err != nil {
			return err
		}

		if pg.kind.hasSubheaders() {
			if err := t.scanSubheaders(pg, mb); err != nil {
				return err
			}
		}

		if pg.kind == pageMix || pg.kind == pageData || len(t.dataPtrs) > 0 {
			t.cur = pg
			t.rowOnPage = 0
			return nil
		}
	}
}

// scanSubheaders walks a page's subheader pointer table, routing
// metadata subheaders to the builder and collecting compressed-row
// pointers.  Deleted/truncated pointers and unknown signatures are
// inert.
func (t *Table) scanSubheaders(pg *page, mb *metadataBuilder) error {

	for i := 0; i < pg.subheaderCount; i++ {
		ptr, err := readSubheaderPointer(pg, t.lay, i)
		if err != nil {
			return err
		}
		if ptr.length == 0 || ptr.compression == truncatedSubheaderID {
			continue
		}

		raw, err := subheaderBytes(pg, ptr)
		if err != nil {
			return err
		}
		sigLen := t.lay.intLen
		if sigLen > len(raw) {
			sigLen = len(raw)
		}

		compressed := t.schema != nil && t.schema.Compression != ""
		if mb != nil {
			compressed = mb.compression != ""
		}
		kind := classifySubheader(raw[:sigLen], ptr, compressed)
		if kind == subheaderData {
			t.dataPtrs = append(t.dataPtrs, ptr)
			continue
		}
		if mb == nil {
			// Metadata is closed; only row data matters now.
			continue
		}
		if err := mb.consume(kind, raw, pg.cur.order, pg.index); err != nil {
			return err
		}
	}

	return nil
}

// Rows returns an iterator over the decoded rows.  The sequence is
// lazy, forward-only and single-pass; stopping early requires no
// further page decoding.
func (t *Table) Rows() *Rows {
	return &Rows{t: t}
}

// Rows iterates over decoded table rows.
type Rows struct {
	t    *Table
	row  Row
	err  error
	done bool
}

// Next advances to the next row.  It returns false when the rows are
// exhausted or an error occurred; the two cases are distinguished
// with Err.
func (r *Rows) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	row, err := r.t.nextRow()
	if errors.Is(err, io.EOF) {
		r.done = true
		return false
	}
	if err != nil {
		r.err = err
		return false
	}
	r.row = row
	return true
}

// Row returns the row read by the last successful call to Next.  The
// row is independently allocated and remains valid after advancing.
func (r *Rows) Row() Row {
	return r.row
}

// Err returns the error that terminated the iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

func (t *Table) decoder() *valueDecoder {
	if t.vd == nil {
		t.vd = &valueDecoder{
			schema:       t.schema,
			order:        t.Header.ByteOrder,
			textDecoder:  t.TextDecoder,
			trimStrings:  t.TrimStrings,
			convertDates: t.ConvertDates,
		}
	}
	return t.vd
}

// nextRow produces one decoded row, walking pages as needed.  Returns
// io.EOF when the declared row count is exhausted or the pages end.
func (t *Table) nextRow() (Row, error) {

	for {
		if t.cur == nil {
			pg, err := t.pr.readPage()
			if err != nil {
				return nil, err
			}
			t.cur = pg
			t.rowOnPage = 0
			t.dataPtrs = nil
			if pg.kind.hasSubheaders() {
				if err := t.scanSubheaders(pg, nil); err != nil {
					return nil, err
				}
			}
		}

		if t.rowsRead >= t.schema.RowCount {
			return nil, io.EOF
		}

		switch t.cur.kind {
		case pageMeta:
			row, skip, err := t.metaPageRow()
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			return row, nil

		case pageMix:
			limit := t.mixRowCount
			if t.schema.RowCount < limit {
				limit = t.schema.RowCount
			}
			if t.rowOnPage >= limit {
				t.cur = nil
				continue
			}
			base := t.lay.pageBitOffset + subheaderPtrsOffset +
				t.cur.subheaderCount*t.lay.subheaderPtrLen
			if !t.NoAlignCorrection {
				base += base % 8
			}
			return t.pageRow(base)

		case pageData:
			if t.rowOnPage >= t.cur.blockCount {
				t.cur = nil
				continue
			}
			return t.pageRow(t.lay.pageBitOffset + subheaderPtrsOffset)

		default:
			// amd, compressed-metadata and unrecognized page
			// types hold no decodable rows.
			t.cur = nil
		}
	}
}

// pageRow decodes the row at index rowOnPage of an uncompressed data
// or mix page, whose rows are laid out back to back starting at base.
func (t *Table) pageRow(base int) (Row, error) {

	offset := base + t.rowOnPage*t.schema.RowLength
	raw, err := t.cur.cur.bytesAt(offset, t.schema.RowLength)
	if err != nil {
		return nil, formatError(ErrTruncatedFile, t.cur.index, "",
			"row %d at offset %d exceeds the page", t.rowOnPage, offset)
	}

	row := t.decoder().decodeRow(raw)
	t.rowOnPage++
	t.rowsRead++
	return row, nil
}

// metaPageRow decodes the next compressed-row subheader of the
// current meta page.  skip reports that the page is exhausted, or
// that a corrupt row was dropped in lenient mode.
func (t *Table) metaPageRow() (row Row, skip bool, err error) {

	if t.rowOnPage >= len(t.dataPtrs) {
		t.cur = nil
		return nil, true, nil
	}
	ptr := t.dataPtrs[t.rowOnPage]

	raw, err := subheaderBytes(t.cur, ptr)
	if err != nil {
		return nil, false, err
	}

	if t.schema.Compression != "" && ptr.length < t.schema.RowLength {
		decompress := decompressorFor(t.schema.Compression)
		if decompress == nil {
			return nil, false, formatError(ErrUnsupportedCompression, t.cur.index, "data",
				"compression literal %q", t.schema.Compression)
		}
		out, derr := decompress(t.schema.RowLength, raw)
		if derr == nil && len(out) != t.schema.RowLength {
			derr = formatError(ErrDecompressionLengthMismatch, t.cur.index, "data",
				"got %d bytes, row length is %d", len(out), t.schema.RowLength)
		}
		if derr != nil {
			if t.Lenient && errors.Is(derr, ErrDecompressionLengthMismatch) {
				t.logger().Warn("skipping corrupt compressed row",
					"page", t.cur.index, "row", t.rowOnPage, "err", derr)
				t.rowOnPage++
				return nil, true, nil
			}
			return nil, false, derr
		}
		raw = out
	}

	row = t.decoder().decodeRow(raw)
	t.rowOnPage++
	t.rowsRead++
	return row, false, nil
}
