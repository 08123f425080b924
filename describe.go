package sas7bdat

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteMetadata pretty-prints the file header and the column table to
// w.  This is a read-only view over the public Header and Schema and
// performs no decoding.
func (t *Table) WriteMetadata(w io.Writer) error {

	hdr := t.Header
	schema := t.Schema()

	fmt.Fprintf(w, "Header:\n")
	fields := []struct {
		name  string
		value interface{}
	}{
		{"dataset", hdr.Name},
		{"file type", hdr.FileType},
		{"platform", hdr.Platform},
		{"encoding", hdr.Encoding},
		{"SAS release", hdr.SASRelease},
		{"host", hdr.ServerType},
		{"OS type", hdr.OSType},
		{"OS name", hdr.OSName},
		{"creator", hdr.Creator},
		{"creator proc", hdr.CreatorProc},
		{"created", hdr.DateCreated.Format("2006-01-02 15:04:05")},
		{"modified", hdr.DateModified.Format("2006-01-02 15:04:05")},
		{"64-bit", hdr.U64},
		{"byte order", hdr.ByteOrder},
		{"page size", hdr.PageSize},
		{"page count", hdr.PageCount},
		{"compression", hdr.Compression},
		{"row count", schema.RowCount},
		{"row length", schema.RowLength},
	}
	for _, f := range fields {
		if s, ok := f.value.(string); ok && s == "" {
			continue
		}
		fmt.Fprintf(w, "\t%s: %v\n", f.name, f.value)
	}

	fmt.Fprintf(w, "\nContents of dataset %q:\n", hdr.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Num\tName\tType\tLength\tFormat\tLabel")
	fmt.Fprintln(tw, "---\t----\t----\t------\t------\t-----")
	for _, col := range schema.Columns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			col.Ordinal+1, col.Name, col.Type, col.Width, col.Format, col.Label)
	}
	return tw.Flush()
}
