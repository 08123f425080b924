package sas7bdat

import (
	"encoding/csv"
	"fmt"
	"io"
)

// An Exporter renders a table's schema and rows as delimited text.
// It consumes only the public Schema and Rows operations and adds no
// decoding logic of its own.
type Exporter struct {

	// Field delimiter.  Defaults to ','.
	Delimiter rune

	// Go time layouts for date and datetime values.
	DateFormat     string
	DateTimeFormat string

	// Text written for missing values.  Defaults to empty.
	Missing string

	// If true, the column names are written as the first record.
	WriteHeader bool
}

// NewExporter returns an Exporter with comma delimiting, ISO date
// layouts and a header record.
func NewExporter() *Exporter {
	return &Exporter{
		Delimiter:      ',',
		DateFormat:     "2006-01-02",
		DateTimeFormat: "2006-01-02 15:04:05",
		WriteHeader:    true,
	}
}

// Export writes all remaining rows of the table to w.
func (e *Exporter) Export(w io.Writer, t *Table) error {

	cw := csv.NewWriter(w)
	if e.Delimiter != 0 {
		cw.Comma = e.Delimiter
	}

	schema := t.Schema()
	if e.WriteHeader {
		names := make([]string, len(schema.Columns))
		for j, col := range schema.Columns {
			names[j] = col.Name
		}
		if err := cw.Write(names); err != nil {
			return err
		}
	}

	record := make([]string, len(schema.Columns))
	rows := t.Rows()
	for rows.Next() {
		row := rows.Row()
		for j, v := range row {
			record[j] = e.formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("exporting rows: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func (e *Exporter) formatValue(v Value) string {
	switch v.Kind() {
	case Missing:
		return e.Missing
	case Date:
		return v.Time().Format(e.DateFormat)
	case DateTime:
		return v.Time().Format(e.DateTimeFormat)
	default:
		return v.String()
	}
}
