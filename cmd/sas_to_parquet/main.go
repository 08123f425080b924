// sas_to_parquet converts a SAS7BDAT file to a parquet file.  The
// parquet schema is derived at runtime from the table schema: numeric
// columns become DOUBLE, character columns UTF8 byte arrays, and
// date/datetime columns millisecond timestamps.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/caot/sas7bdat"
)

func parquetSchema(schema *sas7bdat.Schema) []string {

	md := make([]string, len(schema.Columns))
	for j, col := range schema.Columns {
		switch col.ValueKind() {
		case sas7bdat.Text:
			md[j] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", col.Name)
		case sas7bdat.Date, sas7bdat.DateTime:
			md[j] = fmt.Sprintf("name=%s, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL", col.Name)
		case sas7bdat.Time:
			md[j] = fmt.Sprintf("name=%s, type=INT64, convertedtype=TIME_MILLIS, repetitiontype=OPTIONAL", col.Name)
		default:
			md[j] = fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", col.Name)
		}
	}
	return md
}

func cell(v sas7bdat.Value) *string {

	if v.IsMissing() {
		return nil
	}
	var s string
	switch v.Kind() {
	case sas7bdat.Text:
		s = v.String()
	case sas7bdat.Date, sas7bdat.DateTime:
		s = strconv.FormatInt(v.Time().UnixMilli(), 10)
	case sas7bdat.Time:
		s = strconv.FormatInt(v.Duration().Milliseconds(), 10)
	default:
		s = strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	}
	return &s
}

func convert(infile, outfile string) error {

	t, err := sas7bdat.OpenFile(infile)
	if err != nil {
		return err
	}
	defer t.Close()

	fw, err := local.NewLocalFileWriter(outfile)
	if err != nil {
		return err
	}
	defer fw.Close()

	pw, err := writer.NewCSVWriter(parquetSchema(t.Schema()), fw, 4)
	if err != nil {
		return err
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	record := make([]*string, len(t.Schema().Columns))
	rows := t.Rows()
	for rows.Next() {
		row := rows.Row()
		for j, v := range row {
			record[j] = cell(v)
		}
		if err := pw.WriteString(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return pw.WriteStop()
}

func main() {

	infile := flag.String("in", "", "A SAS7BDAT file name")
	outfile := flag.String("out", "", "The parquet file to write")
	flag.Parse()

	if *infile == "" || *outfile == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in=file.sas7bdat -out=file.parquet\n", os.Args[0])
		os.Exit(1)
	}

	if err := convert(*infile, *outfile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
