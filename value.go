package sas7bdat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// SAS stores dates as days, and datetimes and times as seconds,
// counted from 1960-01-01 rather than the Unix epoch.
var sasEpoch = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

// Calendar bounds of representable SAS dates (1582-01-01 through
// 9999-12-31), in days from the epoch.  Values outside decode to
// Missing.
const (
	minDateDays = -138061
	maxDateDays = 2936549
)

func epochSeconds(x float64) time.Time {
	return sasEpoch.Add(time.Duration(x * float64(time.Second)))
}

// ValueKind discriminates the decoded value types.
type ValueKind uint8

const (
	Missing ValueKind = iota
	Number
	Text
	Date
	DateTime
	Time
)

func (k ValueKind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	case Time:
		return "time"
	default:
		return "missing"
	}
}

// A Value is one decoded cell.  Values are self-contained copies and
// remain valid after the iteration advances.
type Value struct {
	kind ValueKind
	num  float64
	str  string
}

// A Row is one decoded table row, with one value per column in schema
// order.  Rows are produced on demand and not retained by the table.
type Row []Value

func missingValue() Value        { return Value{kind: Missing} }
func numberValue(x float64) Value { return Value{kind: Number, num: x} }
func textValue(s string) Value   { return Value{kind: Text, str: s} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsMissing() bool { return v.kind == Missing }

// Float64 returns the numeric value of a Number, or the raw epoch
// offset of a Date, DateTime or Time.
func (v Value) Float64() float64 { return v.num }

// Time returns the calendar value of a Date or DateTime.
func (v Value) Time() time.Time {
	switch v.kind {
	case Date:
		return sasEpoch.AddDate(0, 0, int(v.num))
	case DateTime:
		return epochSeconds(v.num)
	default:
		return time.Time{}
	}
}

// Duration returns the elapsed value of a Time.  SAS time values may
// exceed 24 hours, so they are not folded onto a calendar day.
func (v Value) Duration() time.Duration {
	return time.Duration(v.num * float64(time.Second))
}

// String renders the value in a default text form; the exporter
// applies its own date layouts instead.
func (v Value) String() string {
	switch v.kind {
	case Text:
		return v.str
	case Number:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Date:
		return v.Time().Format("2006-01-02")
	case DateTime:
		return v.Time().Format("2006-01-02 15:04:05")
	case Time:
		d := v.Duration()
		return fmt.Sprintf("%02d:%02d:%02d",
			int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	default:
		return ""
	}
}

// Format name fragments that mark a numeric column as holding a date,
// datetime or time.  The stored format may carry a width suffix
// ("MMDDYY10."); it is stripped before lookup.
var (
	dateFormats = map[string]bool{
		"DATE": true, "MMDDYY": true, "DDMMYY": true, "YYMMDD": true,
		"JULIAN": true, "MONYY": true, "YYMM": true, "MMYY": true,
		"WEEKDATE": true, "WORDDATE": true,
	}
	datetimeFormats = map[string]bool{
		"DATETIME": true, "DTDATE": true, "DTMONYY": true, "DTWKDATX": true,
	}
	timeFormats = map[string]bool{
		"TIME": true, "HHMM": true, "TOD": true, "MMSS": true,
	}
)

// formatKind classifies a column format string.
func formatKind(format string) ValueKind {
	f := strings.TrimRight(strings.ToUpper(format), "0123456789.")
	switch {
	case datetimeFormats[f]:
		return DateTime
	case dateFormats[f]:
		return Date
	case timeFormats[f]:
		return Time
	default:
		return Number
	}
}

// ValueKind returns the kind of value this column decodes to: Text
// for character columns, and Number, Date, DateTime or Time for
// numeric columns depending on the column format.
func (c Column) ValueKind() ValueKind {
	if c.Type == CharacterColumn {
		return Text
	}
	return formatKind(c.Format)
}

// decoderForEncoding returns a text decoder for the header's encoding
// code, or nil when the bytes can pass through unchanged (or the
// encoding is unknown).
func decoderForEncoding(code int) *xencoding.Decoder {
	var enc xencoding.Encoding
	switch encodingNames[code] {
	case "latin1":
		enc = charmap.ISO8859_1
	case "cyrillic":
		enc = charmap.ISO8859_5
	case "wlatin2":
		enc = charmap.Windows1250
	case "wcyrillic":
		enc = charmap.Windows1251
	case "wlatin1":
		enc = charmap.Windows1252
	default:
		// utf-8 and unrecognized codes pass through.
		return nil
	}
	return enc.NewDecoder()
}

// valueDecoder slices each column's byte range out of a fixed-length
// row buffer and decodes it to a typed value.  Decoding a value never
// fails the row: undecodable numbers and out-of-range dates become
// Missing, and undecodable text falls back to the raw bytes.
type valueDecoder struct {
	schema       *Schema
	order        binary.ByteOrder
	textDecoder  *xencoding.Decoder
	trimStrings  bool
	convertDates bool
}

func (vd *valueDecoder) decodeRow(raw []byte) Row {

	row := make(Row, len(vd.schema.Columns))
	for i, col := range vd.schema.Columns {
		row[i] = vd.decodeValue(col, raw)
	}
	return row
}

func (vd *valueDecoder) decodeValue(col Column, raw []byte) Value {

	if col.Width <= 0 || col.Offset+col.Width > len(raw) {
		return missingValue()
	}
	field := raw[col.Offset : col.Offset+col.Width]

	if col.Type == CharacterColumn {
		return vd.decodeText(field)
	}
	return vd.decodeNumeric(col, field)
}

func (vd *valueDecoder) decodeText(field []byte) Value {

	if vd.trimStrings {
		field = bytes.TrimRight(field, "\x00 ")
	}
	if vd.textDecoder != nil {
		if decoded, err := vd.textDecoder.Bytes(field); err == nil {
			return textValue(string(decoded))
		}
	}
	return textValue(string(field))
}

// decodeNumeric interprets a numeric field as an IEEE-754 double.
// Fields narrower than 8 bytes are zero-extended to 8 per the file's
// byte order before interpretation; this padding rule is mandated by
// the format.
func (vd *valueDecoder) decodeNumeric(col Column, field []byte) Value {

	if col.Width > 8 {
		return missingValue()
	}

	var full [8]byte
	if vd.order == binary.LittleEndian {
		copy(full[8-col.Width:], field)
	} else {
		copy(full[:col.Width], field)
	}
	x := math.Float64frombits(vd.order.Uint64(full[:]))

	if math.IsNaN(x) {
		return missingValue()
	}
	if !vd.convertDates {
		return numberValue(x)
	}

	switch formatKind(col.Format) {
	case Date:
		if math.IsInf(x, 0) || x < minDateDays || x > maxDateDays {
			return missingValue()
		}
		return Value{kind: Date, num: x}
	case DateTime:
		if math.IsInf(x, 0) || x < minDateDays*86400 || x > (maxDateDays+1)*86400 {
			return missingValue()
		}
		return Value{kind: DateTime, num: x}
	case Time:
		if math.IsInf(x, 0) {
			return missingValue()
		}
		return Value{kind: Time, num: x}
	default:
		return numberValue(x)
	}
}
