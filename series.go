package sas7bdat

import (
	"fmt"
	"io"
	"time"
)

// A Series is a fixed-type one-dimensional sequence of data values
// from one column, with an optional mask for missing values.  SAS
// columns produce []float64, []string, []time.Time or
// []time.Duration data.
type Series struct {

	// A name describing what is in this series.
	Name string

	length  int
	data    interface{}
	missing []bool
}

func seriesLen(data interface{}) (int, error) {
	switch d := data.(type) {
	case []float64:
		return len(d), nil
	case []string:
		return len(d), nil
	case []time.Time:
		return len(d), nil
	case []time.Duration:
		return len(d), nil
	default:
		return 0, fmt.Errorf("sas7bdat: unsupported series data type %T", data)
	}
}

// NewSeries returns a new Series with the given name and data
// contents.  The data slice is not copied.
func NewSeries(name string, data interface{}, missing []bool) (*Series, error) {
	length, err := seriesLen(data)
	if err != nil {
		return nil, err
	}
	return &Series{Name: name, length: length, data: data, missing: missing}, nil
}

// Data returns the data slice held by the series.
func (ser *Series) Data() interface{} {
	return ser.data
}

// Missing returns the missing-value mask, or nil if no values are
// missing.
func (ser *Series) Missing() []bool {
	return ser.missing
}

// Length returns the number of values in the series.
func (ser *Series) Length() int {
	return ser.length
}

// AllEqual reports whether two series hold identical names, data and
// missing masks.
func (ser *Series) AllEqual(other *Series) bool {

	if ser.Name != other.Name || ser.length != other.length {
		return false
	}
	for i := 0; i < ser.length; i++ {
		m1 := ser.missing != nil && ser.missing[i]
		m2 := other.missing != nil && other.missing[i]
		if m1 != m2 {
			return false
		}
		if m1 {
			continue
		}
		switch d := ser.data.(type) {
		case []float64:
			o, ok := other.data.([]float64)
			if !ok || d[i] != o[i] {
				return false
			}
		case []string:
			o, ok := other.data.([]string)
			if !ok || d[i] != o[i] {
				return false
			}
		case []time.Time:
			o, ok := other.data.([]time.Time)
			if !ok || !d[i].Equal(o[i]) {
				return false
			}
		case []time.Duration:
			o, ok := other.data.([]time.Duration)
			if !ok || d[i] != o[i] {
				return false
			}
		}
	}
	return true
}

// Write writes the series to the given writer, one value per line.
func (ser *Series) Write(w io.Writer) {
	fmt.Fprintf(w, "Name: %s\n", ser.Name)
	for i := 0; i < ser.length; i++ {
		if ser.missing != nil && ser.missing[i] {
			fmt.Fprintf(w, "%d:\n", i)
			continue
		}
		switch d := ser.data.(type) {
		case []float64:
			fmt.Fprintf(w, "%d:  %f\n", i, d[i])
		case []string:
			fmt.Fprintf(w, "%d:  %s\n", i, d[i])
		case []time.Time:
			fmt.Fprintf(w, "%d:  %v\n", i, d[i])
		case []time.Duration:
			fmt.Fprintf(w, "%d:  %v\n", i, d[i])
		}
	}
}

// A Frame is a column-oriented view of a table: one Series per
// column, all of the same length.
type Frame []*Series

// ReadFrame consumes the table's remaining rows into a Frame.  Each
// column becomes one Series whose element type follows the column's
// value kind.
func ReadFrame(t *Table) (Frame, error) {

	schema := t.Schema()
	ncol := len(schema.Columns)

	numbers := make([][]float64, ncol)
	strs := make([][]string, ncol)
	times := make([][]time.Time, ncol)
	durations := make([][]time.Duration, ncol)
	missing := make([][]bool, ncol)

	kinds := make([]ValueKind, ncol)
	for j, col := range schema.Columns {
		kinds[j] = col.ValueKind()
	}

	n := 0
	rows := t.Rows()
	for rows.Next() {
		row := rows.Row()
		for j := range schema.Columns {
			v := row[j]
			missing[j] = append(missing[j], v.IsMissing())
			switch kinds[j] {
			case Text:
				strs[j] = append(strs[j], v.String())
			case Date, DateTime:
				times[j] = append(times[j], v.Time())
			case Time:
				durations[j] = append(durations[j], v.Duration())
			default:
				numbers[j] = append(numbers[j], v.Float64())
			}
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	frame := make(Frame, ncol)
	for j, col := range schema.Columns {
		var data interface{}
		switch kinds[j] {
		case Text:
			data = strs[j]
		case Date, DateTime:
			data = times[j]
		case Time:
			data = durations[j]
		default:
			data = numbers[j]
		}
		ser, err := NewSeries(col.Name, data, missing[j])
		if err != nil {
			return nil, err
		}
		frame[j] = ser
	}

	return frame, nil
}

// AllEqual reports whether two frames are identical column by column.
func (f Frame) AllEqual(other Frame) bool {
	if len(f) != len(other) {
		return false
	}
	for j := range f {
		if !f[j].AllEqual(other[j]) {
			return false
		}
	}
	return true
}
