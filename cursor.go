package sas7bdat

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A cursor provides positioned, bounds-checked reads of fixed-width
// integers, floats and byte runs from an in-memory buffer.  The byte
// order and the width of offset/length fields (4 bytes for 32-bit
// files, 8 for 64-bit) are configured once from the file header, so
// the two axes of format variation are isolated here rather than
// branched on at every call site.
type cursor struct {
	buf    []byte
	order  binary.ByteOrder
	intLen int
}

func (c *cursor) check(offset, length int) error {
	// length is compared against the remaining space rather than
	// offset+length, which can wrap for hostile 8-byte values.
	if offset < 0 || length < 0 || offset > len(c.buf) || length > len(c.buf)-offset {
		return fmt.Errorf("read of %d bytes at offset %d exceeds buffer of %d bytes",
			length, offset, len(c.buf))
	}
	return nil
}

// bytesAt returns the byte run [offset, offset+length).  The returned
// slice aliases the underlying buffer.
func (c *cursor) bytesAt(offset, length int) ([]byte, error) {
	if err := c.check(offset, length); err != nil {
		return nil, err
	}
	return c.buf[offset : offset+length], nil
}

// intAt reads a signed integer of 1, 2, 4 or 8 byte width.
func (c *cursor) intAt(offset, width int) (int, error) {
	if err := c.check(offset, width); err != nil {
		return 0, err
	}
	b := c.buf[offset:]
	switch width {
	case 1:
		return int(int8(b[0])), nil
	case 2:
		return int(int16(c.order.Uint16(b))), nil
	case 4:
		return int(int32(c.order.Uint32(b))), nil
	case 8:
		return int(int64(c.order.Uint64(b))), nil
	default:
		return 0, fmt.Errorf("invalid integer width %d", width)
	}
}

// wordAt reads a signed integer of the file's native offset width.
func (c *cursor) wordAt(offset int) (int, error) {
	return c.intAt(offset, c.intLen)
}

// floatAt reads an 8-byte IEEE-754 double.
func (c *cursor) floatAt(offset int) (float64, error) {
	if err := c.check(offset, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(c.order.Uint64(c.buf[offset:])), nil
}
