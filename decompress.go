package sas7bdat

// Row compression.
//
// The RLE scheme is partially documented here:
//
// https://cran.r-project.org/web/packages/sas7bdat/vignettes/sas7bdat.pdf
//
// The RDC scheme is Ross Data Compression:
//
// http://collaboration.cmc.ec.gc.ca/science/rpn/biblio/ddj/Website/articles/CUJ/1992/9210/ross/ross.htm
//
// The control codes of both schemes are enumerated constants with no
// derivable formula; they are reproduced from validated sample files.
// A control byte outside the known catalogue is reported as
// ErrUnsupportedCompression rather than guessed at.

// Compression literals as stored in the first column-text subheader.
const (
	CompressionRLE = "SASYZCRL"
	CompressionRDC = "SASYZCR2"
)

type decompressor func(resultLength int, in []byte) ([]byte, error)

// decompressorFor returns the row decompressor for a compression
// literal, or nil when rows are stored uncompressed.
func decompressorFor(compression string) decompressor {
	switch compression {
	case CompressionRLE:
		return rleDecompress
	case CompressionRDC:
		return rdcDecompress
	default:
		return nil
	}
}

// rleDecompress expands a run-length encoded row.  Each control byte
// carries a command in the high nibble and a count fragment in the
// low nibble; commands select a literal copy, a run of a following
// byte, or a run of one of the fixed pattern bytes (0x00, 0x20, 0x40).
func rleDecompress(resultLength int, in []byte) ([]byte, error) {

	result := make([]byte, 0, resultLength)

	// take consumes n bytes of the compressed stream.
	take := func(n int) ([]byte, bool) {
		if n > len(in) {
			return nil, false
		}
		b := in[:n]
		in = in[n:]
		return b, true
	}

	for len(in) > 0 {
		command := in[0] & 0xF0
		nib := int(in[0] & 0x0F)
		in = in[1:]

		switch command {
		case 0x00:
			b, ok := take(1)
			if !ok {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "", "RLE control stream truncated")
			}
			lit, ok := take(int(b[0]) + 64)
			if !ok {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "", "RLE control stream truncated")
			}
			result = append(result, lit...)
		case 0x40:
			b, ok := take(2)
			if !ok {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "", "RLE control stream truncated")
			}
			n := nib*16 + int(b[0])
			for k := 0; k < n; k++ {
				result = append(result, b[1])
			}
		case 0x60, 0x70:
			b, ok := take(1)
			if !ok {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "", "RLE control stream truncated")
			}
			n := nib*256 + int(b[0]) + 17
			fill := byte(0x20)
			if command == 0x70 {
				fill = 0x00
			}
			for k := 0; k < n; k++ {
				result = append(result, fill)
			}
		case 0x80, 0x90, 0xA0, 0xB0:
			n := nib + 1 + 16*int((command-0x80)>>4)
			lit, ok := take(n)
			if !ok {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "", "RLE control stream truncated")
			}
			result = append(result, lit...)
		case 0xC0:
			b, ok := take(1)
			if !ok {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "", "RLE control stream truncated")
			}
			for k := 0; k < nib+3; k++ {
				result = append(result, b[0])
			}
		case 0xD0, 0xE0, 0xF0:
			var fill byte
			switch command {
			case 0xD0:
				fill = 0x40
			case 0xE0:
				fill = 0x20
			case 0xF0:
				fill = 0x00
			}
			for k := 0; k < nib+2; k++ {
				result = append(result, fill)
			}
		default:
			return nil, formatError(ErrUnsupportedCompression, -1, "",
				"unknown RLE control byte 0x%02x", command)
		}
	}

	return result, nil
}

// rdcDecompress expands a row compressed with Ross Data Compression.
// A rolling 16-bit control word selects, bit by bit, between literal
// bytes and commands; commands encode short/long byte runs and
// short/long back-references into the output produced so far.
func rdcDecompress(resultLength int, in []byte) ([]byte, error) {

	var ctrlBits, ctrlMask uint16
	var pos int
	out := make([]byte, 0, resultLength)

	truncated := func() error {
		return formatError(ErrDecompressionLengthMismatch, -1, "", "RDC control stream truncated")
	}

	for pos < len(in) {
		ctrlMask >>= 1
		if ctrlMask == 0 {
			if pos+2 > len(in) {
				return nil, truncated()
			}
			ctrlBits = uint16(in[pos])<<8 | uint16(in[pos+1])
			pos += 2
			ctrlMask = 0x8000
		}

		if ctrlBits&ctrlMask == 0 {
			out = append(out, in[pos])
			pos++
			continue
		}

		cmd := (in[pos] >> 4) & 0x0F
		cnt := int(in[pos] & 0x0F)
		pos++

		switch {
		case cmd == 0: // short run
			if pos >= len(in) {
				return nil, truncated()
			}
			cnt += 3
			for k := 0; k < cnt; k++ {
				out = append(out, in[pos])
			}
			pos++
		case cmd == 1: // long run
			if pos+1 >= len(in) {
				return nil, truncated()
			}
			cnt += int(in[pos])<<4 + 19
			pos++
			for k := 0; k < cnt; k++ {
				out = append(out, in[pos])
			}
			pos++
		case cmd == 2: // long pattern
			if pos+1 >= len(in) {
				return nil, truncated()
			}
			ofs := cnt + 3 + int(in[pos])<<4
			pos++
			cnt = int(in[pos]) + 16
			pos++
			if ofs > len(out) {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "",
					"RDC back-reference of %d bytes with only %d decoded", ofs, len(out))
			}
			// The source range may overlap the bytes being
			// appended, so the copy must run byte by byte.
			for k := 0; k < cnt; k++ {
				out = append(out, out[len(out)-ofs])
			}
		case cmd >= 3: // short pattern
			if pos >= len(in) {
				return nil, truncated()
			}
			ofs := cnt + 3 + int(in[pos])<<4
			pos++
			if ofs > len(out) {
				return nil, formatError(ErrDecompressionLengthMismatch, -1, "",
					"RDC back-reference of %d bytes with only %d decoded", ofs, len(out))
			}
			for k := 0; k < int(cmd); k++ {
				out = append(out, out[len(out)-ofs])
			}
		}
	}

	return out, nil
}
