package sas7bdat

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

// Magic signature at the start of every SAS7BDAT file.
const magic = "\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\xc2\xea\x81\x60" +
	"\xb3\x14\x11\xcf\xbd\x92\x08\x00\x09\xc7\x31\x8c\x18\x1f\x10\x11"

// Fixed offsets within the file header.  The header layout shifts by
// the alignment values read at offsets 32 and 35, which also select
// the 32- or 64-bit variant of the format.
const (
	fixedHeaderSize = 288

	align1Offset     = 32
	align2Offset     = 35
	alignValue       = byte('3')
	alignShift       = 4
	endiannessOffset = 37
	platformOffset   = 39
	encodingOffset   = 70
	datasetOffset    = 92
	datasetLength    = 64
	fileTypeOffset   = 156
	fileTypeLength   = 8
	dateCreatedOffset  = 164
	dateModifiedOffset = 172
	headerSizeOffset   = 196
	pageSizeOffset     = 200
	pageCountOffset    = 204
	sasReleaseOffset   = 216
	sasReleaseLength   = 8
	serverTypeOffset   = 224
	serverTypeLength   = 16
	osVersionOffset    = 240
	osVersionLength    = 16
	osMakerOffset      = 256
	osMakerLength      = 16
	osNameOffset       = 272
	osNameLength       = 16
)

// Per-bitness layout parameters for everything past the header.
const (
	pageBitOffset32 = 16
	pageBitOffset64 = 32
	subheaderPtrLen32 = 12
	subheaderPtrLen64 = 24
)

// Incomplete list of encodings, indexed by the code stored in the
// file header.
var encodingNames = map[int]string{
	29: "latin1",
	20: "utf-8",
	33: "cyrillic",
	60: "wlatin2",
	61: "wcyrillic",
	62: "wlatin1",
	90: "ebcdic870",
}

// Header holds the file-level metadata of a SAS7BDAT file.  It is
// immutable once parsed.
type Header struct {
	// The name of the data set.
	Name string

	// The SAS file type.
	FileType string

	// The platform used to create the file ("unix", "windows" or
	// "unknown").
	Platform string

	// The character encoding name declared in the header.
	Encoding string

	// The SAS release used to create the file.
	SASRelease string

	// The server type used to create the file.
	ServerType string

	// The operating system type used to create the file.
	OSType string

	// The operating system name used to create the file.
	OSName string

	// The procedure that created the file, when recorded.
	Creator, CreatorProc string

	// Creation and modification times of the file.
	DateCreated, DateModified time.Time

	// True if the file uses 64-bit offsets.
	U64 bool

	// The byte order of the file.
	ByteOrder binary.ByteOrder

	// Length of the file header in bytes; pages start here.
	HeaderSize int

	// Size of each page in bytes.
	PageSize int

	// Number of pages in the file.
	PageCount int

	// The compression literal of the file ("", CompressionRLE or
	// CompressionRDC).  Filled in while the metadata pages are
	// parsed.
	Compression string

	encodingCode int
}

// layout collects the bitness-dependent constants used for all reads
// past the file header.
type layout struct {
	intLen          int
	pageBitOffset   int
	subheaderPtrLen int
}

// parseHeader reads and validates the file header, leaving r
// positioned at the first page boundary.
func parseHeader(r io.Reader) (*Header, layout, error) {

	var lay layout

	buf := make([]byte, fixedHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, lay, formatError(ErrTruncatedFile, -1, "", "file shorter than the %d byte fixed header", fixedHeaderSize)
	}
	if !bytes.Equal(buf[:len(magic)], []byte(magic)) {
		return nil, lay, formatError(ErrBadMagic, -1, "", "")
	}

	hdr := new(Header)

	// Alignment bytes select the bitness and shift later fields.
	var align1, align2 int
	switch buf[align1Offset] {
	case alignValue:
		hdr.U64 = true
		align2 = alignShift
	case 0x22:
		// 32-bit
	default:
		return nil, lay, formatError(ErrUnsupportedBitness, -1, "",
			"alignment byte 0x%02x at offset %d", buf[align1Offset], align1Offset)
	}
	switch buf[align2Offset] {
	case alignValue:
		align1 = alignShift
	case 0x22:
	default:
		return nil, lay, formatError(ErrUnsupportedBitness, -1, "",
			"alignment byte 0x%02x at offset %d", buf[align2Offset], align2Offset)
	}
	totalAlign := align1 + align2

	if buf[endiannessOffset] == 0x01 {
		hdr.ByteOrder = binary.LittleEndian
	} else {
		hdr.ByteOrder = binary.BigEndian
	}

	switch buf[platformOffset] {
	case '1':
		hdr.Platform = "unix"
	case '2':
		hdr.Platform = "windows"
	default:
		hdr.Platform = "unknown"
	}

	hdr.encodingCode = int(buf[encodingOffset])
	if name, ok := encodingNames[hdr.encodingCode]; ok {
		hdr.Encoding = name
	}

	lay.intLen = 4
	lay.pageBitOffset = pageBitOffset32
	lay.subheaderPtrLen = subheaderPtrLen32
	if hdr.U64 {
		lay.intLen = 8
		lay.pageBitOffset = pageBitOffset64
		lay.subheaderPtrLen = subheaderPtrLen64
	}

	cur := &cursor{buf: buf, order: hdr.ByteOrder, intLen: lay.intLen}

	hdr.Name = trimPadding(buf[datasetOffset : datasetOffset+datasetLength])
	hdr.FileType = trimPadding(buf[fileTypeOffset : fileTypeOffset+fileTypeLength])

	x, err := cur.floatAt(dateCreatedOffset + align1)
	if err != nil {
		return nil, lay, formatError(ErrTruncatedFile, -1, "", "creation date")
	}
	hdr.DateCreated = epochSeconds(x)
	x, err = cur.floatAt(dateModifiedOffset + align1)
	if err != nil {
		return nil, lay, formatError(ErrTruncatedFile, -1, "", "modification date")
	}
	hdr.DateModified = epochSeconds(x)

	hdr.HeaderSize, err = cur.intAt(headerSizeOffset+align1, 4)
	if err != nil || hdr.HeaderSize < fixedHeaderSize {
		return nil, lay, formatError(ErrMetadataInconsistent, -1, "",
			"header length %d", hdr.HeaderSize)
	}

	hdr.PageSize, err = cur.intAt(pageSizeOffset+align1, 4)
	if err != nil || hdr.PageSize <= 0 {
		return nil, lay, formatError(ErrMetadataInconsistent, -1, "",
			"page size %d", hdr.PageSize)
	}
	hdr.PageCount, err = cur.intAt(pageCountOffset+align1, 4+align2)
	if err != nil || hdr.PageCount < 1 {
		return nil, lay, formatError(ErrMetadataInconsistent, -1, "",
			"page count %d", hdr.PageCount)
	}

	read := func(offset, length int) string {
		b, err := cur.bytesAt(offset+totalAlign, length)
		if err != nil {
			return ""
		}
		return trimPadding(b)
	}
	hdr.SASRelease = read(sasReleaseOffset, sasReleaseLength)
	hdr.ServerType = read(serverTypeOffset, serverTypeLength)
	hdr.OSType = read(osVersionOffset, osVersionLength)
	hdr.OSName = read(osNameOffset, osNameLength)
	if hdr.OSName == "" {
		hdr.OSName = read(osMakerOffset, osMakerLength)
	}

	// Skip the remainder of the header so the reader is positioned
	// at the first page.
	if hdr.HeaderSize > fixedHeaderSize {
		if _, err := io.CopyN(io.Discard, r, int64(hdr.HeaderSize-fixedHeaderSize)); err != nil {
			return nil, lay, formatError(ErrTruncatedFile, -1, "",
				"file shorter than the declared %d byte header", hdr.HeaderSize)
		}
	}

	return hdr, lay, nil
}

func trimPadding(b []byte) string {
	return string(bytes.Trim(b, " \x00"))
}
