// Package cafd decodes coding-data container blobs into parameter records.
//
// A blob starts with a 32 byte header that carries versioning and checksum
// material this package does not interpret. The header is followed by a
// sequence of records, each a big-endian parameter id (2 bytes), a
// big-endian value length (2 bytes) and the value bytes themselves.
package cafd

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

const headerLen = 32

// Parameter is one decoded record from a coding blob.
type Parameter struct {
	ID    uint16
	Raw   []byte
	Value string
}

// DecodeError reports a blob too short to contain the fixed header.
type DecodeError struct {
	Len int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cafd: blob of %d bytes is shorter than the %d byte header", e.Len, headerLen)
}

// Decode parses every complete record in blob. A record whose declared
// length runs past the end of the blob terminates the walk; the records
// decoded up to that point are returned without error, since truncated
// dumps are common in the field.
func Decode(blob []byte) ([]Parameter, error) {
	if len(blob) < headerLen {
		return nil, &DecodeError{Len: len(blob)}
	}
	var params []Parameter
	offset := headerLen
	for offset+4 <= len(blob) {
		id := binary.BigEndian.Uint16(blob[offset:])
		length := int(binary.BigEndian.Uint16(blob[offset+2:]))
		offset += 4
		if offset+length > len(blob) {
			break
		}
		raw := append([]byte(nil), blob[offset:offset+length]...)
		offset += length
		params = append(params, Parameter{ID: id, Raw: raw, Value: renderValue(raw)})
	}
	return params, nil
}

// renderValue shows a record value as text when it is valid UTF-8, with
// trailing NUL padding stripped, and falls back to hex otherwise.
func renderValue(raw []byte) string {
	trimmed := strings.TrimRight(string(raw), "\x00")
	if utf8.ValidString(trimmed) {
		return trimmed
	}
	return hex.EncodeToString(raw)
}
