// Package wire implements the codec between domain types and the byte
// payloads carried on the bus. The format follows the btcd serialization
// idiom: little-endian fixed-width fields plus var-int prefixed strings and
// lists.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	btcwire "github.com/btcsuite/btcd/wire"
)

// pver is passed to the btcd primitives; the payload format is versioned by
// topic, not by this value.
const pver uint32 = 0

// maxListLen bounds decoded list lengths so a malformed length prefix cannot
// drive allocation.
const maxListLen = 1 << 18

// DecodeError reports a malformed payload.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(typ string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Type: typ, Err: err}
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader, v *uint32) error {
	return binary.Read(r, binary.LittleEndian, v)
}

func writeUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint64(r io.Reader, v *uint64) error {
	return binary.Read(r, binary.LittleEndian, v)
}

func writeInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt64(r io.Reader, v *int64) error {
	return binary.Read(r, binary.LittleEndian, v)
}

func writeCount(w io.Writer, n int) error {
	return btcwire.WriteVarInt(w, pver, uint64(n))
}

func readCount(r io.Reader) (int, error) {
	n, err := btcwire.ReadVarInt(r, pver)
	if err != nil {
		return 0, err
	}
	if n > maxListLen {
		return 0, fmt.Errorf("list length %d exceeds limit %d", n, maxListLen)
	}
	return int(n), nil
}

func writeBytes(w io.Writer, b []byte) error {
	return btcwire.WriteVarBytes(w, pver, b)
}

// readBytes decodes a var-bytes field. A zero-length field decodes as nil:
// the codec does not distinguish nil from an empty slice, and nil is the
// canonical form on the decode side.
func readBytes(r io.Reader, field string) ([]byte, error) {
	b, err := btcwire.ReadVarBytes(r, pver, btcwire.MaxMessagePayload, field)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return b, nil
}

func writeString(w io.Writer, s string) error {
	return btcwire.WriteVarString(w, pver, s)
}

func readString(r io.Reader) (string, error) {
	return btcwire.ReadVarString(r, pver)
}

// finish rejects trailing garbage so that every valid payload has exactly one
// encoding.
func finish(r *bytes.Reader) error {
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes", r.Len())
	}
	return nil
}
