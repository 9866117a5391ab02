package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Block is the wire-level view of a block. The content hash is derived from
// the header and memoized on first use; a Block must not be mutated after
// construction.
type Block struct {
	Version      uint32
	PrevHash     string
	MerkleRoot   string
	Timestamp    int64
	Bits         uint32
	Nonce        uint32
	Transactions []Transaction

	hashOnce sync.Once
	hash     string
}

// Hash returns the double-SHA256 of the serialized header, hex encoded.
func (b *Block) Hash() string {
	b.hashOnce.Do(func() {
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, b.Version)
		writeHeaderHash(&buf, b.PrevHash)
		writeHeaderHash(&buf, b.MerkleRoot)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(b.Timestamp))
		_ = binary.Write(&buf, binary.LittleEndian, b.Bits)
		_ = binary.Write(&buf, binary.LittleEndian, b.Nonce)

		digest := chainhash.DoubleHashH(buf.Bytes())
		b.hash = digest.String()
	})
	return b.hash
}

// writeHeaderHash serializes a hex hash in the internal byte order used for
// header hashing. A malformed hash contributes its raw bytes so that Hash
// stays total; decoding rejects such blocks before they reach consumers.
func writeHeaderHash(buf *bytes.Buffer, h string) {
	parsed, err := chainhash.NewHashFromStr(h)
	if err != nil {
		buf.WriteString(h)
		return
	}
	buf.Write(parsed[:])
}

// HexHashLen is the length of a hex-encoded double-SHA256 hash.
const HexHashLen = chainhash.HashSize * 2

// ValidHexHash reports whether s is a well-formed hex hash.
func ValidHexHash(s string) bool {
	if len(s) != HexHashLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
