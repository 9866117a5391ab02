package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// EncodeBlock serializes a block for the bus.
func EncodeBlock(b *model.Block) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeBlock(&buf, b); err != nil {
		return nil, fmt.Errorf("encode block: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBlock parses a bus payload into a block.
func DecodeBlock(payload []byte) (*model.Block, error) {
	r := bytes.NewReader(payload)
	b, err := decodeBlock(r)
	if err == nil {
		err = finish(r)
	}
	if err != nil {
		return nil, decodeErr("block", err)
	}
	return b, nil
}

func encodeBlock(w io.Writer, b *model.Block) error {
	if err := writeUint32(w, b.Version); err != nil {
		return err
	}
	if err := writeString(w, b.PrevHash); err != nil {
		return err
	}
	if err := writeString(w, b.MerkleRoot); err != nil {
		return err
	}
	if err := writeInt64(w, b.Timestamp); err != nil {
		return err
	}
	if err := writeUint32(w, b.Bits); err != nil {
		return err
	}
	if err := writeUint32(w, b.Nonce); err != nil {
		return err
	}
	if err := writeCount(w, len(b.Transactions)); err != nil {
		return err
	}
	for i := range b.Transactions {
		if err := encodeTransaction(w, &b.Transactions[i]); err != nil {
			return err
		}
	}
	return nil
}

func decodeBlock(r *bytes.Reader) (*model.Block, error) {
	b := &model.Block{}
	var err error
	if err = readUint32(r, &b.Version); err != nil {
		return nil, err
	}
	if b.PrevHash, err = readString(r); err != nil {
		return nil, err
	}
	if !model.ValidHexHash(b.PrevHash) {
		return nil, fmt.Errorf("malformed previous hash %q", b.PrevHash)
	}
	if b.MerkleRoot, err = readString(r); err != nil {
		return nil, err
	}
	// Template headers carry no merkle root until the miner finalizes them.
	if b.MerkleRoot != "" && !model.ValidHexHash(b.MerkleRoot) {
		return nil, fmt.Errorf("malformed merkle root %q", b.MerkleRoot)
	}
	if err = readInt64(r, &b.Timestamp); err != nil {
		return nil, err
	}
	if err = readUint32(r, &b.Bits); err != nil {
		return nil, err
	}
	if err = readUint32(r, &b.Nonce); err != nil {
		return nil, err
	}
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		tx, err := decodeTransaction(r)
		if err != nil {
			return nil, err
		}
		b.Transactions = append(b.Transactions, *tx)
	}
	return b, nil
}

// EncodeTrunkUpdate serializes a reorganization step, preserving list order.
func EncodeTrunkUpdate(tu *model.TrunkUpdate) ([]byte, error) {
	var buf bytes.Buffer
	err := writeCount(&buf, len(tu.Removed))
	for _, b := range tu.Removed {
		if err != nil {
			break
		}
		err = encodeBlock(&buf, b)
	}
	if err == nil {
		err = writeCount(&buf, len(tu.Added))
	}
	for _, b := range tu.Added {
		if err != nil {
			break
		}
		err = encodeBlock(&buf, b)
	}
	if err != nil {
		return nil, fmt.Errorf("encode trunk update: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTrunkUpdate parses a reorganization payload.
func DecodeTrunkUpdate(payload []byte) (*model.TrunkUpdate, error) {
	r := bytes.NewReader(payload)
	tu, err := decodeTrunkUpdate(r)
	if err == nil {
		err = finish(r)
	}
	if err != nil {
		return nil, decodeErr("trunk update", err)
	}
	return tu, nil
}

func decodeTrunkUpdate(r *bytes.Reader) (*model.TrunkUpdate, error) {
	tu := &model.TrunkUpdate{}
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		b, err := decodeBlock(r)
		if err != nil {
			return nil, err
		}
		tu.Removed = append(tu.Removed, b)
	}
	if n, err = readCount(r); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		b, err := decodeBlock(r)
		if err != nil {
			return nil, err
		}
		tu.Added = append(tu.Added, b)
	}
	return tu, nil
}
