package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// EncodeTransaction serializes a transaction for the bus.
func EncodeTransaction(tx *model.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTransaction(&buf, tx); err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTransaction parses a bus payload into a transaction.
func DecodeTransaction(payload []byte) (*model.Transaction, error) {
	r := bytes.NewReader(payload)
	tx, err := decodeTransaction(r)
	if err == nil {
		err = finish(r)
	}
	if err != nil {
		return nil, decodeErr("transaction", err)
	}
	return tx, nil
}

func encodeTransaction(w io.Writer, tx *model.Transaction) error {
	if err := writeString(w, tx.Hash); err != nil {
		return err
	}
	if err := writeUint32(w, tx.Version); err != nil {
		return err
	}
	if err := writeUint32(w, tx.LockTime); err != nil {
		return err
	}
	if err := writeCount(w, len(tx.Inputs)); err != nil {
		return err
	}
	for _, in := range tx.Inputs {
		if err := encodeTxIn(w, in); err != nil {
			return err
		}
	}
	if err := writeCount(w, len(tx.Outputs)); err != nil {
		return err
	}
	for _, out := range tx.Outputs {
		if err := encodeTxOut(w, out); err != nil {
			return err
		}
	}
	return nil
}

func decodeTransaction(r *bytes.Reader) (*model.Transaction, error) {
	tx := &model.Transaction{}
	var err error
	if tx.Hash, err = readString(r); err != nil {
		return nil, err
	}
	if err = readUint32(r, &tx.Version); err != nil {
		return nil, err
	}
	if err = readUint32(r, &tx.LockTime); err != nil {
		return nil, err
	}
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		in, err := decodeTxIn(r)
		if err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}
	if n, err = readCount(r); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		out, err := decodeTxOut(r)
		if err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}
	return tx, nil
}

func encodeTxIn(w io.Writer, in model.TxIn) error {
	if err := writeString(w, in.SourceHash); err != nil {
		return err
	}
	if err := writeUint32(w, in.SourceIndex); err != nil {
		return err
	}
	if err := writeBytes(w, in.Script); err != nil {
		return err
	}
	if err := writeCount(w, len(in.Witness)); err != nil {
		return err
	}
	for _, item := range in.Witness {
		if err := writeBytes(w, item); err != nil {
			return err
		}
	}
	if err := writeUint32(w, in.Sequence); err != nil {
		return err
	}
	if err := writeString(w, in.TxHash); err != nil {
		return err
	}
	return writeInt64(w, in.BlockTime)
}

func decodeTxIn(r io.Reader) (model.TxIn, error) {
	var in model.TxIn
	var err error
	if in.SourceHash, err = readString(r); err != nil {
		return in, err
	}
	if err = readUint32(r, &in.SourceIndex); err != nil {
		return in, err
	}
	if in.Script, err = readBytes(r, "input script"); err != nil {
		return in, err
	}
	n, err := readCount(r)
	if err != nil {
		return in, err
	}
	for i := 0; i < n; i++ {
		item, err := readBytes(r, "witness item")
		if err != nil {
			return in, err
		}
		in.Witness = append(in.Witness, item)
	}
	if err = readUint32(r, &in.Sequence); err != nil {
		return in, err
	}
	if in.TxHash, err = readString(r); err != nil {
		return in, err
	}
	err = readInt64(r, &in.BlockTime)
	return in, err
}

func encodeTxOut(w io.Writer, out model.TxOut) error {
	if len(out.Addresses) > model.MaxOutputOwners {
		return fmt.Errorf("output %s:%d has %d owners, limit %d",
			out.TxHash, out.Index, len(out.Addresses), model.MaxOutputOwners)
	}
	if err := writeString(w, out.TxHash); err != nil {
		return err
	}
	if err := writeUint32(w, out.Index); err != nil {
		return err
	}
	if err := writeUint64(w, out.Value); err != nil {
		return err
	}
	if err := writeBytes(w, out.Script); err != nil {
		return err
	}
	if err := writeCount(w, len(out.Addresses)); err != nil {
		return err
	}
	for _, addr := range out.Addresses {
		if err := writeString(w, addr); err != nil {
			return err
		}
	}
	return writeInt64(w, out.BlockTime)
}

func decodeTxOut(r io.Reader) (model.TxOut, error) {
	var out model.TxOut
	var err error
	if out.TxHash, err = readString(r); err != nil {
		return out, err
	}
	if err = readUint32(r, &out.Index); err != nil {
		return out, err
	}
	if err = readUint64(r, &out.Value); err != nil {
		return out, err
	}
	if out.Script, err = readBytes(r, "output script"); err != nil {
		return out, err
	}
	n, err := readCount(r)
	if err != nil {
		return out, err
	}
	if n > model.MaxOutputOwners {
		return out, fmt.Errorf("output owner count %d exceeds %d", n, model.MaxOutputOwners)
	}
	for i := 0; i < n; i++ {
		addr, err := readString(r)
		if err != nil {
			return out, err
		}
		out.Addresses = append(out.Addresses, addr)
	}
	err = readInt64(r, &out.BlockTime)
	return out, err
}

// EncodeTxOut serializes a standalone output (statement opening entries).
func EncodeTxOut(out model.TxOut) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTxOut(&buf, out); err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTxOut parses a standalone output payload.
func DecodeTxOut(payload []byte) (model.TxOut, error) {
	r := bytes.NewReader(payload)
	out, err := decodeTxOut(r)
	if err == nil {
		err = finish(r)
	}
	if err != nil {
		return model.TxOut{}, decodeErr("output", err)
	}
	return out, nil
}
