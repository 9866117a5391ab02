package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// EncodeAccountStatement serializes a reconstructed statement.
func EncodeAccountStatement(st *model.AccountStatement) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeAccountStatement(&buf, st); err != nil {
		return nil, fmt.Errorf("encode account statement: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAccountStatement parses a statement payload.
func DecodeAccountStatement(payload []byte) (*model.AccountStatement, error) {
	r := bytes.NewReader(payload)
	st, err := decodeAccountStatement(r)
	if err == nil {
		err = finish(r)
	}
	if err != nil {
		return nil, decodeErr("account statement", err)
	}
	return st, nil
}

func encodeAccountStatement(w io.Writer, st *model.AccountStatement) error {
	if err := writeInt64(w, st.Timestamp); err != nil {
		return err
	}
	if err := writeString(w, st.LastBlock); err != nil {
		return err
	}
	if err := writeCount(w, len(st.Opening)); err != nil {
		return err
	}
	for _, out := range st.Opening {
		if err := encodeTxOut(w, out); err != nil {
			return err
		}
	}
	if err := writeCount(w, len(st.Postings)); err != nil {
		return err
	}
	for _, p := range st.Postings {
		if err := encodePosting(w, p); err != nil {
			return err
		}
	}
	return nil
}

func decodeAccountStatement(r *bytes.Reader) (*model.AccountStatement, error) {
	st := &model.AccountStatement{}
	var err error
	if err = readInt64(r, &st.Timestamp); err != nil {
		return nil, err
	}
	if st.LastBlock, err = readString(r); err != nil {
		return nil, err
	}
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		out, err := decodeTxOut(r)
		if err != nil {
			return nil, err
		}
		st.Opening = append(st.Opening, out)
	}
	if n, err = readCount(r); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		p, err := decodePosting(r)
		if err != nil {
			return nil, err
		}
		st.Postings = append(st.Postings, p)
	}
	return st, nil
}

func encodePosting(w io.Writer, p model.Posting) error {
	if err := writeInt64(w, p.Timestamp); err != nil {
		return err
	}
	if err := encodeTxOut(w, p.Output); err != nil {
		return err
	}
	return writeString(w, p.Spent)
}

func decodePosting(r io.Reader) (model.Posting, error) {
	var p model.Posting
	var err error
	if err = readInt64(r, &p.Timestamp); err != nil {
		return p, err
	}
	if p.Output, err = decodeTxOut(r); err != nil {
		return p, err
	}
	p.Spent, err = readString(r)
	return p, err
}
