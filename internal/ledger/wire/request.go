package wire

import (
	"bytes"
	"fmt"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// EncodeHash serializes a hash lookup request.
func EncodeHash(hash string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeString(&buf, hash); err != nil {
		return nil, fmt.Errorf("encode hash: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeHash parses a hash lookup request.
func DecodeHash(payload []byte) (string, error) {
	r := bytes.NewReader(payload)
	hash, err := readString(r)
	if err == nil {
		err = finish(r)
	}
	if err == nil && !model.ValidHexHash(hash) {
		err = fmt.Errorf("malformed hash %q", hash)
	}
	if err != nil {
		return "", decodeErr("hash", err)
	}
	return hash, nil
}

// AccountRequest asks for the statement of a set of addresses from a point in
// time (inclusive, unix seconds).
type AccountRequest struct {
	Addresses []string
	From      int64
}

// EncodeAccountRequest serializes an account statement request.
func EncodeAccountRequest(req *AccountRequest) ([]byte, error) {
	var buf bytes.Buffer
	err := writeCount(&buf, len(req.Addresses))
	for _, addr := range req.Addresses {
		if err != nil {
			break
		}
		err = writeString(&buf, addr)
	}
	if err == nil {
		err = writeInt64(&buf, req.From)
	}
	if err != nil {
		return nil, fmt.Errorf("encode account request: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAccountRequest parses an account statement request.
func DecodeAccountRequest(payload []byte) (*AccountRequest, error) {
	r := bytes.NewReader(payload)
	req := &AccountRequest{}
	n, err := readCount(r)
	if err != nil {
		return nil, decodeErr("account request", err)
	}
	for i := 0; i < n; i++ {
		addr, err := readString(r)
		if err != nil {
			return nil, decodeErr("account request", err)
		}
		req.Addresses = append(req.Addresses, addr)
	}
	if err = readInt64(r, &req.From); err != nil {
		return nil, decodeErr("account request", err)
	}
	if err = finish(r); err != nil {
		return nil, decodeErr("account request", err)
	}
	return req, nil
}
