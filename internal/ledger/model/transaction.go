// Package model defines the domain types exchanged between the chain engine,
// the relay gateway and bus subscribers.
package model

// MaxOutputOwners caps the number of owner addresses carried per output.
// Multi-signature scripts resolve to several addresses; anything beyond
// three is not representable on the wire.
const MaxOutputOwners = 3

// OutPoint identifies a transaction output.
type OutPoint struct {
	TxHash string
	Index  uint32
}

// TxOut is a single transaction output together with the block time it was
// confirmed at. Identity is (TxHash, Index). Addresses are the owners
// resolved from Script; BlockTime is zero while unconfirmed.
type TxOut struct {
	TxHash    string
	Index     uint32
	Value     uint64
	Script    []byte
	Addresses []string
	BlockTime int64
}

// OutPoint returns the identity key of the output.
func (o TxOut) OutPoint() OutPoint {
	return OutPoint{TxHash: o.TxHash, Index: o.Index}
}

// TxIn references the output it spends. SourceHash/SourceIndex point at the
// spent output, TxHash names the spending transaction.
type TxIn struct {
	SourceHash  string
	SourceIndex uint32
	Script      []byte
	Witness     [][]byte
	Sequence    uint32
	TxHash      string
	BlockTime   int64
}

// Transaction is the wire-level view of a signed transaction.
type Transaction struct {
	Hash     string
	Version  uint32
	LockTime uint32
	Inputs   []TxIn
	Outputs  []TxOut
}
