package model

// Posting is one ledger line item. Spent carries the hash of the spending
// transaction; an empty Spent marks a receipt that was still unspent at
// statement time.
type Posting struct {
	Timestamp int64
	Output    TxOut
	Spent     string
}

// IsReceipt reports whether the posting records an incoming, still unspent
// output.
func (p Posting) IsReceipt() bool {
	return p.Spent == ""
}

// AccountStatement is the reconstructed ledger for a set of addresses.
// Opening holds the outputs unspent before the statement window, Postings the
// time-ordered debits and credits inside it. LastBlock/Timestamp name the
// chain position the snapshot is valid as of.
type AccountStatement struct {
	Timestamp int64
	LastBlock string
	Opening   []TxOut
	Postings  []Posting
}
