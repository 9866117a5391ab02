// Package chain defines the narrow interfaces through which the relay
// consumes the chain engine: the persisted output index, a consistent read
// snapshot of it, and the validate-and-broadcast entry point.
package chain

import (
	"context"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// BlockSummary identifies a chain position.
type BlockSummary struct {
	Hash   string
	Height uint64
	Time   int64
}

// Spend pairs a spent output with the transaction that consumed it.
type Spend struct {
	Output     model.TxOut
	SpendingTx string
	SpendTime  int64
}

// Store hands out consistent read snapshots of the engine's output index.
type Store interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is a consistent, read-only view of the store at one point in
// time. Lookups report a miss as a nil result without error. Callers must
// Close the snapshot when done.
type Snapshot interface {
	// Head returns the best chain position the snapshot is pinned to.
	Head(ctx context.Context) (BlockSummary, error)
	// BlockByHash returns the block with the given hash, or nil.
	BlockByHash(ctx context.Context, hash string) (*model.Block, error)
	// TransactionByHash returns the confirmed transaction with the given
	// hash, or nil.
	TransactionByHash(ctx context.Context, hash string) (*model.Transaction, error)
	// UnspentOutputs returns the outputs owned by the addresses that are
	// unspent as of the snapshot head.
	UnspentOutputs(ctx context.Context, addresses []string) ([]model.TxOut, error)
	// SpentOutputs returns the outputs owned by the addresses whose spend
	// confirmed at or after from.
	SpentOutputs(ctx context.Context, addresses []string, from int64) ([]Spend, error)
	// ReceivedOutputs returns the outputs owned by the addresses that
	// confirmed at or after from.
	ReceivedOutputs(ctx context.Context, addresses []string, from int64) ([]model.TxOut, error)

	Close() error
}

// Engine is the validate-and-broadcast entry point plus the pending pool of
// transactions seen but not yet confirmed.
type Engine interface {
	// SubmitTransaction validates a transaction and relays it to peers.
	SubmitTransaction(ctx context.Context, tx *model.Transaction) error
	// SubmitBlock validates a block, stores it and relays it to peers.
	SubmitBlock(ctx context.Context, b *model.Block) error
	// PendingTransaction returns a not-yet-confirmed transaction by hash,
	// or nil.
	PendingTransaction(ctx context.Context, hash string) (*model.Transaction, error)
}
