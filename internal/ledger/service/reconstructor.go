package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// Reconstructor rebuilds per-address account statements from the store's
// output index.
type Reconstructor struct {
	logger *zap.Logger
}

// NewReconstructor builds a Reconstructor.
func NewReconstructor(logger *zap.Logger) *Reconstructor {
	return &Reconstructor{logger: logger}
}

// Statement computes the account statement for the addresses from the given
// time (inclusive) against one consistent snapshot.
//
// The candidate balance map starts as the live unspent set. Outputs spent
// inside the window are posted as spends and reinserted, since they were
// still outstanding at the window start. Outputs received inside the window
// are posted as receipts and removed, since they did not exist at the window
// start. What remains is the opening balance.
func (r *Reconstructor) Statement(ctx context.Context, snap chain.Snapshot, addresses []string, from int64) (*model.AccountStatement, error) {
	head, err := snap.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain head: %w", err)
	}

	statement := &model.AccountStatement{
		Timestamp: head.Time,
		LastBlock: head.Hash,
	}

	unspent, err := snap.UnspentOutputs(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("read unspent outputs: %w", err)
	}
	candidates := make(map[model.OutPoint]model.TxOut, len(unspent))
	for _, out := range unspent {
		candidates[out.OutPoint()] = out
	}

	spends, err := snap.SpentOutputs(ctx, addresses, from)
	if err != nil {
		return nil, fmt.Errorf("read spent outputs: %w", err)
	}
	// A multi-owner output can match several queried addresses; it still
	// contributes exactly one posting.
	postedSpends := make(map[model.OutPoint]struct{}, len(spends))
	for _, spend := range spends {
		op := spend.Output.OutPoint()
		if _, ok := postedSpends[op]; ok {
			continue
		}
		postedSpends[op] = struct{}{}

		statement.Postings = append(statement.Postings, model.Posting{
			Timestamp: spend.SpendTime,
			Output:    spend.Output,
			Spent:     spend.SpendingTx,
		})
		// Spent now, but outstanding at the window start.
		candidates[op] = spend.Output
	}

	received, err := snap.ReceivedOutputs(ctx, addresses, from)
	if err != nil {
		return nil, fmt.Errorf("read received outputs: %w", err)
	}
	postedReceipts := make(map[model.OutPoint]struct{}, len(received))
	for _, out := range received {
		op := out.OutPoint()
		if _, ok := postedReceipts[op]; ok {
			continue
		}
		postedReceipts[op] = struct{}{}

		statement.Postings = append(statement.Postings, model.Posting{
			Timestamp: out.BlockTime,
			Output:    out,
		})
		// Arrived inside the window, so not part of the opening balance.
		delete(candidates, op)
	}

	statement.Opening = make([]model.TxOut, 0, len(candidates))
	for _, out := range candidates {
		statement.Opening = append(statement.Opening, out)
	}
	sort.Slice(statement.Opening, func(i, j int) bool {
		a, b := statement.Opening[i], statement.Opening[j]
		if a.TxHash != b.TxHash {
			return a.TxHash < b.TxHash
		}
		return a.Index < b.Index
	})

	// Receipts sort before spends at equal timestamps.
	sort.SliceStable(statement.Postings, func(i, j int) bool {
		a, b := statement.Postings[i], statement.Postings[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.IsReceipt() && !b.IsReceipt()
	})

	r.logger.Debug("account statement reconstructed",
		zap.Int("addresses", len(addresses)),
		zap.Int64("from", from),
		zap.Int("opening", len(statement.Opening)),
		zap.Int("postings", len(statement.Postings)))

	return statement, nil
}
