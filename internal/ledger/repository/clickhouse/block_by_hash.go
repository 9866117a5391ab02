package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// BlockByHash returns the block with the given hash including its
// transactions, or nil when the hash is unknown at the pinned height.
func (s *snapshot) BlockByHash(ctx context.Context, hash string) (*model.Block, error) {
	r := s.repo
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("block_by_hash", err, start)
	}()

	const headerQuery = `
SELECT version, prev_hash, merkle_root, block_time, bits, nonce
FROM ledger_blocks
WHERE network = ? AND hash = ? AND height <= ?
LIMIT 1`

	rows, err := r.conn.Query(ctx, headerQuery, r.network, hash, s.head.Height)
	if err != nil {
		return nil, fmt.Errorf("query block header: %w", err)
	}

	b := &model.Block{}
	found := rows.Next()
	if found {
		if err = rows.Scan(&b.Version, &b.PrevHash, &b.MerkleRoot, &b.Timestamp, &b.Bits, &b.Nonce); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan block header: %w", err)
		}
	}
	if err = rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}
	if !found {
		return nil, nil
	}

	txs, err := s.blockTransactions(ctx, hash)
	if err != nil {
		return nil, err
	}
	txids := make([]string, len(txs))
	for i := range txs {
		txids[i] = txs[i].Hash
	}
	inputs, err := s.inputsForTxIDs(ctx, txids)
	if err != nil {
		return nil, err
	}
	outputs, err := s.outputsForTxIDs(ctx, txids)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Inputs = inputs[txs[i].Hash]
		txs[i].Outputs = outputs[txs[i].Hash]
	}
	b.Transactions = txs

	return b, nil
}

// blockTransactions returns the transaction shells of a block in block order;
// inputs and outputs are filled in by the caller.
func (s *snapshot) blockTransactions(ctx context.Context, blockHash string) ([]model.Transaction, error) {
	const query = `
SELECT txid, version, lock_time
FROM ledger_transactions
WHERE network = ? AND block_hash = ?
ORDER BY tx_index ASC`

	rows, err := s.repo.conn.Query(ctx, query, s.repo.network, blockHash)
	if err != nil {
		return nil, fmt.Errorf("query block transactions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var txs []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		if err := rows.Scan(&tx.Hash, &tx.Version, &tx.LockTime); err != nil {
			return nil, fmt.Errorf("scan block transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block transactions: %w", err)
	}
	return txs, nil
}
