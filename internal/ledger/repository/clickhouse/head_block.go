package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
)

// headBlock returns the best chain position known to the index.
func (r *Repository) headBlock(ctx context.Context) (chain.BlockSummary, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("head_block", err, start)
	}()

	const query = `
SELECT hash, height, block_time
FROM ledger_blocks
WHERE network = ?
ORDER BY height DESC
LIMIT 1`

	rows, err := r.conn.Query(ctx, query, r.network)
	if err != nil {
		return chain.BlockSummary{}, fmt.Errorf("query head block: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", cerr)
		}
	}()

	var head chain.BlockSummary
	if !rows.Next() {
		err = fmt.Errorf("no blocks indexed for network %s", r.network)
		return chain.BlockSummary{}, err
	}
	if err = rows.Scan(&head.Hash, &head.Height, &head.Time); err != nil {
		return chain.BlockSummary{}, fmt.Errorf("scan head block: %w", err)
	}
	if err = rows.Err(); err != nil {
		return chain.BlockSummary{}, fmt.Errorf("iterate head block: %w", err)
	}

	return head, nil
}
