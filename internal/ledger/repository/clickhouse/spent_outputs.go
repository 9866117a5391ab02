package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// SpentOutputs returns the outputs owned by the addresses whose spend
// confirmed at or after from, up to the pinned head.
func (s *snapshot) SpentOutputs(ctx context.Context, addresses []string, from int64) ([]chain.Spend, error) {
	r := s.repo
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("spent_outputs", err, start)
	}()

	if len(addresses) == 0 {
		return nil, nil
	}

	const query = `
SELECT txid, output_index, value, script_hex, addresses, block_time, spent_txid, spent_time
FROM ledger_outputs
WHERE network = ?
  AND hasAny(addresses, ?)
  AND spent_txid != ''
  AND spent_time >= ?
  AND spent_height <= ?
ORDER BY spent_time ASC, txid ASC, output_index ASC`

	rows, err := r.conn.Query(ctx, query, r.network, addresses, from, s.head.Height)
	if err != nil {
		return nil, fmt.Errorf("query spent outputs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var spends []chain.Spend
	for rows.Next() {
		var (
			out       model.TxOut
			spend     chain.Spend
			scriptHex string
		)
		if err = rows.Scan(&out.TxHash, &out.Index, &out.Value, &scriptHex, &out.Addresses, &out.BlockTime,
			&spend.SpendingTx, &spend.SpendTime); err != nil {
			return nil, fmt.Errorf("scan spent output: %w", err)
		}
		if out.Script, err = decodeScriptHex(scriptHex); err != nil {
			return nil, fmt.Errorf("spent output %s:%d: %w", out.TxHash, out.Index, err)
		}
		spend.Output = out
		spends = append(spends, spend)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spent outputs: %w", err)
	}
	return spends, nil
}
