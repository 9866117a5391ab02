package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// ReceivedOutputs returns the outputs owned by the addresses that confirmed
// at or after from, up to the pinned head.
func (s *snapshot) ReceivedOutputs(ctx context.Context, addresses []string, from int64) ([]model.TxOut, error) {
	r := s.repo
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("received_outputs", err, start)
	}()

	if len(addresses) == 0 {
		return nil, nil
	}

	const query = `
SELECT txid, output_index, value, script_hex, addresses, block_time
FROM ledger_outputs
WHERE network = ?
  AND hasAny(addresses, ?)
  AND block_time >= ?
  AND block_height <= ?
ORDER BY block_time ASC, txid ASC, output_index ASC`

	rows, err := r.conn.Query(ctx, query, r.network, addresses, from, s.head.Height)
	if err != nil {
		return nil, fmt.Errorf("query received outputs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var outputs []model.TxOut
	for rows.Next() {
		var out model.TxOut
		var scriptHex string
		if err = rows.Scan(&out.TxHash, &out.Index, &out.Value, &scriptHex, &out.Addresses, &out.BlockTime); err != nil {
			return nil, fmt.Errorf("scan received output: %w", err)
		}
		if out.Script, err = decodeScriptHex(scriptHex); err != nil {
			return nil, fmt.Errorf("received output %s:%d: %w", out.TxHash, out.Index, err)
		}
		outputs = append(outputs, out)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate received outputs: %w", err)
	}
	return outputs, nil
}
