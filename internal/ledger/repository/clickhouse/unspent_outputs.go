package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
	"github.com/goodnatureofminers/chainrelay7000-backend/pkg/workerpool"
)

// UnspentOutputs returns the outputs owned by the addresses that are unspent
// at the pinned head. Large address sets are split into chunks queried by a
// bounded worker pool.
func (s *snapshot) UnspentOutputs(ctx context.Context, addresses []string) ([]model.TxOut, error) {
	r := s.repo
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("unspent_outputs", err, start)
	}()

	if len(addresses) == 0 {
		return nil, nil
	}

	chunks := chunkAddresses(addresses, r.unspentChunkSize)

	var mu sync.Mutex
	var outputs []model.TxOut
	err = workerpool.Process(ctx, r.unspentWorkers, chunks,
		func(ctx context.Context, chunk []string) error {
			part, qErr := s.unspentChunk(ctx, chunk)
			if qErr != nil {
				return qErr
			}
			mu.Lock()
			outputs = append(outputs, part...)
			mu.Unlock()
			return nil
		}, nil)
	if err != nil {
		return nil, err
	}

	// Chunks complete in arbitrary order; a stable result keeps downstream
	// reconciliation deterministic.
	sort.Slice(outputs, func(i, j int) bool {
		if outputs[i].TxHash != outputs[j].TxHash {
			return outputs[i].TxHash < outputs[j].TxHash
		}
		return outputs[i].Index < outputs[j].Index
	})
	return dedupeOutputs(outputs), nil
}

func (s *snapshot) unspentChunk(ctx context.Context, addresses []string) ([]model.TxOut, error) {
	const query = `
SELECT txid, output_index, value, script_hex, addresses, block_time
FROM ledger_outputs
WHERE network = ?
  AND hasAny(addresses, ?)
  AND block_height <= ?
  AND (spent_txid = '' OR spent_height > ?)`

	rows, err := s.repo.conn.Query(ctx, query, s.repo.network, addresses, s.head.Height, s.head.Height)
	if err != nil {
		return nil, fmt.Errorf("query unspent outputs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var outputs []model.TxOut
	for rows.Next() {
		var out model.TxOut
		var scriptHex string
		if err := rows.Scan(&out.TxHash, &out.Index, &out.Value, &scriptHex, &out.Addresses, &out.BlockTime); err != nil {
			return nil, fmt.Errorf("scan unspent output: %w", err)
		}
		var scriptErr error
		if out.Script, scriptErr = decodeScriptHex(scriptHex); scriptErr != nil {
			return nil, fmt.Errorf("unspent output %s:%d: %w", out.TxHash, out.Index, scriptErr)
		}
		outputs = append(outputs, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unspent outputs: %w", err)
	}
	return outputs, nil
}

func chunkAddresses(addresses []string, size int) [][]string {
	if size <= 0 {
		size = len(addresses)
	}
	var chunks [][]string
	for len(addresses) > size {
		chunks = append(chunks, addresses[:size])
		addresses = addresses[size:]
	}
	return append(chunks, addresses)
}

// dedupeOutputs drops adjacent duplicates from a sorted slice; an output
// owned by two queried addresses lands in two chunks.
func dedupeOutputs(outputs []model.TxOut) []model.TxOut {
	if len(outputs) < 2 {
		return outputs
	}
	deduped := outputs[:1]
	for _, out := range outputs[1:] {
		last := deduped[len(deduped)-1]
		if out.TxHash == last.TxHash && out.Index == last.Index {
			continue
		}
		deduped = append(deduped, out)
	}
	return deduped
}
