package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// TransactionByHash returns the confirmed transaction with the given hash,
// or nil when the index has no row for it at the pinned height.
func (s *snapshot) TransactionByHash(ctx context.Context, hash string) (*model.Transaction, error) {
	r := s.repo
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("transaction_by_hash", err, start)
	}()

	const query = `
SELECT version, lock_time
FROM ledger_transactions
WHERE network = ? AND txid = ? AND block_height <= ?
LIMIT 1`

	rows, err := r.conn.Query(ctx, query, r.network, hash, s.head.Height)
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	tx := &model.Transaction{Hash: hash}
	found := rows.Next()
	if found {
		if err = rows.Scan(&tx.Version, &tx.LockTime); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
	}
	if err = rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}
	if !found {
		return nil, nil
	}

	if err = s.assembleTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// assembleTransaction joins the input and output rows of one transaction.
func (s *snapshot) assembleTransaction(ctx context.Context, tx *model.Transaction) error {
	inputs, err := s.inputsForTxIDs(ctx, []string{tx.Hash})
	if err != nil {
		return err
	}
	outputs, err := s.outputsForTxIDs(ctx, []string{tx.Hash})
	if err != nil {
		return err
	}
	tx.Inputs = inputs[tx.Hash]
	tx.Outputs = outputs[tx.Hash]
	return nil
}

// inputsForTxIDs returns the inputs of the given transactions keyed by
// spending txid, ordered by input index.
func (s *snapshot) inputsForTxIDs(ctx context.Context, txids []string) (map[string][]model.TxIn, error) {
	result := make(map[string][]model.TxIn, len(txids))
	if len(txids) == 0 {
		return result, nil
	}

	const query = `
SELECT txid, source_txid, source_index, script_hex, witness_hex, sequence, block_time
FROM ledger_inputs
WHERE network = ? AND txid IN ?
ORDER BY txid ASC, input_index ASC`

	rows, err := s.repo.conn.Query(ctx, query, s.repo.network, txids)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var in model.TxIn
		var scriptHex string
		var witnessHex []string
		if err := rows.Scan(&in.TxHash, &in.SourceHash, &in.SourceIndex,
			&scriptHex, &witnessHex, &in.Sequence, &in.BlockTime); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		if in.Script, err = decodeScriptHex(scriptHex); err != nil {
			return nil, fmt.Errorf("input %s:%d script: %w", in.SourceHash, in.SourceIndex, err)
		}
		for _, itemHex := range witnessHex {
			item, wErr := decodeScriptHex(itemHex)
			if wErr != nil {
				return nil, fmt.Errorf("input %s:%d witness: %w", in.SourceHash, in.SourceIndex, wErr)
			}
			in.Witness = append(in.Witness, item)
		}
		result[in.TxHash] = append(result[in.TxHash], in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return result, nil
}

// outputsForTxIDs returns the outputs of the given transactions keyed by
// txid, ordered by output index.
func (s *snapshot) outputsForTxIDs(ctx context.Context, txids []string) (map[string][]model.TxOut, error) {
	result := make(map[string][]model.TxOut, len(txids))
	if len(txids) == 0 {
		return result, nil
	}

	const query = `
SELECT txid, output_index, value, script_hex, addresses, block_time
FROM ledger_outputs
WHERE network = ? AND txid IN ?
ORDER BY txid ASC, output_index ASC`

	rows, err := s.repo.conn.Query(ctx, query, s.repo.network, txids)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var out model.TxOut
		var scriptHex string
		if err := rows.Scan(&out.TxHash, &out.Index, &out.Value, &scriptHex, &out.Addresses, &out.BlockTime); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		if out.Script, err = decodeScriptHex(scriptHex); err != nil {
			return nil, fmt.Errorf("output %s:%d: %w", out.TxHash, out.Index, err)
		}
		result[out.TxHash] = append(result[out.TxHash], out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outputs: %w", err)
	}
	return result, nil
}
