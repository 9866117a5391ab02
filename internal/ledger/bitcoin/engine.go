package bitcoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// Client is the slice of the RPC surface the engine adapter needs.
type Client interface {
	SendRawTransaction(tx *btcwire.MsgTx) (*chainhash.Hash, error)
	SubmitBlock(block *btcutil.Block) error
	GetRawTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error)
	GetMempoolEntry(txHash string) (*btcjson.GetMempoolEntryResult, error)
}

// Engine implements chain.Engine over a bitcoind-compatible RPC endpoint.
type Engine struct {
	client  Client
	decoder ScriptDecoder
	logger  *zap.Logger
}

// NewEngine constructs the adapter.
func NewEngine(client Client, decoder ScriptDecoder, logger *zap.Logger) *Engine {
	return &Engine{
		client:  client,
		decoder: decoder,
		logger:  logger,
	}
}

// SubmitTransaction validates a transaction and relays it to peers.
func (e *Engine) SubmitTransaction(_ context.Context, tx *model.Transaction) error {
	msg, err := BuildMsgTx(tx)
	if err != nil {
		return fmt.Errorf("build transaction %s: %w", tx.Hash, err)
	}
	if _, err := e.client.SendRawTransaction(msg); err != nil {
		return fmt.Errorf("submit transaction %s: %w", tx.Hash, err)
	}
	e.logger.Debug("transaction submitted", zap.String("hash", tx.Hash))
	return nil
}

// SubmitBlock validates a block, stores it and relays it to peers.
func (e *Engine) SubmitBlock(_ context.Context, b *model.Block) error {
	msg, err := BuildMsgBlock(b)
	if err != nil {
		return fmt.Errorf("build block %s: %w", b.Hash(), err)
	}
	if err := e.client.SubmitBlock(btcutil.NewBlock(msg)); err != nil {
		return fmt.Errorf("submit block %s: %w", b.Hash(), err)
	}
	e.logger.Debug("block submitted", zap.String("hash", b.Hash()))
	return nil
}

// PendingTransaction returns a not-yet-confirmed transaction by hash, or nil
// when the pending pool does not hold it.
func (e *Engine) PendingTransaction(_ context.Context, hash string) (*model.Transaction, error) {
	if _, err := e.client.GetMempoolEntry(hash); err != nil {
		if isMissError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mempool entry %s: %w", hash, err)
	}

	txHash, err := chainhash.NewHashFromStr(hash)
	if err != nil {
		return nil, fmt.Errorf("parse transaction hash %s: %w", hash, err)
	}
	raw, err := e.client.GetRawTransaction(txHash)
	if err != nil {
		if isMissError(err) {
			// Evicted between the two calls.
			return nil, nil
		}
		return nil, fmt.Errorf("raw transaction %s: %w", hash, err)
	}
	return BuildTransaction(raw.MsgTx(), e.decoder, 0)
}

// isMissError reports whether the RPC error means "not found" rather than a
// transport or engine failure.
func isMissError(err error) bool {
	var rpcErr *btcjson.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == btcjson.ErrRPCInvalidAddressOrKey ||
		rpcErr.Code == btcjson.ErrRPCNoTxInfo
}
