package bitcoin

import (
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	btcwire "github.com/btcsuite/btcd/wire"
)

// RPCClient wraps btc rpcclient with metrics instrumentation.
type RPCClient struct {
	client     *rpcclient.Client
	rpcMetrics RPCMetrics
}

// NewRPCClient constructs an instrumented RPC client.
func NewRPCClient(client *rpcclient.Client, rpcMetrics RPCMetrics) *RPCClient {
	return &RPCClient{
		client:     client,
		rpcMetrics: rpcMetrics,
	}
}

// SendRawTransaction submits a transaction for validation and relay.
func (r *RPCClient) SendRawTransaction(tx *btcwire.MsgTx) (hash *chainhash.Hash, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("send_raw_transaction", err, started)
	}()
	return r.client.SendRawTransaction(tx, false)
}

// SubmitBlock submits a mined block for validation and relay.
func (r *RPCClient) SubmitBlock(block *btcutil.Block) (err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("submit_block", err, started)
	}()
	return r.client.SubmitBlock(block, nil)
}

// GetRawTransaction returns a transaction by hash, confirmed or pending.
func (r *RPCClient) GetRawTransaction(txHash *chainhash.Hash) (tx *btcutil.Tx, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_raw_transaction", err, started)
	}()
	return r.client.GetRawTransaction(txHash)
}

// GetMempoolEntry returns the pending-pool entry for a transaction hash.
func (r *RPCClient) GetMempoolEntry(txHash string) (entry *btcjson.GetMempoolEntryResult, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_mempool_entry", err, started)
	}()
	return r.client.GetMempoolEntry(txHash)
}

// GetBlockTemplate returns a mining template for the current tip.
func (r *RPCClient) GetBlockTemplate(req *btcjson.TemplateRequest) (template *btcjson.GetBlockTemplateResult, err error) {
	started := time.Now()
	defer func() {
		r.rpcMetrics.Observe("get_block_template", err, started)
	}()
	return r.client.GetBlockTemplate(req)
}
