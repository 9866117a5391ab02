// Package bitcoin adapts a bitcoind-compatible engine: RPC submission and
// lookups, ZMQ event feeds, and the conversions between engine-native
// messages and the relay domain types.
package bitcoin

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	btcwire "github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
	"github.com/goodnatureofminers/chainrelay7000-backend/pkg/safe"
)

// ParseBits parses a bits string into a 32-bit value.
func ParseBits(value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(parsed), nil
}

// BuildTransaction maps an engine-native transaction into a model.Transaction.
// blockTime is zero for unconfirmed transactions.
func BuildTransaction(msg *btcwire.MsgTx, decoder ScriptDecoder, blockTime int64) (*model.Transaction, error) {
	hash := msg.TxHash().String()
	version, err := safe.Uint32(msg.Version)
	if err != nil {
		return nil, fmt.Errorf("transaction %s version: %w", hash, err)
	}

	tx := &model.Transaction{
		Hash:     hash,
		Version:  version,
		LockTime: msg.LockTime,
	}

	for _, in := range msg.TxIn {
		input := model.TxIn{
			SourceIndex: in.PreviousOutPoint.Index,
			Script:      in.SignatureScript,
			Witness:     in.Witness,
			Sequence:    in.Sequence,
			TxHash:      hash,
			BlockTime:   blockTime,
		}
		// The coinbase input spends nothing; its source stays empty so
		// downstream shard routing skips it.
		if in.PreviousOutPoint.Hash != (chainhash.Hash{}) {
			input.SourceHash = in.PreviousOutPoint.Hash.String()
		}
		tx.Inputs = append(tx.Inputs, input)
	}

	for i, out := range msg.TxOut {
		value, err := safe.Uint64(out.Value)
		if err != nil {
			return nil, fmt.Errorf("transaction %s output %d value: %w", hash, i, err)
		}
		addresses, err := decoder.Addresses(out.PkScript)
		if err != nil {
			return nil, fmt.Errorf("transaction %s output %d script: %w", hash, i, err)
		}
		tx.Outputs = append(tx.Outputs, model.TxOut{
			TxHash:    hash,
			Index:     uint32(i),
			Value:     value,
			Script:    out.PkScript,
			Addresses: addresses,
			BlockTime: blockTime,
		})
	}
	return tx, nil
}

// BuildMsgTx maps a model.Transaction back into an engine-native transaction
// for submission.
func BuildMsgTx(tx *model.Transaction) (*btcwire.MsgTx, error) {
	msg := btcwire.NewMsgTx(int32(tx.Version))
	msg.LockTime = tx.LockTime

	for i, in := range tx.Inputs {
		prev := btcwire.OutPoint{Index: in.SourceIndex}
		if in.SourceHash != "" {
			hash, err := chainhash.NewHashFromStr(in.SourceHash)
			if err != nil {
				return nil, fmt.Errorf("input %d source hash: %w", i, err)
			}
			prev.Hash = *hash
		}
		msg.AddTxIn(&btcwire.TxIn{
			PreviousOutPoint: prev,
			SignatureScript:  in.Script,
			Witness:          in.Witness,
			Sequence:         in.Sequence,
		})
	}

	for i, out := range tx.Outputs {
		value, err := safe.Int64(out.Value)
		if err != nil {
			return nil, fmt.Errorf("output %d value: %w", i, err)
		}
		msg.AddTxOut(&btcwire.TxOut{Value: value, PkScript: out.Script})
	}
	return msg, nil
}

// BuildBlock maps an engine-native block into a model.Block.
func BuildBlock(msg *btcwire.MsgBlock, decoder ScriptDecoder) (*model.Block, error) {
	header := msg.Header
	version, err := safe.Uint32(header.Version)
	if err != nil {
		return nil, fmt.Errorf("block version: %w", err)
	}

	b := &model.Block{
		Version:    version,
		PrevHash:   header.PrevBlock.String(),
		MerkleRoot: header.MerkleRoot.String(),
		Timestamp:  header.Timestamp.Unix(),
		Bits:       header.Bits,
		Nonce:      header.Nonce,
	}
	for _, msgTx := range msg.Transactions {
		tx, err := BuildTransaction(msgTx, decoder, b.Timestamp)
		if err != nil {
			return nil, err
		}
		b.Transactions = append(b.Transactions, *tx)
	}
	return b, nil
}

// BuildMsgBlock maps a model.Block back into an engine-native block for
// submission.
func BuildMsgBlock(b *model.Block) (*btcwire.MsgBlock, error) {
	prev, err := chainhash.NewHashFromStr(b.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("block prev hash: %w", err)
	}
	// chainhash pads short strings with zeros, so a non-final header would
	// silently become a zero merkle root without this check.
	if !model.ValidHexHash(b.MerkleRoot) {
		return nil, fmt.Errorf("block merkle root %q is not final", b.MerkleRoot)
	}
	merkle, err := chainhash.NewHashFromStr(b.MerkleRoot)
	if err != nil {
		return nil, fmt.Errorf("block merkle root: %w", err)
	}

	msg := btcwire.NewMsgBlock(btcwire.NewBlockHeader(
		int32(b.Version), prev, merkle, b.Bits, b.Nonce))
	msg.Header.Timestamp = time.Unix(b.Timestamp, 0).UTC()

	for i := range b.Transactions {
		msgTx, err := BuildMsgTx(&b.Transactions[i])
		if err != nil {
			return nil, fmt.Errorf("block transaction %d: %w", i, err)
		}
		msg.AddTransaction(msgTx)
	}
	return msg, nil
}

// BuildTemplate maps a getblocktemplate result into a model.Block. The header
// is not final: the merkle root and nonce are left for the miner to fill in.
func BuildTemplate(src *btcjson.GetBlockTemplateResult, decoder ScriptDecoder) (*model.Block, error) {
	bits, err := ParseBits(src.Bits)
	if err != nil {
		return nil, fmt.Errorf("template bits parse: %w", err)
	}
	version, err := safe.Uint32(src.Version)
	if err != nil {
		return nil, fmt.Errorf("template version: %w", err)
	}

	b := &model.Block{
		Version:   version,
		PrevHash:  src.PreviousHash,
		Timestamp: src.CurTime,
		Bits:      bits,
	}

	templateTxs := src.Transactions
	if src.CoinbaseTxn != nil {
		templateTxs = append([]btcjson.GetBlockTemplateResultTx{*src.CoinbaseTxn}, templateTxs...)
	}
	for _, templateTx := range templateTxs {
		raw, err := hex.DecodeString(templateTx.Data)
		if err != nil {
			return nil, fmt.Errorf("template transaction %s data: %w", templateTx.Hash, err)
		}
		var msgTx btcwire.MsgTx
		if err := msgTx.Deserialize(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("template transaction %s deserialize: %w", templateTx.Hash, err)
		}
		tx, err := BuildTransaction(&msgTx, decoder, src.CurTime)
		if err != nil {
			return nil, err
		}
		b.Transactions = append(b.Transactions, *tx)
	}
	return b, nil
}
