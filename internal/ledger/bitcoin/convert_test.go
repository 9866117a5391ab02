package bitcoin

import (
	"bytes"
	"encoding/hex"
	"reflect"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	btcwire "github.com/btcsuite/btcd/wire"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

func testAddress(t *testing.T) (btcutil.Address, []byte) {
	t.Helper()
	pkh := make([]byte, 20)
	pkh[19] = 1
	addr, err := btcutil.NewAddressPubKeyHash(pkh, &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("build address: %v", err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		t.Fatalf("build script: %v", err)
	}
	return addr, script
}

func testMsgTx(t *testing.T) *btcwire.MsgTx {
	t.Helper()
	_, script := testAddress(t)

	prev, err := chainhash.NewHashFromStr("89abcdef89abcdef89abcdef89abcdef89abcdef89abcdef89abcdef89abcdef")
	if err != nil {
		t.Fatalf("parse prev hash: %v", err)
	}

	msg := btcwire.NewMsgTx(2)
	msg.LockTime = 650000
	msg.AddTxIn(&btcwire.TxIn{
		PreviousOutPoint: btcwire.OutPoint{Hash: *prev, Index: 1},
		SignatureScript:  []byte{0x01, 0x02},
		Witness:          btcwire.TxWitness{{0x03}},
		Sequence:         0xfffffffd,
	})
	msg.AddTxOut(&btcwire.TxOut{Value: 123456, PkScript: script})
	return msg
}

func testDecoder(t *testing.T) ScriptDecoder {
	t.Helper()
	decoder, err := NewScriptDecoder("regtest")
	if err != nil {
		t.Fatalf("NewScriptDecoder() error = %v", err)
	}
	return decoder
}

func TestBuildTransactionAndBack(t *testing.T) {
	t.Parallel()

	msg := testMsgTx(t)
	addr, _ := testAddress(t)
	decoder := testDecoder(t)

	tx, err := BuildTransaction(msg, decoder, 1700000000)
	if err != nil {
		t.Fatalf("BuildTransaction() error = %v", err)
	}
	if tx.Hash != msg.TxHash().String() {
		t.Fatalf("hash = %s, want %s", tx.Hash, msg.TxHash().String())
	}
	if tx.Version != 2 || tx.LockTime != 650000 {
		t.Fatalf("version/locktime = %d/%d", tx.Version, tx.LockTime)
	}
	if len(tx.Inputs) != 1 || tx.Inputs[0].SourceIndex != 1 {
		t.Fatalf("inputs = %+v", tx.Inputs)
	}
	if tx.Inputs[0].SourceHash != msg.TxIn[0].PreviousOutPoint.Hash.String() {
		t.Fatalf("source hash = %s", tx.Inputs[0].SourceHash)
	}
	if len(tx.Outputs) != 1 || tx.Outputs[0].Value != 123456 {
		t.Fatalf("outputs = %+v", tx.Outputs)
	}
	if got := tx.Outputs[0].Addresses; len(got) != 1 || got[0] != addr.EncodeAddress() {
		t.Fatalf("owner addresses = %v, want [%s]", got, addr.EncodeAddress())
	}
	if tx.Outputs[0].BlockTime != 1700000000 {
		t.Fatalf("output block time = %d", tx.Outputs[0].BlockTime)
	}

	rebuilt, err := BuildMsgTx(tx)
	if err != nil {
		t.Fatalf("BuildMsgTx() error = %v", err)
	}
	if !reflect.DeepEqual(rebuilt, msg) {
		t.Fatalf("rebuilt message differs:\ngot  %+v\nwant %+v", rebuilt, msg)
	}
}

func TestBuildTransaction_CoinbaseInputHasNoSource(t *testing.T) {
	t.Parallel()

	msg := btcwire.NewMsgTx(1)
	msg.AddTxIn(&btcwire.TxIn{
		PreviousOutPoint: btcwire.OutPoint{Index: 0xffffffff},
		SignatureScript:  []byte{0x51},
		Sequence:         0xffffffff,
	})
	msg.AddTxOut(&btcwire.TxOut{Value: 50_0000_0000})

	tx, err := BuildTransaction(msg, testDecoder(t), 0)
	if err != nil {
		t.Fatalf("BuildTransaction() error = %v", err)
	}
	if tx.Inputs[0].SourceHash != "" {
		t.Fatalf("coinbase source hash = %q, want empty", tx.Inputs[0].SourceHash)
	}

	rebuilt, err := BuildMsgTx(tx)
	if err != nil {
		t.Fatalf("BuildMsgTx() error = %v", err)
	}
	if rebuilt.TxHash() != msg.TxHash() {
		t.Fatalf("rebuilt hash = %s, want %s", rebuilt.TxHash(), msg.TxHash())
	}
}

func TestBuildBlockAndBack(t *testing.T) {
	t.Parallel()

	tx := testMsgTx(t)
	prev, _ := chainhash.NewHashFromStr("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")
	merkle := tx.TxHash()

	msg := btcwire.NewMsgBlock(btcwire.NewBlockHeader(4, prev, &merkle, 0x1d00ffff, 12345))
	if err := msg.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}

	b, err := BuildBlock(msg, testDecoder(t))
	if err != nil {
		t.Fatalf("BuildBlock() error = %v", err)
	}
	if b.Hash() != msg.BlockHash().String() {
		t.Fatalf("block hash = %s, want %s", b.Hash(), msg.BlockHash().String())
	}
	if len(b.Transactions) != 1 || b.Transactions[0].Hash != tx.TxHash().String() {
		t.Fatalf("block transactions = %+v", b.Transactions)
	}

	rebuilt, err := BuildMsgBlock(b)
	if err != nil {
		t.Fatalf("BuildMsgBlock() error = %v", err)
	}
	if rebuilt.BlockHash() != msg.BlockHash() {
		t.Fatalf("rebuilt block hash = %s, want %s", rebuilt.BlockHash(), msg.BlockHash())
	}
}

func TestBuildTemplate(t *testing.T) {
	t.Parallel()

	tx := testMsgTx(t)
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("serialize template transaction: %v", err)
	}

	src := &btcjson.GetBlockTemplateResult{
		Bits:         "1d00ffff",
		CurTime:      1700000500,
		Version:      0x20000000,
		PreviousHash: "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
		Transactions: []btcjson.GetBlockTemplateResultTx{
			{Data: hex.EncodeToString(buf.Bytes()), Hash: tx.TxHash().String()},
		},
	}

	b, err := BuildTemplate(src, testDecoder(t))
	if err != nil {
		t.Fatalf("BuildTemplate() error = %v", err)
	}
	if b.PrevHash != src.PreviousHash || b.Timestamp != src.CurTime {
		t.Fatalf("template header = %+v", b)
	}
	if b.Bits != 0x1d00ffff {
		t.Fatalf("template bits = %x", b.Bits)
	}
	if len(b.Transactions) != 1 || b.Transactions[0].Hash != tx.TxHash().String() {
		t.Fatalf("template transactions = %+v", b.Transactions)
	}
	if b.MerkleRoot != "" || b.Nonce != 0 {
		t.Fatalf("template header finalized: merkle root %q, nonce %d", b.MerkleRoot, b.Nonce)
	}
}

func TestBuildMsgBlock_RejectsNonFinalHeader(t *testing.T) {
	t.Parallel()

	b := &model.Block{
		Version:  4,
		PrevHash: "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
		Bits:     0x1d00ffff,
	}
	if _, err := BuildMsgBlock(b); err == nil {
		t.Fatal("BuildMsgBlock() accepted a header without a merkle root")
	}
}

func TestParseBits(t *testing.T) {
	t.Parallel()

	got, err := ParseBits("1d00ffff")
	if err != nil {
		t.Fatalf("ParseBits() error = %v", err)
	}
	if got != 0x1d00ffff {
		t.Fatalf("ParseBits() = %x", got)
	}
	if _, err := ParseBits("zz"); err == nil {
		t.Fatal("ParseBits() accepted garbage")
	}
	if _, err := ParseBits("100000000"); err == nil {
		t.Fatal("ParseBits() accepted a value over 32 bits")
	}
}
