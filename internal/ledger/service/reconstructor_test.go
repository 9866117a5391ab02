package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

func TestReconstructor_Statement(t *testing.T) {
	t.Parallel()

	headHash := strings.Repeat("aa", 32)
	hash1 := strings.Repeat("b1", 32)
	hash2 := strings.Repeat("c2", 32)
	spender := strings.Repeat("d3", 32)

	// o1 confirmed at t=100 and still unspent; o2 confirmed at t=50 and
	// spent at t=150.
	o1 := model.TxOut{TxHash: hash1, Index: 0, Value: 100, Addresses: []string{"addr"}, BlockTime: 100}
	o2 := model.TxOut{TxHash: hash2, Index: 1, Value: 200, Addresses: []string{"addr"}, BlockTime: 50}

	snapFor := func(from int64) *fakeSnapshot {
		s := &fakeSnapshot{
			head:    chain.BlockSummary{Hash: headHash, Height: 10, Time: 500},
			unspent: []model.TxOut{o1},
			spent:   []chain.Spend{{Output: o2, SpendingTx: spender, SpendTime: 150}},
		}
		if from <= 100 {
			s.received = append(s.received, o1)
		}
		if from <= 50 {
			s.received = append(s.received, o2)
		}
		return s
	}

	r := NewReconstructor(zap.NewNop())
	ctx := context.Background()

	t.Run("window covers everything", func(t *testing.T) {
		st, err := r.Statement(ctx, snapFor(0), []string{"addr"}, 0)
		if err != nil {
			t.Fatalf("Statement() error = %v", err)
		}
		if st.Timestamp != 500 || st.LastBlock != headHash {
			t.Fatalf("head position lost: %d %s", st.Timestamp, st.LastBlock)
		}
		// Everything moved inside the window, nothing was already owned.
		if len(st.Opening) != 0 {
			t.Fatalf("opening = %+v, want empty", st.Opening)
		}
		if len(st.Postings) != 3 {
			t.Fatalf("postings = %d, want 3", len(st.Postings))
		}
		// Chronological: receipt o2@50, receipt o1@100, spend o2@150.
		if !st.Postings[0].IsReceipt() || st.Postings[0].Output.TxHash != hash2 {
			t.Fatalf("postings[0] = %+v, want receipt of o2", st.Postings[0])
		}
		if !st.Postings[1].IsReceipt() || st.Postings[1].Output.TxHash != hash1 {
			t.Fatalf("postings[1] = %+v, want receipt of o1", st.Postings[1])
		}
		if st.Postings[2].IsReceipt() || st.Postings[2].Spent != spender {
			t.Fatalf("postings[2] = %+v, want spend by %s", st.Postings[2], spender)
		}
	})

	t.Run("window starts after both receipts", func(t *testing.T) {
		st, err := r.Statement(ctx, snapFor(120), []string{"addr"}, 120)
		if err != nil {
			t.Fatalf("Statement() error = %v", err)
		}
		// Both outputs were owned at the window start: o1 is still
		// unspent, o2 was spent inside the window and so reappears.
		if len(st.Opening) != 2 {
			t.Fatalf("opening = %+v, want 2 outputs", st.Opening)
		}
		if st.Opening[0].TxHash != hash1 || st.Opening[1].TxHash != hash2 {
			t.Fatalf("opening order = %s, %s", st.Opening[0].TxHash, st.Opening[1].TxHash)
		}
		if len(st.Postings) != 1 || st.Postings[0].Spent != spender {
			t.Fatalf("postings = %+v, want one spend", st.Postings)
		}
	})
}

func TestReconstructor_ReceiptSortsBeforeSpendAtEqualTime(t *testing.T) {
	t.Parallel()

	hash1 := strings.Repeat("e4", 32)
	hash2 := strings.Repeat("f5", 32)
	spender := strings.Repeat("a6", 32)

	spentOut := model.TxOut{TxHash: hash1, Index: 0, Value: 10, BlockTime: 40}
	receivedOut := model.TxOut{TxHash: hash2, Index: 0, Value: 10, BlockTime: 100}

	snap := &fakeSnapshot{
		head:     chain.BlockSummary{Hash: strings.Repeat("ab", 32), Time: 200},
		spent:    []chain.Spend{{Output: spentOut, SpendingTx: spender, SpendTime: 100}},
		received: []model.TxOut{receivedOut},
	}

	st, err := NewReconstructor(zap.NewNop()).Statement(context.Background(), snap, []string{"addr"}, 90)
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}
	if len(st.Postings) != 2 {
		t.Fatalf("postings = %d, want 2", len(st.Postings))
	}
	if !st.Postings[0].IsReceipt() {
		t.Fatal("receipt must sort before spend at equal timestamps")
	}
}

func TestReconstructor_MultiOwnerOutputPostsOnce(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("b7", 32)
	out := model.TxOut{TxHash: hash, Index: 0, Value: 10, Addresses: []string{"a", "b"}, BlockTime: 100}

	snap := &fakeSnapshot{
		head:     chain.BlockSummary{Hash: strings.Repeat("cd", 32), Time: 200},
		received: []model.TxOut{out, out},
	}

	st, err := NewReconstructor(zap.NewNop()).Statement(context.Background(), snap, []string{"a", "b"}, 0)
	if err != nil {
		t.Fatalf("Statement() error = %v", err)
	}
	if len(st.Postings) != 1 {
		t.Fatalf("postings = %d, want 1", len(st.Postings))
	}
}
