package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus/inproc"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/wire"
)

func newTestResponder(t *testing.T, session *inproc.Session, store *fakeStore, engine *fakeEngine) *Responder {
	t.Helper()
	r := NewResponder(
		store,
		engine,
		session,
		NewReconstructor(zap.NewNop()),
		ResponderConfig{},
		zap.NewNop(),
		nopMetrics{},
	)
	if err := r.Register(context.Background()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return r
}

func encodeHashRequest(t *testing.T, hash string) []byte {
	t.Helper()
	payload, err := wire.EncodeHash(hash)
	if err != nil {
		t.Fatalf("EncodeHash() error = %v", err)
	}
	return payload
}

func TestResponder_BlockRequest(t *testing.T) {
	t.Parallel()

	blockHash := strings.Repeat("ab", 32)
	b := &model.Block{
		PrevHash:   strings.Repeat("cd", 32),
		MerkleRoot: strings.Repeat("ef", 32),
		Timestamp:  100,
	}
	snap := &fakeSnapshot{block: b}
	session := inproc.NewSession()
	rec := newRecorder()
	if err := rec.subscribe(session, "reply.1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	newTestResponder(t, session, &fakeStore{snap: snap}, &fakeEngine{})

	if err := session.Request(TopicBlockRequest, "reply.1", encodeHashRequest(t, blockHash)); err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	if rec.count("reply.1") != 1 {
		t.Fatalf("replies = %d, want 1", rec.count("reply.1"))
	}
	got, err := wire.DecodeBlock(rec.deliveries["reply.1"][0])
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if got.Hash() != b.Hash() {
		t.Fatalf("reply block = %s, want %s", got.Hash(), b.Hash())
	}
	if snap.closed != 1 {
		t.Fatalf("snapshot closed %d times, want 1", snap.closed)
	}
}

func TestResponder_BlockRequestMissGetsEmptyReply(t *testing.T) {
	t.Parallel()

	session := inproc.NewSession()
	rec := newRecorder()
	if err := rec.subscribe(session, "reply.2"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	newTestResponder(t, session, &fakeStore{snap: &fakeSnapshot{}}, &fakeEngine{})

	hash := strings.Repeat("aa", 32)
	if err := session.Request(TopicBlockRequest, "reply.2", encodeHashRequest(t, hash)); err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	if rec.count("reply.2") != 1 {
		t.Fatalf("replies = %d, want 1 empty reply", rec.count("reply.2"))
	}
	if len(rec.deliveries["reply.2"][0]) != 0 {
		t.Fatalf("reply payload = %v, want empty", rec.deliveries["reply.2"][0])
	}
}

func TestResponder_MalformedRequestGetsNoReply(t *testing.T) {
	t.Parallel()

	session := inproc.NewSession()
	rec := newRecorder()
	if err := rec.subscribe(session, "reply.3"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	newTestResponder(t, session, &fakeStore{snap: &fakeSnapshot{}}, &fakeEngine{})

	if err := session.Request(TopicBlockRequest, "reply.3", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if rec.count("reply.3") != 0 {
		t.Fatalf("replies = %d, want none for a malformed request", rec.count("reply.3"))
	}
}

func TestResponder_RequestWithoutReplyAddress(t *testing.T) {
	t.Parallel()

	session := inproc.NewSession()
	newTestResponder(t, session, &fakeStore{snap: &fakeSnapshot{}}, &fakeEngine{})

	hash := strings.Repeat("bb", 32)
	if err := session.Request(TopicBlockRequest, "", encodeHashRequest(t, hash)); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
}

func TestResponder_TransactionRequestPrefersPendingPool(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("cc", 32)
	pending := &model.Transaction{Hash: hash}
	stored := &model.Transaction{Hash: strings.Repeat("dd", 32)}

	tests := []struct {
		name   string
		engine *fakeEngine
		snap   *fakeSnapshot
		want   string
	}{
		{
			name:   "pending pool wins",
			engine: &fakeEngine{pending: pending},
			snap:   &fakeSnapshot{tx: stored},
			want:   hash,
		},
		{
			name:   "falls back to store",
			engine: &fakeEngine{},
			snap:   &fakeSnapshot{tx: stored},
			want:   stored.Hash,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := inproc.NewSession()
			rec := newRecorder()
			if err := rec.subscribe(session, "reply.4"); err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			newTestResponder(t, session, &fakeStore{snap: tt.snap}, tt.engine)

			if err := session.Request(TopicTransactionRequest, "reply.4", encodeHashRequest(t, hash)); err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			if rec.count("reply.4") != 1 {
				t.Fatalf("replies = %d, want 1", rec.count("reply.4"))
			}
			got, err := wire.DecodeTransaction(rec.deliveries["reply.4"][0])
			if err != nil {
				t.Fatalf("decode reply: %v", err)
			}
			if got.Hash != tt.want {
				t.Fatalf("reply transaction = %s, want %s", got.Hash, tt.want)
			}
		})
	}
}

func TestResponder_AccountRequest(t *testing.T) {
	t.Parallel()

	headHash := strings.Repeat("ee", 32)
	snap := &fakeSnapshot{
		unspent: []model.TxOut{{TxHash: strings.Repeat("ff", 32), Value: 5, BlockTime: 10}},
	}
	snap.head.Hash = headHash
	snap.head.Time = 400

	session := inproc.NewSession()
	rec := newRecorder()
	if err := rec.subscribe(session, "reply.5"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	newTestResponder(t, session, &fakeStore{snap: snap}, &fakeEngine{})

	payload, err := wire.EncodeAccountRequest(&wire.AccountRequest{Addresses: []string{"addr"}, From: 0})
	if err != nil {
		t.Fatalf("EncodeAccountRequest() error = %v", err)
	}
	if err := session.Request(TopicAccountRequest, "reply.5", payload); err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	if rec.count("reply.5") != 1 {
		t.Fatalf("replies = %d, want 1", rec.count("reply.5"))
	}
	st, err := wire.DecodeAccountStatement(rec.deliveries["reply.5"][0])
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if st.LastBlock != headHash || st.Timestamp != 400 {
		t.Fatalf("statement head = %s@%d, want %s@400", st.LastBlock, st.Timestamp, headHash)
	}
	if len(st.Opening) != 1 {
		t.Fatalf("opening = %d outputs, want 1", len(st.Opening))
	}
}

func TestResponder_Submissions(t *testing.T) {
	t.Parallel()

	session := inproc.NewSession()
	engine := &fakeEngine{}
	newTestResponder(t, session, &fakeStore{snap: &fakeSnapshot{}}, engine)

	tx := &model.Transaction{Hash: strings.Repeat("12", 32)}
	payload, err := wire.EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction() error = %v", err)
	}
	if err := session.Request(TopicNewTransaction, "", payload); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if len(engine.submittedTxs) != 1 || engine.submittedTxs[0].Hash != tx.Hash {
		t.Fatalf("submitted transactions = %+v", engine.submittedTxs)
	}

	// A malformed submission never reaches the engine.
	if err := session.Request(TopicNewTransaction, "", []byte{0xff}); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if len(engine.submittedTxs) != 1 {
		t.Fatalf("malformed submission reached the engine: %+v", engine.submittedTxs)
	}

	b := &model.Block{
		PrevHash:   strings.Repeat("34", 32),
		MerkleRoot: strings.Repeat("56", 32),
	}
	blockPayload, err := wire.EncodeBlock(b)
	if err != nil {
		t.Fatalf("EncodeBlock() error = %v", err)
	}
	if err := session.Request(TopicNewBlock, "", blockPayload); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if len(engine.submittedBlocks) != 1 {
		t.Fatalf("submitted blocks = %d, want 1", len(engine.submittedBlocks))
	}
}
