package service

import (
	"context"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/bus/inproc"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

type nopMetrics struct{}

func (nopMetrics) ObserveEvent(string, error, time.Time) {}
func (nopMetrics) ObserveRoute(string, error)            {}
func (nopMetrics) Observe(string, error, time.Time)      {}

// recorder counts deliveries per topic on an inproc session.
type recorder struct {
	deliveries map[string][][]byte
}

func newRecorder() *recorder {
	return &recorder{deliveries: make(map[string][][]byte)}
}

func (r *recorder) subscribe(session *inproc.Session, topics ...string) error {
	for _, topic := range topics {
		topic := topic
		if err := session.Subscribe(topic, func(d bus.Delivery) {
			r.deliveries[topic] = append(r.deliveries[topic], d.Payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (r *recorder) count(topic string) int { return len(r.deliveries[topic]) }

// fakeSnapshot serves canned results for the statement and lookup paths.
type fakeSnapshot struct {
	head     chain.BlockSummary
	block    *model.Block
	tx       *model.Transaction
	unspent  []model.TxOut
	spent    []chain.Spend
	received []model.TxOut

	err    error
	closed int
}

func (s *fakeSnapshot) Head(context.Context) (chain.BlockSummary, error) {
	return s.head, s.err
}

func (s *fakeSnapshot) BlockByHash(context.Context, string) (*model.Block, error) {
	return s.block, s.err
}

func (s *fakeSnapshot) TransactionByHash(context.Context, string) (*model.Transaction, error) {
	return s.tx, s.err
}

func (s *fakeSnapshot) UnspentOutputs(context.Context, []string) ([]model.TxOut, error) {
	return s.unspent, s.err
}

func (s *fakeSnapshot) SpentOutputs(context.Context, []string, int64) ([]chain.Spend, error) {
	return s.spent, s.err
}

func (s *fakeSnapshot) ReceivedOutputs(context.Context, []string, int64) ([]model.TxOut, error) {
	return s.received, s.err
}

func (s *fakeSnapshot) Close() error {
	s.closed++
	return nil
}

type fakeStore struct {
	snap    *fakeSnapshot
	snapErr error
}

func (s *fakeStore) Snapshot(context.Context) (chain.Snapshot, error) {
	return s.snap, s.snapErr
}

type fakeEngine struct {
	submittedTxs    []*model.Transaction
	submittedBlocks []*model.Block
	pending         *model.Transaction
	submitErr       error
	pendingErr      error
}

func (e *fakeEngine) SubmitTransaction(_ context.Context, tx *model.Transaction) error {
	e.submittedTxs = append(e.submittedTxs, tx)
	return e.submitErr
}

func (e *fakeEngine) SubmitBlock(_ context.Context, b *model.Block) error {
	e.submittedBlocks = append(e.submittedBlocks, b)
	return e.submitErr
}

func (e *fakeEngine) PendingTransaction(context.Context, string) (*model.Transaction, error) {
	return e.pending, e.pendingErr
}
