package service

import (
	"context"
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// GatewayMetrics observes event dispatch and shard routing outcomes.
type GatewayMetrics interface {
	ObserveEvent(event string, err error, started time.Time)
	ObserveRoute(kind string, err error)
}

// ResponderMetrics observes request handling outcomes per topic.
type ResponderMetrics interface {
	Observe(topic string, err error, started time.Time)
}

// StatementBuilder reconstructs an account statement against one snapshot.
type StatementBuilder interface {
	Statement(ctx context.Context, snap chain.Snapshot, addresses []string, from int64) (*model.AccountStatement, error)
}
