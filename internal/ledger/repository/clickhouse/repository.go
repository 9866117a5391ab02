// Package clickhouse implements the read-only store snapshot over the chain
// engine's ClickHouse output index.
package clickhouse

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/chain"
)

type (
	// Metrics observes repository operations.
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// Repository implements chain.Store. Each snapshot pins the head block at
// creation and bounds every query by the pinned height, so one request sees
// one consistent chain position even while ingestion advances.
type Repository struct {
	conn    driver.Conn
	network string
	metrics Metrics

	// unspentWorkers bounds concurrent per-chunk unspent queries.
	unspentWorkers int
	// unspentChunkSize splits large address sets into bounded queries.
	unspentChunkSize int
}

// Option tunes the repository.
type Option func(*Repository)

// WithUnspentFanout overrides worker count and chunk size of the unspent
// output scan.
func WithUnspentFanout(workers, chunkSize int) Option {
	return func(r *Repository) {
		if workers > 0 {
			r.unspentWorkers = workers
		}
		if chunkSize > 0 {
			r.unspentChunkSize = chunkSize
		}
	}
}

// NewRepository opens a ClickHouse connection for the given network.
func NewRepository(dsn, network string, metrics Metrics, opts ...Option) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}
	if network == "" {
		return nil, errors.New("network is required")
	}

	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	return newRepository(conn, network, metrics, opts...), nil
}

func newRepository(conn driver.Conn, network string, metrics Metrics, opts ...Option) *Repository {
	r := &Repository{
		conn:             conn,
		network:          network,
		metrics:          metrics,
		unspentWorkers:   4,
		unspentChunkSize: 64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot pins the current head and returns a consistent read view.
func (r *Repository) Snapshot(ctx context.Context) (chain.Snapshot, error) {
	head, err := r.headBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin snapshot head: %w", err)
	}
	return &snapshot{repo: r, head: head}, nil
}

// Close releases the underlying connection.
func (r *Repository) Close() error {
	return r.conn.Close()
}

// decodeScriptHex parses the hex script column into raw bytes. An empty
// column yields a nil script.
func decodeScriptHex(scriptHex string) ([]byte, error) {
	if scriptHex == "" {
		return nil, nil
	}
	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return nil, fmt.Errorf("malformed script hex: %w", err)
	}
	return script, nil
}

// snapshot implements chain.Snapshot bounded by the pinned head height.
type snapshot struct {
	repo *Repository
	head chain.BlockSummary
}

func (s *snapshot) Head(_ context.Context) (chain.BlockSummary, error) {
	return s.head, nil
}

// Close is a no-op; the snapshot holds no resources beyond the pinned head.
func (s *snapshot) Close() error { return nil }
