package bitcoin

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/clock"
)

const defaultTemplateInterval = 10 * time.Second

// TemplateClient is the slice of the RPC surface the poller needs.
type TemplateClient interface {
	GetBlockTemplate(req *btcjson.TemplateRequest) (*btcjson.GetBlockTemplateResult, error)
}

// TemplatePoller periodically fetches a mining template from the engine and
// raises a template event whenever it changes.
type TemplatePoller struct {
	client   TemplateClient
	decoder  ScriptDecoder
	sink     EventSink
	logger   *zap.Logger
	interval time.Duration

	lastID string
}

// NewTemplatePoller constructs the poller. interval <= 0 selects the default.
func NewTemplatePoller(client TemplateClient, decoder ScriptDecoder, sink EventSink, logger *zap.Logger, interval time.Duration) *TemplatePoller {
	if interval <= 0 {
		interval = defaultTemplateInterval
	}
	return &TemplatePoller{
		client:   client,
		decoder:  decoder,
		sink:     sink,
		logger:   logger,
		interval: interval,
	}
}

// Run polls until the context is canceled. Poll failures are logged and the
// next cycle retries.
func (p *TemplatePoller) Run(ctx context.Context) error {
	for {
		p.poll()
		if err := clock.SleepWithContext(ctx, p.interval); err != nil {
			return err
		}
	}
}

func (p *TemplatePoller) poll() {
	req := &btcjson.TemplateRequest{
		Mode:         "template",
		Capabilities: []string{"coinbasetxn", "workid", "coinbase/append"},
	}
	result, err := p.client.GetBlockTemplate(req)
	if err != nil {
		p.logger.Warn("template poll failed", zap.Error(err))
		return
	}

	id := result.LongPollID
	if id == "" {
		id = result.PreviousHash
	}
	if id == p.lastID {
		return
	}
	p.lastID = id

	template, err := BuildTemplate(result, p.decoder)
	if err != nil {
		p.logger.Warn("skip unconvertible template",
			zap.String("prev_hash", result.PreviousHash),
			zap.Error(err))
		return
	}
	p.sink.OnTemplate(template)
}
