package bitcoin

import (
	"time"

	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

type (
	// RPCMetrics records metrics for RPC calls.
	RPCMetrics interface {
		Observe(operation string, err error, started time.Time)
	}

	// ScriptDecoder resolves the owner addresses of an output script.
	ScriptDecoder interface {
		Addresses(script []byte) ([]string, error)
	}

	// EventSink receives the domain events raised by the engine adapters.
	EventSink interface {
		OnTransaction(tx *model.Transaction)
		OnTemplate(template *model.Block)
		OnTrunkUpdate(removed, added []*model.Block)
	}
)
