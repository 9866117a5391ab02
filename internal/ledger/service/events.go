package service

import "github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"

// EventKind tags a domain event raised by the chain engine.
type EventKind int

const (
	// EventTransaction is raised for every newly validated transaction.
	EventTransaction EventKind = iota
	// EventTemplate is raised whenever the mining template is rebuilt.
	EventTemplate
	// EventTrunk is raised for every best-chain reorganization step.
	EventTrunk
)

// String names the event kind for logs and metrics labels.
func (k EventKind) String() string {
	switch k {
	case EventTransaction:
		return "transaction"
	case EventTemplate:
		return "template"
	case EventTrunk:
		return "trunk"
	default:
		return "unknown"
	}
}

// Event is one tagged domain event. Exactly the field group matching Kind is
// set.
type Event struct {
	Kind EventKind

	// Tx is set for EventTransaction.
	Tx *model.Transaction
	// Template is set for EventTemplate.
	Template *model.Block
	// Removed and Added are set for EventTrunk, in the order the blocks
	// left and joined the best chain.
	Removed []*model.Block
	Added   []*model.Block
}
