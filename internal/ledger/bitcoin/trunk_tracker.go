package bitcoin

import (
	"github.com/goodnatureofminers/chainrelay7000-backend/internal/ledger/model"
)

// defaultTrunkDepth bounds the block tail kept for fork-point detection.
// Reorganizations deeper than this are treated as a fresh chain.
const defaultTrunkDepth = 32

// TrunkTracker turns a stream of observed blocks into trunk update steps. It
// keeps a short tail of recent blocks; when a new block extends a block below
// the tip, the blocks above the fork point are reported as removed. Not safe
// for concurrent use.
type TrunkTracker struct {
	depth int
	tail  []*model.Block
}

// NewTrunkTracker creates a tracker keeping up to depth recent blocks.
func NewTrunkTracker(depth int) *TrunkTracker {
	if depth <= 0 {
		depth = defaultTrunkDepth
	}
	return &TrunkTracker{depth: depth}
}

// Advance records a newly observed block and returns the trunk step it
// implies, both lists in ascending chain order. A parent outside the tail
// resets the tracker and reports the block as added only.
func (t *TrunkTracker) Advance(b *model.Block) (removed, added []*model.Block) {
	added = []*model.Block{b}

	if len(t.tail) == 0 || t.tail[len(t.tail)-1].Hash() == b.PrevHash {
		t.push(b)
		return nil, added
	}

	for i := len(t.tail) - 1; i >= 0; i-- {
		if t.tail[i].Hash() != b.PrevHash {
			continue
		}
		removed = append(removed, t.tail[i+1:]...)
		t.tail = t.tail[:i+1]
		t.push(b)
		return removed, added
	}

	// Fork point older than the tail; start over from this block.
	t.tail = nil
	t.push(b)
	return nil, added
}

func (t *TrunkTracker) push(b *model.Block) {
	t.tail = append(t.tail, b)
	if len(t.tail) > t.depth {
		t.tail = t.tail[len(t.tail)-t.depth:]
	}
}
