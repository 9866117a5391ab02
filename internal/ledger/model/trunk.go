package model

// TrunkUpdate describes one chain reorganization step: the blocks that left
// the best chain and the blocks that joined it, both in the order supplied by
// the engine.
type TrunkUpdate struct {
	Removed []*Block
	Added   []*Block
}
