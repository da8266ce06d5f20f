package replicate

import (
	"sync"

	. "github.com/fenwickdb/raft"
)

// batchSharer clones the round's input batch for each peer dispatch while
// retaining one clone as the new holder, so a later Share or Retain call
// always has something to clone (spec §4.1, §9 "Retention of one batch
// clone"). Consuming the holder on its last use would break retry.
type batchSharer struct {
	mu     sync.Mutex
	holder Batch
}

func newBatchSharer(initial Batch) *batchSharer {
	return &batchSharer{holder: initial}
}

// Share returns a fresh clone of the current holder for one peer's
// dispatch, replacing the holder with another clone so the next Share call
// has something to split from too.
func (bs *batchSharer) Share() Batch {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	forPeer := bs.holder.Clone()
	bs.holder = bs.holder.Clone()
	return forPeer
}

// Retain returns the currently held clone without consuming it, for a
// caller that wants to reissue the same batch stream on a retry path
// outside this round's scope.
func (bs *batchSharer) Retain() Batch {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.holder
}

// Release drops the holder. Called only after every dispatch has issued
// (spec §4.6, the dispatch barrier's reclaim step).
func (bs *batchSharer) Release() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.holder = Batch{}
}
