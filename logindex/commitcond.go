package logindex

import (
	"sync"

	. "github.com/fenwickdb/raft"
)

// CommitCond is the commit-index condition variable collaborator the
// replication state machine's commit waiter observes (see package
// replicate). It tracks the current commit index and lets any number of
// goroutines wait for "the commit index changed" without missing a signal
// that lands between their check and their wait, and it distinguishes a
// normal wakeup from a broken ("shutting down") condition variable.
//
// This is deliberately not built on sync.Cond: sync.Cond's Wait cannot be
// combined with a context deadline or a "this is now permanently broken"
// state without a supporting goroutine per waiter, and the rest of this
// corpus favors small hand-rolled channel-based primitives over sync.Cond.
// CommitCond generalizes that channel-swap idiom: broadcastLocked closes the
// current generation channel and installs a fresh one, Wait hands back a
// reference to the live channel so callers can select on it with a context.
type CommitCond struct {
	mu          sync.Mutex
	commitIndex LogIndex
	broken      bool
	gen         chan struct{}
}

// NewCommitCond creates a CommitCond with an initial commit index of 0.
func NewCommitCond() *CommitCond {
	return &CommitCond{
		gen: make(chan struct{}),
	}
}

// CommitIndex returns the current commit index.
func (cc *CommitCond) CommitIndex() LogIndex {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.commitIndex
}

// Advance sets the commit index to newCommitIndex and wakes every current
// waiter. Panics if newCommitIndex is less than the current commit index:
// the commit index must never regress.
func (cc *CommitCond) Advance(newCommitIndex LogIndex) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if newCommitIndex < cc.commitIndex {
		panic("FATAL: CommitCond.Advance: commit index regressed")
	}
	cc.commitIndex = newCommitIndex
	cc.broadcastLocked()
}

// Touch wakes every current waiter without changing the commit index. Used
// when a term change makes a waiter's truncation predicate worth
// re-checking even though the commit index itself did not move.
func (cc *CommitCond) Touch() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.broadcastLocked()
}

func (cc *CommitCond) broadcastLocked() {
	if cc.broken {
		// Break already closed the final generation channel for good.
		return
	}
	close(cc.gen)
	cc.gen = make(chan struct{})
}

// Break marks the condition variable as permanently broken: every current
// and future Wait() returns immediately with broken=true. Used on shutdown.
func (cc *CommitCond) Break() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.broken {
		return
	}
	cc.broken = true
	close(cc.gen)
}

// Wait returns the current commit index, whether the condition variable has
// been broken, and a channel that closes on the next Advance, Touch, or
// Break call; once Break has been called the returned channel is already
// closed. Callers should re-check their predicate against the returned
// commit index before selecting on the channel, to avoid missing a signal
// that landed concurrently with the call to Wait.
func (cc *CommitCond) Wait() (commitIndex LogIndex, broken bool, changed <-chan struct{}) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.commitIndex, cc.broken, cc.gen
}
