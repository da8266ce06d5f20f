package replicate

import (
	. "github.com/fenwickdb/raft"
)

// WaitForMajority resolves on commit, truncation, or shutdown (spec §4.7).
// It returns immediately with the self-append error if self-append failed.
func (r *Round) WaitForMajority() (ReplicateResult, error) {
	if r.appendErr != nil {
		return ReplicateResult{}, r.appendErr
	}

	appendedOffset := r.appendResult.LastOffset
	appendedTerm := r.appendResult.LastTerm

	cond := r.host.CommitIndexUpdated()

	for {
		committedOffset, broken, changed := cond.Wait()
		if broken {
			return ReplicateResult{}, NewErrShuttingDown()
		}

		if r.committedPredicate(committedOffset, appendedOffset, appendedTerm) {
			return r.processResult(appendedOffset, appendedTerm)
		}

		<-changed
	}
}

func (r *Round) committedPredicate(committedOffset, appendedOffset LogIndex, appendedTerm TermNo) bool {
	if committedOffset >= appendedOffset {
		return true
	}
	currentTerm := r.host.CurrentTerm()
	if currentTerm <= appendedTerm {
		return false
	}
	if committedOffset <= r.initialCommittedOffset {
		return false
	}
	termAtAppendedOffset, err := r.host.LogTermAt(appendedOffset)
	if err != nil {
		return false
	}
	return termAtAppendedOffset != appendedTerm
}

// processResult implements the tail of spec §4.7: re-check for truncation
// under a new term, then assert the success invariant.
func (r *Round) processResult(appendedOffset LogIndex, appendedTerm TermNo) (ReplicateResult, error) {
	if r.host.CurrentTerm() != appendedTerm {
		termAtAppendedOffset, err := r.host.LogTermAt(appendedOffset)
		if err != nil {
			return ReplicateResult{}, err
		}
		if termAtAppendedOffset != appendedTerm {
			return ReplicateResult{}, NewErrReplicatedEntryTruncated()
		}
	}

	if appendedOffset > r.host.CommittedOffset() {
		panic("FATAL: replicate.Round.WaitForMajority: appendedOffset > committedOffset at success")
	}

	return ReplicateResult{LastOffset: appendedOffset}, nil
}
