package consensus

import (
	"context"

	"go.uber.org/zap"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/transport"
)

// HandleAppendEntries implements transport.Handler: the receiving side of
// the AppendEntries RPC this Host's dispatcher issues to its peers (spec
// §6's wire format). It is deliberately the simplified #5.3 log-matching
// rule only — no candidate/follower state transitions, since election is
// out of scope here and every Host in this package's reference wiring
// plays a fixed role (leader or passive log acceptor) for the lifetime of
// the process.
func (h *Host) HandleAppendEntries(_ context.Context, req AppendEntriesRequest) (AppendEntriesReply, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	currentTerm := h.ps.GetCurrentTerm()

	// #5.1: reply false if term < currentTerm.
	if req.Metadata.Term < currentTerm {
		return h.rejectLocked(req, AppendEntriesLogMismatch), nil
	}
	if req.Metadata.Term > currentTerm {
		if err := h.ps.SetCurrentTerm(req.Metadata.Term); err != nil {
			h.logger.Error("failed to record newer term from append entries", zap.Error(err))
			return h.rejectLocked(req, AppendEntriesLogMismatch), nil
		}
		currentTerm = req.Metadata.Term
		// Wake any WaitForMajority caller on this node so it re-checks its
		// truncation predicate against the new term.
		h.commit.Touch()
	}

	iole, err := h.log.GetIndexOfLastEntry()
	if err != nil {
		h.logger.Error("failed to read index of last entry", zap.Error(err))
		return h.rejectLocked(req, AppendEntriesLogMismatch), nil
	}

	// #5.3: reply false if the log doesn't contain an entry at
	// PrevLogIndex whose term matches PrevLogTerm.
	if req.Metadata.PrevLogIndex > iole {
		return h.rejectLocked(req, AppendEntriesLogMismatch), nil
	}
	if req.Metadata.PrevLogIndex > 0 {
		termAtPrev, err := h.log.GetTermAtIndex(req.Metadata.PrevLogIndex)
		if err != nil {
			h.logger.Error("failed to read term at prev log index", zap.Error(err))
			return h.rejectLocked(req, AppendEntriesLogMismatch), nil
		}
		if termAtPrev != req.Metadata.PrevLogTerm {
			return h.rejectLocked(req, AppendEntriesLogMismatch), nil
		}
	}

	// #5.3: truncate any conflicting suffix and append the new entries.
	if err := h.log.SetEntriesAfterIndex(req.Metadata.PrevLogIndex, req.Batches); err != nil {
		h.logger.Error("failed to set entries after index", zap.Error(err))
		return h.rejectLocked(req, AppendEntriesLogMismatch), nil
	}
	h.committer.RemoveListenersAfterIndex(req.Metadata.PrevLogIndex + LogIndex(len(req.Batches)))

	lastNewEntry := req.Metadata.PrevLogIndex + LogIndex(len(req.Batches))

	if req.FlushRequired {
		if err := h.log.Flush(); err != nil {
			h.logger.Error("failed to flush log", zap.Error(err))
			return h.rejectLocked(req, AppendEntriesLogMismatch), nil
		}
	}

	// #5.3: advance the locally observed commit index to min(leader's
	// committed offset, index of last new entry).
	leaderCommit := req.Metadata.CommitIndex
	if leaderCommit > h.commit.CommitIndex() {
		newCommit := leaderCommit
		if lastNewEntry < newCommit {
			newCommit = lastNewEntry
		}
		if newCommit > h.commit.CommitIndex() {
			h.commit.Advance(newCommit)
			if err := h.committer.CommitAsync(newCommit); err != nil {
				h.logger.Error("committer rejected commit index advance", zap.Error(err))
			}
		}
	}

	return AppendEntriesReply{
		NodeId:              h.self,
		TargetNodeId:        req.To,
		Group:               req.Metadata.GroupId,
		Term:                currentTerm,
		LastDirtyLogIndex:   lastNewEntry,
		LastFlushedLogIndex: h.log.GetLastFlushedIndex(),
		Result:              AppendEntriesSuccess,
	}, nil
}

func (h *Host) rejectLocked(req AppendEntriesRequest, result AppendEntriesResult) AppendEntriesReply {
	return AppendEntriesReply{
		NodeId:       h.self,
		TargetNodeId: req.To,
		Group:        req.Metadata.GroupId,
		Term:         h.ps.GetCurrentTerm(),
		Result:       result,
	}
}

var _ transport.Handler = (*Host)(nil)
