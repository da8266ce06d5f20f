// Interfaces that implementers of the log and persistent-state collaborators
// must satisfy. Election and membership-change collaborators are out of
// scope for this package (see Non-goals).

package raft

// PersistentState is the durable term record every server keeps.
//
// This package only reads CurrentTerm from it (the replication state
// machine never votes); SetCurrentTerm exists for the reference consensus
// host, which does need to track term advancement when it learns of one
// from a reply.
type PersistentState interface {
	// GetCurrentTerm returns the latest term this server has seen.
	// (initialized to 0, increases monotonically)
	GetCurrentTerm() TermNo

	// SetCurrentTerm records a newly observed term. Implementations must
	// reject a decreasing term.
	SetCurrentTerm(currentTerm TermNo) error
}

// Log is the append-only log collaborator. The replication state machine
// drives it through internal.Host.DiskAppend/FlushLog/LogTermAt; Log
// itself is the full surface a concrete log implementation offers (see
// package log).
type Log interface {
	GetIndexOfLastEntry() (LogIndex, error)
	GetTermAtIndex(li LogIndex) (TermNo, error)
	GetEntriesAfterIndex(afterLogIndex LogIndex) ([]LogEntry, error)
	SetEntriesAfterIndex(li LogIndex, entries []LogEntry) error
	AppendEntry(logEntry LogEntry) (LogIndex, error)
	AppendBatch(batch Batch) (LogIndex, error)
	Flush() error
	GetLastFlushedIndex() LogIndex
}

// StateMachine is the downstream consumer of committed log entries (spec
// §6 is silent on it beyond "disk_append"/"flush_log"; this is the
// supplement described in SPEC_FULL.md's statemachine package, grounded on
// this corpus' own committer/applier split).
type StateMachine interface {
	// GetLastApplied returns the index of the last entry applied.
	GetLastApplied() LogIndex

	// ApplyCommand applies command, which must be the entry at logIndex,
	// and returns its result.
	ApplyCommand(logIndex LogIndex, command Command) CommandResult
}
