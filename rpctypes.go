// Wire types for the AppendEntries RPC. RequestVote is out of scope (leader
// election is a Non-goal of this package) so no candidate-side types live
// here.

package raft

// ProtocolMetadata is the AppendEntries header describing where a batch
// belongs in the log, independent of its payload.
type ProtocolMetadata struct {
	GroupId      GroupId
	Term         TermNo
	PrevLogIndex LogIndex
	PrevLogTerm  TermNo
	CommitIndex  LogIndex
}

// AppendEntriesRequest is the wire request sent to one peer.
//
// The replication state machine treats the payload as opaque beyond the
// fields below: group id, leader term, prev_log_index, prev_log_term and
// committed index snapshot (the metadata), plus the batch and the flush
// requirement.
type AppendEntriesRequest struct {
	From          ServerId
	To            ServerId
	Metadata      ProtocolMetadata
	Batches       []LogEntry
	FlushRequired bool
}

// AppendEntriesResult enumerates the outcomes a peer (or the leader's own
// synthesized self-reply) can report for an AppendEntriesRequest.
type AppendEntriesResult int

const (
	AppendEntriesSuccess AppendEntriesResult = iota
	AppendEntriesLogMismatch
	AppendEntriesGroupUnavailable
	AppendEntriesTimeout
	AppendEntriesTargetMismatch
	AppendEntriesDispatchError
)

func (r AppendEntriesResult) String() string {
	switch r {
	case AppendEntriesSuccess:
		return "success"
	case AppendEntriesLogMismatch:
		return "log_mismatch"
	case AppendEntriesGroupUnavailable:
		return "group_unavailable"
	case AppendEntriesTimeout:
		return "timeout"
	case AppendEntriesTargetMismatch:
		return "target_mismatch"
	case AppendEntriesDispatchError:
		return "dispatch_error"
	default:
		return "unknown"
	}
}

// AppendEntriesReply is the wire reply, whether genuinely received from a
// peer or synthesized locally (self-flush, or a dispatch error converted
// into an error reply per the propagation policy).
type AppendEntriesReply struct {
	NodeId              ServerId
	TargetNodeId        ServerId
	Group               GroupId
	Term                TermNo
	LastDirtyLogIndex   LogIndex
	LastFlushedLogIndex LogIndex
	Result              AppendEntriesResult
}

// AppendResult is the outcome of writing a batch to the leader's own log
// (the disk_append collaborator operation).
type AppendResult struct {
	LastOffset LogIndex
	LastTerm   TermNo
}

// ReplicateResult is returned to the caller both by Apply() (the local
// acknowledgement) and by WaitForMajority() (the commit acknowledgement).
type ReplicateResult struct {
	LastOffset LogIndex
}
