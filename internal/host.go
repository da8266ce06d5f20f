// Package internal declares the narrow collaborator interface the
// replication state machine (package replicate) depends on, so that it
// never imports the concrete consensus host directly (spec §6, "Consumed
// from the consensus collaborator"). package consensus provides the
// concrete implementation.
package internal

import (
	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/config"
	"github.com/fenwickdb/raft/hbguard"
	"github.com/fenwickdb/raft/logindex"
	"github.com/fenwickdb/raft/peerstats"
	"github.com/fenwickdb/raft/probe"
	"github.com/fenwickdb/raft/transport"
)

// Host is everything one replicate.Round needs from the outer consensus
// object that owns persistent state, the log and the follower tables.
type Host interface {
	// SelfNodeId is the ServerId this node is known as.
	SelfNodeId() ServerId

	// GroupId identifies the raft group this host serves.
	GroupId() GroupId

	// CurrentTerm returns the latest term this host has observed.
	CurrentTerm() TermNo

	// CommittedOffset returns the current commit index.
	CommittedOffset() LogIndex

	// Config returns the current voter/learner configuration.
	Config() *config.ClusterInfo

	// Timeouts returns the replication timing parameters.
	Timeouts() config.ReplicationTimeouts

	// NTP returns a short diagnostic tag (node/term/partition) used only
	// for log fields, never for control flow.
	NTP() string

	// DiskAppend writes batch to the local log, declaring whether the
	// "last quorum replicated index" should advance (spec §4.2).
	DiskAppend(batch Batch, updateLastQuorumIndex bool) (AppendResult, error)

	// FlushLog requests a durability flush of the local log.
	FlushLog() error

	// LogTermAt returns the term recorded at offset in the local log.
	LogTermAt(offset LogIndex) (TermNo, error)

	// PeerStats returns the per-follower bookkeeping table.
	PeerStats() *peerstats.Table

	// ClientProtocol returns the collaborator used to issue AppendEntries
	// RPCs to remote peers.
	ClientProtocol() transport.ClientProtocol

	// ProcessAppendEntriesReply routes a reply (genuine or synthesized)
	// back to the consensus layer, which decides what it means for
	// follower progress, term advancement and commit-index movement.
	ProcessAppendEntriesReply(peer ServerId, reply AppendEntriesReply, followerSeq uint64, dirtyOffset LogIndex)

	// SuppressHeartbeats installs a heartbeat-suppression guard for peer.
	SuppressHeartbeats(peer ServerId) *hbguard.Guard

	// CommitIndexUpdated returns the commit-index condition variable the
	// commit waiter observes.
	CommitIndexUpdated() *logindex.CommitCond

	// ValidateReplyTargetNode returns reply unchanged if its TargetNodeId
	// matches expected, or a target-mismatch error otherwise. tag is a
	// short diagnostic label (e.g. "self" or "peer"); the implementations
	// in this module do not include it in the error.
	ValidateReplyTargetNode(tag string, reply AppendEntriesReply, expected ServerId) (AppendEntriesReply, error)

	// Probe returns the metrics collaborator for error counters and
	// latency timers.
	Probe() *probe.Probe
}
