// Package peerstats tracks per-follower replication bookkeeping: the
// fields the dispatcher's skip policy reads (spec §4.3) and the admission
// semaphore that bounds in-flight AppendEntries RPCs per follower (spec
// §6's peer_stats.get_append_entries_unit).
//
// This supersedes the NextIndex/MatchIndex bookkeeping of this corpus'
// older heartbeat-driven leader state (consensus/leader): the replication
// state machine dispatches whole batches per round rather than stepping a
// per-peer next-index, so what the dispatcher needs instead is liveness
// and "where do we believe this peer is" tracking.
package peerstats

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	. "github.com/fenwickdb/raft"
)

// Entry is the mutable bookkeeping the consensus layer owns for one peer.
// The replication state machine only ever reads these fields (for the skip
// decision) and writes ExpectedLogEndOffset/LastSentProtocolMeta and
// LastSentTimestamp at dispatch time (spec §5, "Shared-resource policy").
type Entry struct {
	// ExpectedLogEndOffset is where the leader believes the peer's log
	// ends. The dispatcher sends a batch only when this matches the
	// batch's PrevLogIndex.
	ExpectedLogEndOffset LogIndex

	// LastSentProtocolMeta is the metadata header of the most recently
	// dispatched (or about to be dispatched) AppendEntries for this peer.
	LastSentProtocolMeta ProtocolMetadata

	// LastReceivedReplyTimestamp is the last time this peer sent a
	// successful reply (AppendEntries or heartbeat). The skip policy treats a peer
	// as dead if this falls outside ReplicateAppendTimeout of now.
	LastReceivedReplyTimestamp time.Time

	// LastSentTimestamp is updated immediately before a dispatch is
	// issued to this peer.
	LastSentTimestamp time.Time

	// IsLearner marks a non-voting peer: the skip policy's "first
	// request" exemption never applies to it (spec GLOSSARY) — a learner
	// always runs the liveness/log-position checks, even on its first
	// request.
	IsLearner bool

	// everRequested is true once at least one AppendEntries has been sent
	// to this peer. The skip policy exempts a voter's first request from
	// the liveness/log-position checks.
	everRequested bool

	unit *semaphore.Weighted
}

// Table is the leader's full set of per-peer Entry bookkeeping, keyed by
// ServerId, plus the admission semaphores used to bound in-flight RPCs.
type Table struct {
	mu      sync.Mutex
	entries map[ServerId]*Entry
}

// New creates an empty Table.
func New() *Table {
	return &Table{entries: make(map[ServerId]*Entry)}
}

// AddPeer registers a peer with the Table, initializing its admission
// semaphore to allow exactly one in-flight AppendEntries at a time.
func (t *Table) AddPeer(peer ServerId, isLearner bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[peer] = &Entry{
		IsLearner: isLearner,
		unit:      semaphore.NewWeighted(1),
	}
}

// Find returns the Entry for peer and whether it is present in the table.
// The dispatcher's skip policy treats an absent peer as "always skip".
func (t *Table) Find(peer ServerId) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[peer]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// MarkRequested records that a request has been dispatched to peer,
// updating ExpectedLogEndOffset, LastSentProtocolMeta, LastSentTimestamp
// and clearing the "first request" exemption.
func (t *Table) MarkRequested(peer ServerId, expectedLogEndOffset LogIndex, meta ProtocolMetadata, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[peer]
	if !ok {
		panic("FATAL: peerstats.Table.MarkRequested: unknown peer")
	}
	e.ExpectedLogEndOffset = expectedLogEndOffset
	e.LastSentProtocolMeta = meta
	e.LastSentTimestamp = now
	e.everRequested = true
}

// UpdateSentTimestamp updates LastSentTimestamp only, used immediately
// before a dispatch's RPC is issued (spec §4.4).
func (t *Table) UpdateSentTimestamp(peer ServerId, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[peer]; ok {
		e.LastSentTimestamp = now
	}
}

// UpdateReplyTimestamp records that peer has replied at now. The consensus
// layer's reply routing calls it only for successful replies, so a synthetic
// dispatch-error or target-mismatch reply never refreshes a peer's liveness.
func (t *Table) UpdateReplyTimestamp(peer ServerId, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[peer]; ok {
		e.LastReceivedReplyTimestamp = now
	}
}

// ShouldSkip implements the dispatcher's skip policy (spec §4.3): send
// only when the peer is in the table and all of the liveness/log-position
// checks pass. A voter's first-ever request bypasses those checks; a
// learner never gets that bypass, even on its first request, so a dead
// learner is still skipped like any dead voter.
func (t *Table) ShouldSkip(peer ServerId, prevLogIndex LogIndex, timeout time.Duration, now time.Time) bool {
	t.mu.Lock()
	e, ok := t.entries[peer]
	var snap Entry
	if ok {
		snap = *e
	}
	t.mu.Unlock()
	if !ok {
		return true
	}
	if !snap.IsLearner && !snap.everRequested {
		return false
	}
	if now.Sub(snap.LastReceivedReplyTimestamp) > timeout {
		return true
	}
	if snap.ExpectedLogEndOffset != prevLogIndex {
		return true
	}
	return false
}

// AcquireUnit blocks until an admission unit for peer is available, then
// returns it acquired. This bounds the number of in-flight AppendEntries
// RPCs to this single peer to one at a time (spec §6,
// peer_stats.get_append_entries_unit).
func (t *Table) AcquireUnit(ctx context.Context, peer ServerId) error {
	unit, ok := t.unitFor(peer)
	if !ok {
		panic("FATAL: peerstats.Table.AcquireUnit: unknown peer")
	}
	return unit.Acquire(ctx, 1)
}

// ReturnUnit releases the admission unit acquired for peer by AcquireUnit.
func (t *Table) ReturnUnit(peer ServerId) {
	unit, ok := t.unitFor(peer)
	if !ok {
		panic("FATAL: peerstats.Table.ReturnUnit: unknown peer")
	}
	unit.Release(1)
}

func (t *Table) unitFor(peer ServerId) (*semaphore.Weighted, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[peer]
	if !ok {
		return nil, false
	}
	return e.unit, true
}
