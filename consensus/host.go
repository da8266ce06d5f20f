// Package consensus provides the reference implementation of
// internal.Host: the object that owns persistent state, the log, the
// follower bookkeeping tables and the commit-index condition variable
// that package replicate drives a round against.
//
// This is scoped to what the replication state machine actually needs
// (spec §1's leader-side single round): it does not run a candidate/voter
// state machine, handle RequestVote, or perform log compaction — those
// remain out of scope. What it adds on top of replicate.Round is the
// bookkeeping a real leader needs between rounds: a monotonic
// per-follower request sequence (the fencing token process_append_entries_reply
// checks replies against), commit-index advancement from per-peer acks,
// and dispatch to the downstream state machine once entries commit.
package consensus

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/config"
	"github.com/fenwickdb/raft/hbguard"
	"github.com/fenwickdb/raft/internal"
	"github.com/fenwickdb/raft/logindex"
	"github.com/fenwickdb/raft/peerstats"
	"github.com/fenwickdb/raft/probe"
	"github.com/fenwickdb/raft/statemachine"
	"github.com/fenwickdb/raft/transport"
	"github.com/fenwickdb/raft/util"
)

// Host is the reference internal.Host implementation: one per raft group
// member in this process. A Host drives replication rounds when it leads
// its group and accepts entries as a follower through HandleAppendEntries
// (see appendentries.go); there is no candidate/election state here (spec
// Non-goals).
type Host struct {
	mu sync.Mutex

	// registerLock serializes DiskAppend+RegisterListener pairs across
	// concurrent AppendCommand/SendHeartbeats calls (see replicate.go).
	registerLock sync.Mutex

	self  ServerId
	group GroupId

	ps  PersistentState
	log Log

	cluster  *config.ClusterInfo
	timeouts config.ReplicationTimeouts

	peerStats *peerstats.Table
	hbRegis   *hbguard.Registry
	transport transport.ClientProtocol
	probe     *probe.Probe
	commit    *logindex.CommitCond
	committer *statemachine.Committer

	followerSeq map[ServerId]uint64
	acked       map[ServerId]LogIndex

	// roundWaiters tracks the background goroutine each replicateBatch/
	// SendHeartbeats call starts to wait out its round's majority commit.
	// StopSync joins every one of them instead of leaking them on shutdown.
	roundWaiters []*util.StoppableGoroutine

	logger *zap.Logger
}

func nowFunc() time.Time { return time.Now() }

// NewHost wires the collaborators a replication round needs into one
// Host. clientProtocol is typically a *transport.Loopback shared with
// every other Host in the same in-process cluster; logger may be
// zap.NewNop() if the caller does not want logging.
func NewHost(
	self ServerId,
	group GroupId,
	ps PersistentState,
	l Log,
	cluster *config.ClusterInfo,
	timeouts config.ReplicationTimeouts,
	clientProtocol transport.ClientProtocol,
	stateMachine StateMachine,
	logger *zap.Logger,
) *Host {
	peerStats := peerstats.New()
	_ = cluster.ForEachPeer(func(peer ServerId) error {
		peerStats.AddPeer(peer, cluster.IsLearner(peer))
		return nil
	})

	h := &Host{
		self:        self,
		group:       group,
		ps:          ps,
		log:         l,
		cluster:     cluster,
		timeouts:    timeouts,
		peerStats:   peerStats,
		hbRegis:     hbguard.New(),
		transport:   clientProtocol,
		probe:       probe.New(group),
		commit:      logindex.NewCommitCond(),
		followerSeq: make(map[ServerId]uint64),
		logger:      logger,
	}
	h.committer = statemachine.NewCommitter(l, stateMachine, h.onCommitterFatalError)
	return h
}

func (h *Host) onCommitterFatalError(err error) {
	h.logger.Error("committer stopped on fatal error", zap.Error(err))
	h.committer.StopSync()
}

// StopSync releases this Host's background goroutines: the Committer's
// applier, and every outstanding replicateBatch/SendHeartbeats waiter
// started via trackRoundWaiter. Call Shutdown first so those waiters'
// blocked WaitForMajority calls actually return; otherwise this blocks
// forever on whichever round hasn't reached majority, truncation, or a
// broken CommitCond yet.
func (h *Host) StopSync() {
	h.committer.StopSync()

	h.mu.Lock()
	waiters := h.roundWaiters
	h.roundWaiters = nil
	h.mu.Unlock()

	for _, sg := range waiters {
		sg.Join()
	}
}

// trackRoundWaiter registers sg so StopSync joins it instead of leaking it.
func (h *Host) trackRoundWaiter(sg *util.StoppableGoroutine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roundWaiters = append(h.roundWaiters, sg)
}

// Shutdown breaks the commit-index condition variable, unblocking every
// in-flight replicate.Round.WaitForMajority call with shutting_down
// (spec §4.7, §8).
func (h *Host) Shutdown() {
	h.commit.Break()
}

// NextFollowerSeq returns a fresh copy of the followers_seq map with every
// peer assigned the next sequence number in its monotonic series (spec
// GLOSSARY "Follower sequence"). The returned map is a defensive
// snapshot: replicate.Round never sees this Host's live map.
func (h *Host) NextFollowerSeq() map[ServerId]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.cluster.ForEachPeer(func(peer ServerId) error {
		h.followerSeq[peer]++
		return nil
	})
	return maps.Clone(h.followerSeq)
}

func (h *Host) SelfNodeId() ServerId { return h.self }
func (h *Host) GroupId() GroupId     { return h.group }

func (h *Host) CurrentTerm() TermNo {
	return h.ps.GetCurrentTerm()
}

func (h *Host) CommittedOffset() LogIndex {
	return h.commit.CommitIndex()
}

func (h *Host) Config() *config.ClusterInfo { return h.cluster }

func (h *Host) Timeouts() config.ReplicationTimeouts { return h.timeouts }

func (h *Host) NTP() string {
	return fmt.Sprintf("%v/%v/%v", h.self, h.CurrentTerm(), h.group)
}

func (h *Host) DiskAppend(batch Batch, updateLastQuorumIndex bool) (AppendResult, error) {
	lastOffset, err := h.log.AppendBatch(batch)
	if err != nil {
		return AppendResult{}, err
	}
	return AppendResult{LastOffset: lastOffset, LastTerm: h.ps.GetCurrentTerm()}, nil
}

func (h *Host) FlushLog() error {
	return h.log.Flush()
}

func (h *Host) LogTermAt(offset LogIndex) (TermNo, error) {
	return h.log.GetTermAtIndex(offset)
}

func (h *Host) PeerStats() *peerstats.Table { return h.peerStats }

func (h *Host) ClientProtocol() transport.ClientProtocol { return h.transport }

// ProcessAppendEntriesReply routes a reply from the dispatcher (spec §4.4)
// into term advancement, follower-progress bookkeeping, and commit-index
// advancement. Stale replies — those whose follower_seq does not match
// the current sequence for that peer — are discarded: a later round has
// already superseded whatever this reply is answering.
func (h *Host) ProcessAppendEntriesReply(
	peer ServerId, reply AppendEntriesReply, followerSeq uint64, dirtyOffset LogIndex,
) {
	h.mu.Lock()
	current, ok := h.followerSeq[peer]
	isStale := peer != h.self && (!ok || followerSeq != current)
	h.mu.Unlock()
	if isStale {
		h.logger.Debug("discarding stale append entries reply",
			zap.Uint64("peer", uint64(peer)), zap.Uint64("followerSeq", followerSeq))
		return
	}

	if reply.Term > h.CurrentTerm() {
		if err := h.ps.SetCurrentTerm(reply.Term); err != nil {
			h.logger.Error("failed to advance term from reply", zap.Error(err))
		}
		// A term change can make a waiter's truncation predicate worth
		// re-checking even though the commit index itself didn't move —
		// wake every WaitForMajority caller so it re-evaluates.
		h.commit.Touch()
	}

	if reply.Result != AppendEntriesSuccess {
		h.logger.Debug("append entries reply not successful",
			zap.Uint64("peer", uint64(peer)), zap.String("result", reply.Result.String()))
		return
	}

	h.peerStats.UpdateReplyTimestamp(peer, nowFunc())
	h.advanceCommitIndex(peer, reply.LastDirtyLogIndex)
}

// advanceCommitIndex implements the leader-side majority rule (#RFS-L4 in
// this corpus' election FSM, here driving logindex.CommitCond instead of
// PassiveConsensusModule.advanceCommitIndexIfPossible): once a strict
// majority of voters (including self) have acked an offset, the commit
// index may advance to it.
func (h *Host) advanceCommitIndex(peer ServerId, ackedOffset LogIndex) {
	h.mu.Lock()
	if h.acked == nil {
		h.acked = make(map[ServerId]LogIndex)
	}
	h.acked[peer] = ackedOffset
	values := make([]LogIndex, 0, len(h.acked))
	for voter, offset := range h.acked {
		if h.cluster.IsVoter(voter) || voter == h.self {
			values = append(values, offset)
		}
	}
	h.mu.Unlock()

	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })
	quorum := int(h.cluster.QuorumSizeForCluster())
	if quorum <= 0 || quorum > len(values) {
		return
	}
	candidate := values[quorum-1]
	if candidate <= h.commit.CommitIndex() {
		return
	}

	termAtCandidate, err := h.log.GetTermAtIndex(candidate)
	if err != nil || termAtCandidate != h.CurrentTerm() {
		// #RFS-L4's "log[N].term == currentTerm" guard: never commit an
		// entry replicated under an earlier term purely by count.
		return
	}

	h.commit.Advance(candidate)
	if err := h.committer.CommitAsync(candidate); err != nil {
		h.logger.Error("committer rejected commit index advance", zap.Error(err))
	}
}

func (h *Host) SuppressHeartbeats(peer ServerId) *hbguard.Guard {
	return h.hbRegis.Suppress(peer)
}

func (h *Host) CommitIndexUpdated() *logindex.CommitCond { return h.commit }

func (h *Host) ValidateReplyTargetNode(
	tag string, reply AppendEntriesReply, expected ServerId,
) (AppendEntriesReply, error) {
	if reply.TargetNodeId != expected {
		return AppendEntriesReply{}, NewErrTargetNodeMismatch(expected, reply.TargetNodeId)
	}
	return reply, nil
}

func (h *Host) Probe() *probe.Probe { return h.probe }

// RegisterListener exposes the Committer's listener registration to the
// caller wiring a replicate.Round's commit result to a state machine
// result channel (spec §6, statemachine package).
func (h *Host) RegisterListener(logIndex LogIndex) (<-chan CommandResult, error) {
	return h.committer.RegisterListener(logIndex)
}

// RemoveListenersAfterIndex drops any speculative listeners registered
// for entries a new leader has since truncated.
func (h *Host) RemoveListenersAfterIndex(afterIndex LogIndex) {
	h.committer.RemoveListenersAfterIndex(afterIndex)
}

var _ internal.Host = (*Host)(nil)
