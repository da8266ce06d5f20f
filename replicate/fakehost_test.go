package replicate_test

import (
	"context"
	"sort"
	"sync"
	"time"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/config"
	"github.com/fenwickdb/raft/hbguard"
	"github.com/fenwickdb/raft/internal"
	"github.com/fenwickdb/raft/log"
	"github.com/fenwickdb/raft/logindex"
	"github.com/fenwickdb/raft/peerstats"
	"github.com/fenwickdb/raft/probe"
	"github.com/fenwickdb/raft/rps"
	"github.com/fenwickdb/raft/transport"
)

// fakeHost is a minimal implementation of internal.Host for testing
// replicate.Round in isolation, without the reference consensus package.
type fakeHost struct {
	mu sync.Mutex

	self    ServerId
	group   GroupId
	cluster *config.ClusterInfo
	ps      *rps.InMemoryRaftPersistentState

	l *log.InMemoryLog

	timeouts config.ReplicationTimeouts

	peerStats *peerstats.Table
	hbRegis   *hbguard.Registry
	transport *transport.Loopback
	probe     *probe.Probe
	commit    *logindex.CommitCond

	flushErr      error
	diskAppendErr error

	replies []recordedReply
	acked   map[ServerId]LogIndex
}

type recordedReply struct {
	peer        ServerId
	reply       AppendEntriesReply
	followerSeq uint64
	dirtyOffset LogIndex
}

func newFakeHost(self ServerId, voters, learners []ServerId, timeout config.ReplicationTimeouts) *fakeHost {
	cluster, err := config.NewClusterInfo(voters, learners, self)
	if err != nil {
		panic(err)
	}
	h := &fakeHost{
		self:      self,
		group:     1,
		cluster:   cluster,
		ps:        rps.NewIMPSWithCurrentTerm(1),
		l:         log.NewInMemoryLog(100),
		timeouts:  timeout,
		peerStats: peerstats.New(),
		hbRegis:   hbguard.New(),
		transport: transport.NewLoopback(),
		probe:     probe.New(1),
		commit:    logindex.NewCommitCond(),
		acked:     make(map[ServerId]LogIndex),
	}
	_ = cluster.ForEachPeer(func(peer ServerId) error {
		h.peerStats.AddPeer(peer, cluster.IsLearner(peer))
		return nil
	})
	return h
}

var _ internal.Host = (*fakeHost)(nil)

func (h *fakeHost) SelfNodeId() ServerId { return h.self }
func (h *fakeHost) GroupId() GroupId     { return h.group }
func (h *fakeHost) CurrentTerm() TermNo  { return h.ps.GetCurrentTerm() }

func (h *fakeHost) CommittedOffset() LogIndex {
	return h.commit.CommitIndex()
}

func (h *fakeHost) Config() *config.ClusterInfo               { return h.cluster }
func (h *fakeHost) Timeouts() config.ReplicationTimeouts       { return h.timeouts }
func (h *fakeHost) NTP() string                                { return "test/1/1" }

func (h *fakeHost) DiskAppend(batch Batch, updateLastQuorumIndex bool) (AppendResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.diskAppendErr != nil {
		return AppendResult{}, h.diskAppendErr
	}
	lastOffset, err := h.l.AppendBatch(batch)
	if err != nil {
		return AppendResult{}, err
	}
	term := h.ps.GetCurrentTerm()
	return AppendResult{LastOffset: lastOffset, LastTerm: term}, nil
}

func (h *fakeHost) FlushLog() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.flushErr != nil {
		return h.flushErr
	}
	return h.l.Flush()
}

func (h *fakeHost) LogTermAt(offset LogIndex) (TermNo, error) {
	return h.l.GetTermAtIndex(offset)
}

func (h *fakeHost) PeerStats() *peerstats.Table             { return h.peerStats }
func (h *fakeHost) ClientProtocol() transport.ClientProtocol { return h.transport }

func (h *fakeHost) ProcessAppendEntriesReply(
	peer ServerId, reply AppendEntriesReply, followerSeq uint64, dirtyOffset LogIndex,
) {
	h.mu.Lock()
	h.replies = append(h.replies, recordedReply{peer, reply, followerSeq, dirtyOffset})
	h.mu.Unlock()

	h.peerStats.UpdateReplyTimestamp(peer, time.Now())

	if reply.Result == AppendEntriesSuccess {
		h.recordAck(peer, reply.LastDirtyLogIndex)
	}
}

// recordAck implements a minimal majority rule so replicate.Round's commit
// waiter has something real to observe: once at least quorum voters
// (including self) have acked an offset, the commit index advances to the
// highest offset that quorum has reached.
func (h *fakeHost) recordAck(peer ServerId, offset LogIndex) {
	h.mu.Lock()
	h.acked[peer] = offset
	values := make([]LogIndex, 0, len(h.acked))
	for p, v := range h.acked {
		if h.cluster.IsVoter(p) || p == h.self {
			values = append(values, v)
		}
	}
	h.mu.Unlock()

	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })
	quorum := int(h.cluster.QuorumSizeForCluster())
	if quorum <= 0 || quorum > len(values) {
		return
	}
	candidate := values[quorum-1]
	if candidate > h.commit.CommitIndex() {
		h.commit.Advance(candidate)
	}
}

func (h *fakeHost) SuppressHeartbeats(peer ServerId) *hbguard.Guard {
	return h.hbRegis.Suppress(peer)
}

func (h *fakeHost) CommitIndexUpdated() *logindex.CommitCond { return h.commit }

func (h *fakeHost) ValidateReplyTargetNode(
	tag string, reply AppendEntriesReply, expected ServerId,
) (AppendEntriesReply, error) {
	if reply.TargetNodeId != expected {
		return AppendEntriesReply{}, NewErrTargetNodeMismatch(expected, reply.TargetNodeId)
	}
	return reply, nil
}

func (h *fakeHost) Probe() *probe.Probe { return h.probe }

// registerLoopbackPeer wires peer as its own AppendEntries handler, always
// succeeding at dirtyOffset.
func (h *fakeHost) registerLoopbackPeer(peer ServerId) {
	h.transport.Register(peer, alwaysSucceedHandler{})
}

type alwaysSucceedHandler struct{}

func (alwaysSucceedHandler) HandleAppendEntries(
	_ context.Context, req AppendEntriesRequest,
) (AppendEntriesReply, error) {
	last := req.Metadata.PrevLogIndex + LogIndex(len(req.Batches))
	return AppendEntriesReply{
		NodeId:              req.To,
		TargetNodeId:        req.To,
		Group:               req.Metadata.GroupId,
		Term:                req.Metadata.Term,
		LastDirtyLogIndex:   last,
		LastFlushedLogIndex: last,
		Result:              AppendEntriesSuccess,
	}, nil
}
