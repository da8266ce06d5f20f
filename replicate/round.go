// Package replicate implements the leader-side single-round replication
// state machine: the short-lived coordinator that drives one batch of log
// entries from "accepted by the leader" to "committed by a majority" (or
// to a definitive failure). One Round is created per replication call.
package replicate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/hbguard"
	"github.com/fenwickdb/raft/internal"
	"github.com/fenwickdb/raft/transport"
)

// dispatchSemCapacity bounds the number of peers one Round can ever
// dispatch to. It only needs to exceed any real cluster size; the
// semaphore is fully pre-acquired at construction and each dispatch
// releases one unit of it back, so wait(requestsCount) (spec §4.6) can
// block on however many of those units have come back.
const dispatchSemCapacity = 1 << 20

// ResourceUnits is the caller-supplied back-pressure token for outbound
// memory accounting (spec §3, "resource_units"). Release is called exactly
// once, after every per-peer dispatch has issued (spec §4.6).
type ResourceUnits interface {
	Release()
}

type noopResourceUnits struct{}

func (noopResourceUnits) Release() {}

// Round is one in-flight replication round: it is owned exclusively by the
// caller of Apply, and must not be reused after WaitForShutdown returns
// (spec §3, "Lifecycle").
type Round struct {
	host internal.Host

	metadata      ProtocolMetadata
	flushRequired bool
	followersSeq  map[ServerId]uint64

	sharer *batchSharer

	hbGuards map[ServerId]*hbguard.Guard

	dirtyOffset            LogIndex
	initialCommittedOffset LogIndex
	appendResult           AppendResult
	appendErr              error

	dispatchSem   *semaphore.Weighted
	requestsCount int64
	resourceUnits ResourceUnits

	reqBG    *errgroup.Group
	reqBGCtx context.Context

	shutdownOnce sync.Once
}

// NewRound constructs a Round from an AppendEntries request header and a
// peer-to-sequence map (spec §6, "Constructor").
//
// flushRequired declares the consistency level for this round's
// self-append (spec GLOSSARY, "Flush-required"). batch is the input batch
// stream; it is cloned per peer by the batch sharer and never mutated by
// the Round itself. units is released once every dispatch has issued; pass
// nil if the caller has nothing to account.
func NewRound(
	host internal.Host,
	metadata ProtocolMetadata,
	batch Batch,
	flushRequired bool,
	followersSeq map[ServerId]uint64,
	units ResourceUnits,
) *Round {
	if units == nil {
		units = noopResourceUnits{}
	}

	dispatchSem := semaphore.NewWeighted(dispatchSemCapacity)
	// Fully pre-acquire: every dispatch's eventual Release(1) then shows up
	// as spare capacity for the cleanup task's Acquire(requestsCount) to
	// consume (spec §4.6's dispatch_sem.wait(N)).
	if err := dispatchSem.Acquire(context.Background(), dispatchSemCapacity); err != nil {
		panic(fmt.Sprintf("FATAL: replicate.NewRound: %v", err))
	}

	return &Round{
		host:          host,
		metadata:      metadata,
		flushRequired: flushRequired,
		followersSeq:  followersSeq,
		sharer:        newBatchSharer(batch),
		hbGuards:      make(map[ServerId]*hbguard.Guard),
		dispatchSem:   dispatchSem,
		resourceUnits: units,
		reqBG:         &errgroup.Group{},
		reqBGCtx:      context.Background(),
	}
}

// Apply performs self-append, publishes dirty_offset, and schedules every
// per-peer dispatch. It returns after local append succeeds and all
// dispatches have been scheduled (not answered) — the "accepted locally,
// dispatch in progress" acknowledgement (spec §4.8, §6).
func (r *Round) Apply() (ReplicateResult, error) {
	start := time.Now()
	defer r.host.Probe().ReplicateRound(start)

	self := r.host.SelfNodeId()

	// 1. Install heartbeat-suppression guards for every peer this round may
	// visit (voters and learners alike — §4.3's skip/release logic needs a
	// guard for any peer it might skip, not only voters), before the
	// self-append, so no heartbeat can race ahead of the append with stale
	// metadata (spec §4.8 step 1, §9).
	if err := r.host.Config().ForEachPeer(func(peer ServerId) error {
		r.hbGuards[peer] = r.host.SuppressHeartbeats(peer)
		return nil
	}); err != nil {
		return ReplicateResult{}, err
	}

	// 3. Self-append. (step 2, taking ownership of resourceUnits, already
	// happened at construction.)
	appendResult, err := r.selfAppend()
	if err != nil {
		r.appendErr = err
		r.releaseAllGuards()
		r.resourceUnits.Release()
		return ReplicateResult{}, err
	}
	r.appendResult = appendResult

	// 4. Publish dirty_offset and snapshot initial_committed_offset.
	r.dirtyOffset = appendResult.LastOffset
	r.initialCommittedOffset = r.host.CommittedOffset()

	// 5. Dispatch to every peer.
	r.dispatchAll(self)

	// 6. Background-schedule the post-dispatch cleanup.
	r.scheduleCleanup()

	return ReplicateResult{LastOffset: r.dirtyOffset}, nil
}

func (r *Round) selfAppend() (AppendResult, error) {
	batch := r.sharer.Share()
	result, err := r.host.DiskAppend(batch, r.flushRequired)
	if err != nil {
		return AppendResult{}, NewErrLeaderAppendFailed(err)
	}
	return result, nil
}

// releaseAllGuards releases every installed heartbeat guard. Used on the
// self-append-failure path, where no per-peer dispatch will run to release
// them individually.
func (r *Round) releaseAllGuards() {
	for _, g := range r.hbGuards {
		g.Release()
	}
}

// dispatchAll iterates every peer the round must visit (every voter and
// learner other than self) applying the skip policy, and the leader's own
// slot via the self-flusher, incrementing requestsCount for every peer
// actually dispatched (spec §4.3).
func (r *Round) dispatchAll(self ServerId) {
	// The leader's own slot always "dispatches" via the self-flusher.
	r.requestsCount++
	r.scheduleDispatch(self, self)

	_ = r.host.Config().ForEachPeer(func(peer ServerId) error {
		if r.shouldSkip(peer) {
			r.hbGuards[peer].Release()
			return nil
		}
		r.host.PeerStats().MarkRequested(peer, r.dirtyOffset, r.metadata, time.Now())
		r.requestsCount++
		r.scheduleDispatch(peer, self)
		return nil
	})
}

func (r *Round) shouldSkip(peer ServerId) bool {
	return r.host.PeerStats().ShouldSkip(
		peer, r.metadata.PrevLogIndex, r.host.Timeouts().ReplicateAppendTimeout, time.Now(),
	)
}

// scheduleDispatch runs dispatchSingleRetry for peer inside req_bg,
// contributing exactly one dispatch_sem permit as soon as the RPC (or
// self-flush) has been issued, not once the reply has been processed
// (spec §4.4, §9 — signalling after the reply would serialize replication
// rounds and destroy pipelining).
func (r *Round) scheduleDispatch(peer, self ServerId) {
	r.reqBG.Go(func() error {
		r.dispatchSingleRetry(r.reqBGCtx, peer, self)
		return nil
	})
}

// dispatchSingleRetry implements spec §4.4: the leader's own slot goes
// through the self-flusher; every other peer goes through a remote
// AppendEntries RPC. Releasing the dispatch_sem permit is the issuer's
// responsibility (selfFlush, dispatchRemote) so it happens the moment the
// RPC has left the leader, not after this function returns.
func (r *Round) dispatchSingleRetry(ctx context.Context, peer, self ServerId) {
	start := time.Now()
	defer r.host.Probe().DispatchLatency(peer, start)

	var reply AppendEntriesReply
	var dispatchErr error

	if peer == self {
		reply, dispatchErr = r.selfFlush()
	} else {
		reply, dispatchErr = r.dispatchRemote(ctx, peer)
	}

	if dispatchErr != nil {
		reply = syntheticErrorReply(r.host, peer, r.metadata)
	}

	validated, verr := r.host.ValidateReplyTargetNode(tagFor(peer, self), reply, peer)
	if verr != nil {
		validated = syntheticTargetMismatchReply(r.host, peer, r.metadata)
	}

	if validated.Result != AppendEntriesSuccess {
		r.host.Probe().ReplicateRequestError()
	}

	followerSeq, ok := r.followersSeq[peer]
	if !ok && peer != self {
		panic(fmt.Sprintf("FATAL: replicate.Round: missing follower sequence for peer %v", peer))
	}

	r.host.ProcessAppendEntriesReply(peer, validated, followerSeq, r.dirtyOffset)
}

func tagFor(peer, self ServerId) string {
	if peer == self {
		return "self"
	}
	return "peer"
}

func (r *Round) dispatchRemote(ctx context.Context, peer ServerId) (AppendEntriesReply, error) {
	batch := r.sharer.Share()

	defer r.hbGuards[peer].Release()

	if err := r.host.PeerStats().AcquireUnit(ctx, peer); err != nil {
		r.dispatchSem.Release(1)
		return AppendEntriesReply{}, NewErrAppendEntriesDispatchError(err)
	}
	defer r.host.PeerStats().ReturnUnit(peer)

	reqCtx, cancel := context.WithTimeout(ctx, r.host.Timeouts().ReplicateAppendTimeout)
	defer cancel()

	req := AppendEntriesRequest{
		From:          r.host.SelfNodeId(),
		To:            peer,
		Metadata:      r.metadata,
		Batches:       batch.Entries,
		FlushRequired: r.flushRequired,
	}

	// The RPC is considered dispatched the moment it's issued, not once the
	// reply comes back — release the dispatch_sem permit here, before the
	// call blocks on the peer's response.
	r.host.PeerStats().UpdateSentTimestamp(peer, time.Now())
	r.dispatchSem.Release(1)

	reply, err := r.host.ClientProtocol().AppendEntries(reqCtx, peer, req, transport.Options{})
	if err != nil {
		return AppendEntriesReply{}, NewErrAppendEntriesDispatchError(err)
	}
	return reply, nil
}

func syntheticErrorReply(host internal.Host, peer ServerId, meta ProtocolMetadata) AppendEntriesReply {
	return AppendEntriesReply{
		NodeId:       peer,
		TargetNodeId: peer,
		Group:        meta.GroupId,
		Term:         host.CurrentTerm(),
		Result:       AppendEntriesDispatchError,
	}
}

func syntheticTargetMismatchReply(host internal.Host, peer ServerId, meta ProtocolMetadata) AppendEntriesReply {
	return AppendEntriesReply{
		NodeId:       peer,
		TargetNodeId: host.SelfNodeId(),
		Group:        meta.GroupId,
		Term:         host.CurrentTerm(),
		Result:       AppendEntriesTargetMismatch,
	}
}

// selfFlush implements spec §4.5: the dispatch_sem permit for the leader's
// slot is released immediately on entry, not after the flush completes,
// since the leader's "dispatch" is logically instantaneous — the permit
// must not be held hostage to the flush's disk I/O.
func (r *Round) selfFlush() (AppendEntriesReply, error) {
	r.dispatchSem.Release(1)

	if r.flushRequired {
		if err := r.host.FlushLog(); err != nil {
			return AppendEntriesReply{}, NewErrLeaderFlushFailed(err)
		}
	}

	self := r.host.SelfNodeId()
	return AppendEntriesReply{
		NodeId:              self,
		TargetNodeId:        self,
		Group:               r.metadata.GroupId,
		Term:                r.host.CurrentTerm(),
		LastDirtyLogIndex:   r.dirtyOffset,
		LastFlushedLogIndex: r.dirtyOffset,
		Result:              AppendEntriesSuccess,
	}, nil
}

// scheduleCleanup implements spec §4.6: after dispatchSem has received one
// permit per scheduled peer, release the batch holder and resource units.
func (r *Round) scheduleCleanup() {
	requestsCount := r.requestsCount
	r.reqBG.Go(func() error {
		if err := r.dispatchSem.Acquire(context.Background(), requestsCount); err != nil {
			return err
		}
		r.sharer.Release()
		r.resourceUnits.Release()
		return nil
	})
}

// WaitForShutdown closes req_bg, awaiting every background task including
// the cleanup task (spec §6, §8 "idempotence of cleanup"). Safe to call
// more than once; only the first call has any effect.
func (r *Round) WaitForShutdown() {
	r.shutdownOnce.Do(func() {
		_ = r.reqBG.Wait()
	})
}
