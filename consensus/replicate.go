package consensus

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/replicate"
	"github.com/fenwickdb/raft/util"
)

// AppendCommand appends command to the local log and starts a replicate.Round
// to drive it to majority commit, returning a channel that receives its
// eventual CommandResult once the entry commits and is applied (spec §6's
// "exposed to caller" surface, supplemented per SPEC_FULL.md with the
// actual client-facing entrypoint the bare replicate package leaves to its
// caller).
func (h *Host) AppendCommand(command Command) (<-chan CommandResult, error) {
	return h.replicateBatch(Batch{Entries: []LogEntry{{TermNo: h.CurrentTerm(), Command: command}}})
}

// replicate.Round.Apply appends to the log and registerLock serializes that
// append against this Host's own RegisterListener call, so two concurrent
// AppendCommand calls can never register their listeners out of the order
// their entries actually landed in the log (statemachine.Committer requires
// strictly increasing registration order).
func (h *Host) replicateBatch(batch Batch) (<-chan CommandResult, error) {
	h.registerLock.Lock()
	defer h.registerLock.Unlock()

	metadata, err := h.nextRoundMetadata()
	if err != nil {
		return nil, err
	}

	roundId := uuid.NewString()
	round := replicate.NewRound(h, metadata, batch, true, h.NextFollowerSeq(), nil)

	result, err := round.Apply()
	if err != nil {
		round.WaitForShutdown()
		return nil, err
	}

	ch, err := h.RegisterListener(result.LastOffset)
	if err != nil {
		round.WaitForShutdown()
		return nil, err
	}

	sg := util.StartGoroutine(func(_ <-chan struct{}) {
		defer round.WaitForShutdown()
		if _, err := round.WaitForMajority(); err != nil {
			h.logger.Warn("replication round did not reach majority",
				zap.String("round_id", roundId), zap.Error(err))
		}
	})
	h.trackRoundWaiter(sg)

	return ch, nil
}

// nextRoundMetadata builds the AppendEntries header for a new round from
// this Host's current log tail and term.
func (h *Host) nextRoundMetadata() (ProtocolMetadata, error) {
	prevLogIndex, prevLogTerm, err := GetIndexAndTermOfLastEntry(h.log)
	if err != nil {
		return ProtocolMetadata{}, err
	}
	return ProtocolMetadata{
		GroupId:      h.group,
		Term:         h.CurrentTerm(),
		PrevLogIndex: prevLogIndex,
		PrevLogTerm:  prevLogTerm,
		CommitIndex:  h.CommittedOffset(),
	}, nil
}

// SendHeartbeats starts one replicate.Round carrying an empty batch to
// every peer that the round's skip policy does not skip. It does not check
// the hbguard registry: a peer under a live heartbeat-suppression guard
// still receives the heartbeat round. Intended to be called periodically by
// a util.Ticker (see NewHeartbeatTicker).
func (h *Host) SendHeartbeats() {
	h.registerLock.Lock()
	defer h.registerLock.Unlock()

	metadata, err := h.nextRoundMetadata()
	if err != nil {
		h.logger.Error("failed to build heartbeat metadata", zap.Error(err))
		return
	}

	roundId := uuid.NewString()
	round := replicate.NewRound(h, metadata, Batch{}, false, h.NextFollowerSeq(), nil)
	if _, err := round.Apply(); err != nil {
		h.logger.Warn("heartbeat round failed to apply",
			zap.String("round_id", roundId), zap.Error(err))
		round.WaitForShutdown()
		return
	}
	h.trackRoundWaiter(util.StartGoroutine(func(_ <-chan struct{}) {
		round.WaitForShutdown()
	}))
}

// HeartbeatTicker drives SendHeartbeats at a fixed interval, the way
// PassiveConsensusModule.Tick's LEADER branch re-sends AppendEntries to
// every peer on every tick of this corpus' original election-driven
// design — here decoupled from election entirely, since a Host in this
// package is always either leading or passively accepting entries.
type HeartbeatTicker struct {
	ticker *util.Ticker
}

// NewHeartbeatTicker starts a goroutine that calls host.SendHeartbeats
// every interval, until StopSync is called.
func NewHeartbeatTicker(host *Host, interval time.Duration) *HeartbeatTicker {
	return &HeartbeatTicker{ticker: util.NewTicker(host.SendHeartbeats, interval)}
}

// StopSync stops the heartbeat goroutine and waits for it to finish.
func (h *HeartbeatTicker) StopSync() {
	h.ticker.StopSync()
}
