package consensus_test

import (
	"testing"
	"time"

	"go.uber.org/zap"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/config"
	"github.com/fenwickdb/raft/consensus"
	"github.com/fenwickdb/raft/log"
	"github.com/fenwickdb/raft/rps"
	"github.com/fenwickdb/raft/testhelpers"
	"github.com/fenwickdb/raft/transport"
)

func timeouts() config.ReplicationTimeouts {
	return config.ReplicationTimeouts{ReplicateAppendTimeout: 100 * time.Millisecond}
}

// newCluster wires three Hosts sharing one transport.Loopback: voters
// {1, 2, 3}, self=1 is the only one that ever calls AppendCommand in
// these tests, playing the leader role; 2 and 3 only ever receive.
func newCluster(t *testing.T) (leader *consensus.Host, dsms map[ServerId]*testhelpers.DummyStateMachine) {
	t.Helper()

	voters := []ServerId{1, 2, 3}
	loopback := transport.NewLoopback()
	dsms = map[ServerId]*testhelpers.DummyStateMachine{
		1: testhelpers.NewDummyStateMachine(0),
		2: testhelpers.NewDummyStateMachine(0),
		3: testhelpers.NewDummyStateMachine(0),
	}

	hosts := make(map[ServerId]*consensus.Host)
	for _, id := range voters {
		cluster, err := config.NewClusterInfo(voters, nil, id)
		if err != nil {
			t.Fatal(err)
		}
		h := consensus.NewHost(
			id, 1,
			rps.NewIMPSWithCurrentTerm(1),
			log.NewInMemoryLog(100),
			cluster,
			timeouts(),
			loopback,
			dsms[id],
			zap.NewNop(),
		)
		hosts[id] = h
		loopback.Register(id, h)
		t.Cleanup(func() {
			h.Shutdown()
			h.StopSync()
		})
	}

	return hosts[1], dsms
}

func TestHost_AppendCommandReplicatesAndApplies(t *testing.T) {
	leader, dsms := newCluster(t)

	ch, err := leader.AppendCommand(testhelpers.DummyCommand(101))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case result := <-ch:
		if result != "c101" {
			t.Fatal(result)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for command result")
	}

	// The append round's own metadata snapshots committed_offset before
	// the round commits, so followers only learn of the new commit index
	// on a subsequent round — the same lag a live heartbeat stream would
	// cover.
	leader.SendHeartbeats()

	testhelpers.TestHelper_WaitUntil(t, time.Second, func() bool {
		return dsms[1].AppliedCommandsEqual(101) &&
			dsms[2].AppliedCommandsEqual(101) &&
			dsms[3].AppliedCommandsEqual(101)
	})
}

func TestHost_SendHeartbeatsDoesNotAdvanceLog(t *testing.T) {
	leader, _ := newCluster(t)

	before := leader.CommittedOffset()
	leader.SendHeartbeats()

	testhelpers.TestHelper_WaitUntil(t, time.Second, func() bool {
		return leader.CommittedOffset() == before
	})
}

func TestHost_HeartbeatTickerStopsCleanly(t *testing.T) {
	leader, _ := newCluster(t)

	ticker := consensus.NewHeartbeatTicker(leader, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	ticker.StopSync()
}
