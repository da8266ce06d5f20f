package probe_test

import (
	"testing"
	"time"

	"github.com/fenwickdb/raft/probe"
)

// These are smoke tests: Probe wraps armon/go-metrics package-level
// functions that have no return value and no observable side effect
// without a configured sink, so the only thing worth asserting is that
// calling them never panics regardless of input.
func TestProbe_ReplicateRequestError(t *testing.T) {
	p := probe.New(1)
	p.ReplicateRequestError()
	p.ReplicateRequestError()
}

func TestProbe_ReplicateRound(t *testing.T) {
	p := probe.New(1)
	p.ReplicateRound(time.Now().Add(-time.Millisecond))
}

func TestProbe_DispatchLatency(t *testing.T) {
	p := probe.New(1)
	p.DispatchLatency(2, time.Now().Add(-time.Millisecond))
	p.DispatchLatency(3, time.Now().Add(-time.Millisecond))
}

func TestProbe_DistinctGroupsDoNotPanic(t *testing.T) {
	probe.New(1).ReplicateRequestError()
	probe.New(2).ReplicateRequestError()
}
