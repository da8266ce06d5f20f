// Package probe wraps armon/go-metrics counters and timers for the
// replication state machine's external diagnostics hook (spec §6:
// probe.replicate_request_error()).
package probe

import (
	"strconv"
	"time"

	metrics "github.com/armon/go-metrics"

	. "github.com/fenwickdb/raft"
)

// Probe is the metrics collaborator a replicate.Round reports to, scoped to
// one raft group. It calls the armon/go-metrics package-level functions
// directly, the same way other_examples' hashicorp/raft replication.go
// does against the shared default metrics instance.
type Probe struct {
	group []string
}

// New creates a Probe labelling every metric under "raft.replicate.<group>".
func New(groupID GroupId) *Probe {
	return &Probe{group: []string{"raft", "replicate", strconv.FormatUint(uint64(groupID), 10)}}
}

func (p *Probe) key(suffix ...string) []string {
	return append(append([]string{}, p.group...), suffix...)
}

// ReplicateRequestError increments the per-group AppendEntries error
// counter. Called whenever a reply (genuine or synthesized) carries a
// non-success result (see replicate's per-peer dispatch, §4.4).
func (p *Probe) ReplicateRequestError() {
	metrics.IncrCounter(p.key("request_error"), 1)
}

// ReplicateRound measures the latency of one full Apply() call: local
// append plus scheduling of every peer dispatch.
func (p *Probe) ReplicateRound(start time.Time) {
	metrics.MeasureSince(p.key("round"), start)
}

// DispatchLatency measures the latency of a single peer's AppendEntries
// RPC, from issue to reply (or synthesized error reply).
func (p *Probe) DispatchLatency(peer ServerId, start time.Time) {
	labels := []metrics.Label{{Name: "peer", Value: strconv.FormatUint(uint64(peer), 10)}}
	metrics.MeasureSinceWithLabels(p.key("dispatch"), start, labels)
}
