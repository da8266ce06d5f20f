// Package hbguard implements the heartbeat-suppression guard registry
// (spec §2, §4.8, §9): a scoped, reference-counted token per peer that
// marks heartbeats to that peer as suppressed while a replication round
// dispatches to it. The registry only keeps the count; it does not stop any
// heartbeat itself (see Suppressed).
package hbguard

import (
	"fmt"
	"sync"

	. "github.com/fenwickdb/raft"
)

// Guard is released exactly once, either when the peer's dispatch
// completes or synchronously when the peer is skipped (spec §3 invariants).
// A second Release is a no-op, matching the idempotent-cleanup property
// tested elsewhere in this corpus (e.g. util.TriggeredRunner.StopSync
// guards against double calls differently, but the intent here is the
// same: callers should never have to track whether they already released).
type Guard struct {
	once sync.Once
	r    *Registry
	peer ServerId
}

// Release resumes heartbeats to this peer. Safe to call more than once.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.r.release(g.peer)
	})
}

// Registry tracks, per peer, how many live Guards are currently suppressing
// its heartbeats. Guards for the same peer can in principle overlap (e.g. a
// retried round), so suppression is reference-counted rather than boolean.
type Registry struct {
	mu     sync.Mutex
	counts map[ServerId]int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{counts: make(map[ServerId]int)}
}

// Suppress installs a new suppression guard for peer and returns it.
// Heartbeats to peer stay suppressed until every guard installed for it has
// been released.
func (r *Registry) Suppress(peer ServerId) *Guard {
	r.mu.Lock()
	r.counts[peer]++
	r.mu.Unlock()
	return &Guard{r: r, peer: peer}
}

func (r *Registry) release(peer ServerId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.counts[peer]
	if !ok || n <= 0 {
		panic(fmt.Sprintf("FATAL: hbguard.Registry: release without matching suppress for peer %v", peer))
	}
	if n == 1 {
		delete(r.counts, peer)
	} else {
		r.counts[peer] = n - 1
	}
}

// Suppressed reports whether heartbeats to peer are currently suppressed by
// at least one live guard. Heartbeat sending (consensus.Host.SendHeartbeats)
// does not consult it, so a live guard does not stop a heartbeat round from
// dispatching to its peer.
func (r *Registry) Suppressed(peer ServerId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[peer] > 0
}
