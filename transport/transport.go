// Package transport defines the ClientProtocol collaborator the dispatcher
// uses to issue AppendEntries RPCs (spec §6: client_protocol.append_entries)
// and provides an in-process loopback implementation for tests and for the
// reference consensus host's own self-contained examples.
package transport

import (
	"context"

	. "github.com/fenwickdb/raft"
)

// Options carries per-call dispatch options. UseAllSerdeFlag mirrors the
// §6 client_protocol.append_entries "use_all_serde_flag" parameter: this
// package treats it as opaque and simply threads it through to whatever
// transport-level codec negotiation a real implementation would apply; the
// loopback double ignores it entirely since there is no wire encoding to
// negotiate.
type Options struct {
	UseAllSerdeFlag bool
}

// ClientProtocol sends one AppendEntriesRequest to peer and returns its
// reply, or an error if the RPC could not be completed. Implementations
// must honor ctx's deadline: the dispatcher attaches replicate_append_timeout
// (spec §4.4).
type ClientProtocol interface {
	AppendEntries(ctx context.Context, peer ServerId, req AppendEntriesRequest, opts Options) (AppendEntriesReply, error)
}

// Handler is what a receiving node exposes to the loopback transport: the
// logic that turns an incoming AppendEntriesRequest into a reply. A real
// multi-process transport would instead serialize the request over the
// wire and have the remote node's own consensus host run this.
type Handler interface {
	HandleAppendEntries(ctx context.Context, req AppendEntriesRequest) (AppendEntriesReply, error)
}

// Loopback is a ClientProtocol that dispatches directly, in-process, to
// each peer's registered Handler. It never serializes anything: this is
// the "in-process loopback double" the spec's §6 ClientProtocol is
// abstracted behind, useful for single-process tests and examples that
// want several raft nodes sharing one process.
type Loopback struct {
	peers map[ServerId]Handler
}

// NewLoopback creates an empty Loopback transport.
func NewLoopback() *Loopback {
	return &Loopback{peers: make(map[ServerId]Handler)}
}

// Register associates peer with the Handler that should receive requests
// addressed to it.
func (l *Loopback) Register(peer ServerId, h Handler) {
	l.peers[peer] = h
}

// AppendEntries implements ClientProtocol by calling the registered
// Handler for req.To directly. If no Handler is registered, it returns a
// group_unavailable reply rather than an error, mimicking an RPC layer
// that could not reach an unknown node.
func (l *Loopback) AppendEntries(
	ctx context.Context, peer ServerId, req AppendEntriesRequest, _ Options,
) (AppendEntriesReply, error) {
	h, ok := l.peers[peer]
	if !ok {
		return AppendEntriesReply{
			NodeId:       peer,
			TargetNodeId: req.From,
			Group:        req.Metadata.GroupId,
			Term:         req.Metadata.Term,
			Result:       AppendEntriesGroupUnavailable,
		}, nil
	}
	return h.HandleAppendEntries(ctx, req)
}
