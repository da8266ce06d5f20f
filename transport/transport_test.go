package transport_test

import (
	"context"
	"testing"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/transport"
)

type echoHandler struct {
	lastReq AppendEntriesRequest
}

func (h *echoHandler) HandleAppendEntries(_ context.Context, req AppendEntriesRequest) (AppendEntriesReply, error) {
	h.lastReq = req
	return AppendEntriesReply{
		NodeId:       req.To,
		TargetNodeId: req.From,
		Group:        req.Metadata.GroupId,
		Term:         req.Metadata.Term,
		Result:       AppendEntriesSuccess,
	}, nil
}

func TestLoopback_DispatchesToRegisteredHandler(t *testing.T) {
	l := transport.NewLoopback()
	h := &echoHandler{}
	l.Register(2, h)

	req := AppendEntriesRequest{From: 1, To: 2, Metadata: ProtocolMetadata{GroupId: 1, Term: 3}}
	reply, err := l.AppendEntries(context.Background(), 2, req, transport.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Result != AppendEntriesSuccess {
		t.Fatal(reply)
	}
	if h.lastReq.From != 1 {
		t.Fatal(h.lastReq)
	}
}

func TestLoopback_UnregisteredPeerReturnsGroupUnavailable(t *testing.T) {
	l := transport.NewLoopback()

	req := AppendEntriesRequest{From: 1, To: 99, Metadata: ProtocolMetadata{GroupId: 1, Term: 3}}
	reply, err := l.AppendEntries(context.Background(), 99, req, transport.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Result != AppendEntriesGroupUnavailable {
		t.Fatal(reply)
	}
	if reply.TargetNodeId != 1 {
		t.Fatal(reply)
	}
}

func TestLoopback_HandlerErrorPropagates(t *testing.T) {
	l := transport.NewLoopback()
	wantErr := context.DeadlineExceeded
	l.Register(2, failingHandler{wantErr})

	req := AppendEntriesRequest{From: 1, To: 2, Metadata: ProtocolMetadata{GroupId: 1, Term: 3}}
	_, err := l.AppendEntries(context.Background(), 2, req, transport.Options{})
	if err != wantErr {
		t.Fatal(err)
	}
}

type failingHandler struct{ err error }

func (f failingHandler) HandleAppendEntries(context.Context, AppendEntriesRequest) (AppendEntriesReply, error) {
	return AppendEntriesReply{}, f.err
}
