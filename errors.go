package raft

import (
	"fmt"

	"github.com/go-errors/errors"
)

// leaderAppendFailed: local append threw or returned error; nothing was
// replicated.
var errLeaderAppendFailed = errors.Errorf("leader append failed")

func NewErrLeaderAppendFailed(cause error) error {
	if cause == nil {
		return errors.New(errLeaderAppendFailed)
	}
	return errors.Wrap(fmt.Errorf("%w: %v", errLeaderAppendFailed, cause), 1)
}

func IsErrLeaderAppendFailed(e error) bool {
	return errors.Is(e, errLeaderAppendFailed)
}

// leaderFlushFailed: leader slot could not flush; treated identically to a
// failed remote reply for that slot.
var errLeaderFlushFailed = errors.Errorf("leader flush failed")

func NewErrLeaderFlushFailed(cause error) error {
	if cause == nil {
		return errors.New(errLeaderFlushFailed)
	}
	return errors.Wrap(fmt.Errorf("%w: %v", errLeaderFlushFailed, cause), 1)
}

func IsErrLeaderFlushFailed(e error) bool {
	return errors.Is(e, errLeaderFlushFailed)
}

// appendEntriesDispatchError: per-peer RPC could not be issued or threw;
// converted into a synthetic error reply and routed through the normal
// reply path. Never propagated to the caller of apply().
var errAppendEntriesDispatchError = errors.Errorf("append entries dispatch error")

func NewErrAppendEntriesDispatchError(cause error) error {
	if cause == nil {
		return errors.New(errAppendEntriesDispatchError)
	}
	return errors.Wrap(fmt.Errorf("%w: %v", errAppendEntriesDispatchError, cause), 1)
}

func IsErrAppendEntriesDispatchError(e error) bool {
	return errors.Is(e, errAppendEntriesDispatchError)
}

// replicatedEntryTruncated: commit wait observed that the entry's term at
// its offset no longer matches the term at which it was appended.
var errReplicatedEntryTruncated = errors.Errorf("replicated entry truncated")

func NewErrReplicatedEntryTruncated() error {
	return errors.New(errReplicatedEntryTruncated)
}

func IsErrReplicatedEntryTruncated(e error) bool {
	return errors.Is(e, errReplicatedEntryTruncated)
}

// shuttingDown: commit-index condition variable broken during wait.
var errShuttingDown = errors.Errorf("shutting down")

func NewErrShuttingDown() error {
	return errors.New(errShuttingDown)
}

func IsErrShuttingDown(e error) bool {
	return errors.Is(e, errShuttingDown)
}

// targetNodeMismatch: a peer's reply carried a target_node_id that does not
// match the peer the request was sent to.
var errTargetNodeMismatch = errors.Errorf("append entries reply target node mismatch")

func NewErrTargetNodeMismatch(expected, got ServerId) error {
	return errors.Wrap(
		fmt.Errorf("%w: expected=%v got=%v", errTargetNodeMismatch, expected, got),
		1,
	)
}

func IsErrTargetNodeMismatch(e error) bool {
	return errors.Is(e, errTargetNodeMismatch)
}
