package raft

// Raft election term.
// Initialized to 0 on first boot, increases monotonically.
type TermNo uint64

// A state machine command (in serialized form).
// The contents of the byte slice are opaque to this package.
type Command []byte

// CommandResult is the result of applying a command to the state machine.
type CommandResult interface{}

// An entry in the Raft log.
type LogEntry struct {
	TermNo
	Command
}

// Log entry index ("offset" in replication terminology). First index is 1.
type LogIndex uint64

// An integer that uniquely identifies a server in a Raft group.
//
// Zero should not be used as a server id.
//
// See config.ClusterInfo for how this is used in this package.
// The number value does not have a meaning to this package.
// This package also does not know about the network details - e.g. protocol/host/port -
// since the RPC is not part of the package but is delegated to the user.
type ServerId uint64

// GroupId identifies the Raft consensus group (partition) a round belongs to.
// Distinct from ServerId: several groups can share the same set of servers.
type GroupId uint64

// Batch is a clonable, owned slice of log entries.
//
// A Batch is the unit the batch sharer (see package replicate) clones for
// each peer and for self-append. Clone produces a value that is safe to hand
// to a goroutine with no further synchronization, at the cost of a copy of
// the entry slice header and its backing array.
type Batch struct {
	Entries []LogEntry
}

// Clone returns a copy of b with its own entry slice: replacing or
// re-slicing entries in one Batch never affects the other. The copy is
// shallow, so each entry's Command bytes are still shared with b.
func (b Batch) Clone() Batch {
	cloned := make([]LogEntry, len(b.Entries))
	copy(cloned, b.Entries)
	return Batch{Entries: cloned}
}

// LastOffsetIfAppendedAt returns the offset of the last entry in b if the
// batch were appended starting right after prevIndex.
func (b Batch) LastOffsetIfAppendedAt(prevIndex LogIndex) LogIndex {
	return prevIndex + LogIndex(len(b.Entries))
}
