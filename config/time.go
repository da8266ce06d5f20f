package config

import (
	"time"
)

// ReplicationTimeouts holds the timing parameters the replication state
// machine needs from its host.
type ReplicationTimeouts struct {
	// ReplicateAppendTimeout bounds how long a single peer's AppendEntries
	// RPC is allowed to take, and is also the window within which a peer's
	// last_received_reply_timestamp must fall for it to be considered
	// "alive" by the dispatcher's skip policy.
	ReplicateAppendTimeout time.Duration
}

// ValidateReplicationTimeouts performs basic sanity checks of a
// ReplicationTimeouts value.
//
// These are just basic sanity checks and currently don't include the softer
// usefulness checks recommended by the raft protocol.
func ValidateReplicationTimeouts(rt ReplicationTimeouts) string {
	if rt.ReplicateAppendTimeout.Nanoseconds() <= 0 {
		return "ReplicateAppendTimeout must be greater than zero"
	}
	return ""
}
