package config

import (
	"fmt"

	"github.com/go-errors/errors"

	. "github.com/fenwickdb/raft"
)

// A ClusterInfo holds the ServerIds of the members of a Raft group and
// provides useful functions to work with this list.
//
// Unlike a plain voter-only cluster, ClusterInfo also tracks learners:
// non-voting members that still receive AppendEntries but never count
// towards quorum. The dispatcher's skip policy exempts a voter's first
// request from its liveness and log-position checks, but a learner never
// gets that exemption: every request to a learner runs the checks, even
// its first.
type ClusterInfo struct {
	thisServerId         ServerId
	voterIds             []ServerId // Excludes thisServerId
	learnerIds           []ServerId
	clusterSize          uint
	quorumSizeForCluster uint
}

// NewClusterInfo allocates and validates a new ClusterInfo.
//
//   - ServerIds must be distinct non-zero values.
//   - voterIds should list every voting member of the group, including
//     thisServerId.
//   - thisServerId is the ServerId of "this" server, and must be a voter:
//     the replication state machine only ever runs on a leader, and a
//     leader is always a voter.
//   - learnerIds lists non-voting members; it must not overlap voterIds.
func NewClusterInfo(
	voterIds []ServerId,
	learnerIds []ServerId,
	thisServerId ServerId,
) (*ClusterInfo, error) {
	if voterIds == nil {
		return nil, errors.New("voterIds is nil")
	}
	if len(voterIds) < 1 {
		return nil, errors.New("voterIds must have at least 1 element")
	}
	if thisServerId == 0 {
		return nil, errors.New("thisServerId is 0")
	}

	seen := make(map[ServerId]bool)
	clusterSize := len(voterIds)
	peerVoterIds := make([]ServerId, 0, clusterSize-1)
	for _, id := range voterIds {
		if id == 0 {
			return nil, errors.New("voterIds contains 0")
		}
		if seen[id] {
			return nil, fmt.Errorf("voterIds contains duplicate value: %v", id)
		}
		seen[id] = true
		if id != thisServerId {
			peerVoterIds = append(peerVoterIds, id)
		}
	}
	if !seen[thisServerId] {
		return nil, fmt.Errorf("voterIds does not contain thisServerId: %v", thisServerId)
	}

	peerLearnerIds := make([]ServerId, 0, len(learnerIds))
	for _, id := range learnerIds {
		if id == 0 {
			return nil, errors.New("learnerIds contains 0")
		}
		if seen[id] {
			return nil, fmt.Errorf("learnerIds overlaps voterIds: %v", id)
		}
		seen[id] = true
		peerLearnerIds = append(peerLearnerIds, id)
	}

	return &ClusterInfo{
		thisServerId:         thisServerId,
		voterIds:             peerVoterIds,
		learnerIds:           peerLearnerIds,
		clusterSize:          uint(clusterSize),
		quorumSizeForCluster: QuorumSizeForClusterSize(uint(clusterSize)),
	}, nil
}

// GetThisServerId returns the ServerId of "this" server.
func (ci *ClusterInfo) GetThisServerId() ServerId {
	return ci.thisServerId
}

// ForEachVoter iterates over every voter in the group other than "this"
// server, calling f with its ServerId. If f returns an error, iteration
// stops and that error is returned.
func (ci *ClusterInfo) ForEachVoter(f func(serverId ServerId) error) error {
	for _, id := range ci.voterIds {
		if err := f(id); err != nil {
			return err
		}
	}
	return nil
}

// ForEachLearner iterates over every learner, calling f with its ServerId.
func (ci *ClusterInfo) ForEachLearner(f func(serverId ServerId) error) error {
	for _, id := range ci.learnerIds {
		if err := f(id); err != nil {
			return err
		}
	}
	return nil
}

// ForEachPeer iterates over every member (voter or learner) other than
// "this" server: the iteration the dispatcher drives. It must dispatch to
// learners too, just without counting them towards quorum.
func (ci *ClusterInfo) ForEachPeer(f func(serverId ServerId) error) error {
	if err := ci.ForEachVoter(f); err != nil {
		return err
	}
	return ci.ForEachLearner(f)
}

// IsVoter reports whether serverId is a voting peer (excludes "this" server).
func (ci *ClusterInfo) IsVoter(serverId ServerId) bool {
	for _, id := range ci.voterIds {
		if id == serverId {
			return true
		}
	}
	return false
}

// IsLearner reports whether serverId is a learner.
func (ci *ClusterInfo) IsLearner(serverId ServerId) bool {
	for _, id := range ci.learnerIds {
		if id == serverId {
			return true
		}
	}
	return false
}

// GetClusterSize returns the number of voters in the group (learners do not
// count).
func (ci *ClusterInfo) GetClusterSize() uint {
	return ci.clusterSize
}

// QuorumSizeForCluster returns the quorum size for this ClusterInfo.
func (ci *ClusterInfo) QuorumSizeForCluster() uint {
	return ci.quorumSizeForCluster
}

// QuorumSizeForClusterSize calculates the quorum size for a given voter
// count. For example, a cluster of 5 voters requires 3 for quorum.
func QuorumSizeForClusterSize(clusterSize uint) uint {
	return (clusterSize / 2) + 1
}

func (ci *ClusterInfo) String() string {
	return fmt.Sprintf(
		"ClusterInfo{this=%v voters=%v learners=%v quorum=%v}",
		ci.thisServerId, ci.voterIds, ci.learnerIds, ci.quorumSizeForCluster,
	)
}
