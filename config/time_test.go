package config_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenwickdb/raft/config"
)

func TestValidateReplicationTimeouts(t *testing.T) {
	tests := []struct {
		rt          config.ReplicationTimeouts
		expectedErr string
	}{
		{
			config.ReplicationTimeouts{ReplicateAppendTimeout: 50 * time.Millisecond},
			"",
		},
		{
			config.ReplicationTimeouts{ReplicateAppendTimeout: 0},
			"ReplicateAppendTimeout must be greater than zero",
		},
		{
			config.ReplicationTimeouts{ReplicateAppendTimeout: -1 * time.Millisecond},
			"ReplicateAppendTimeout must be greater than zero",
		},
	}

	for _, test := range tests {
		actualErr := config.ValidateReplicationTimeouts(test.rt)
		if actualErr != test.expectedErr {
			t.Error(fmt.Sprintf("Expected: %v, Actual: %v", test.expectedErr, actualErr))
		}
	}
}
