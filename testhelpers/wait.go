package testhelpers

import (
	"testing"
	"time"

	. "github.com/fenwickdb/raft"
)

// TestHelper_WaitUntil polls cond until it returns true or timeout elapses,
// failing the test in the latter case.
func TestHelper_WaitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

// AssertEventuallyHasValue waits up to timeout for cs to produce a value,
// failing the test if it does not.
func AssertEventuallyHasValue(t *testing.T, timeout time.Duration, cs <-chan CommandResult) {
	select {
	case _, ok := <-cs:
		if !ok {
			t.Fatal("channel should have value but is closed")
		}
	case <-time.After(timeout):
		t.Fatal("timed out waiting for channel to have value")
	}
}
