package testhelpers

import (
	"testing"

	"github.com/fenwickdb/raft/testing2"
)

func TestDummyStateMachine(t *testing.T) {
	dsm := NewDummyStateMachine(0)

	if dsm.GetLastApplied() != 0 {
		t.Fatal(dsm)
	}
	if !dsm.AppliedCommandsEqual() {
		t.Fatal(dsm)
	}

	result := dsm.ApplyCommand(1, DummyCommand(101))
	if result != "c101" {
		t.Fatal(result)
	}
	dsm.ApplyCommand(2, DummyCommand(102))
	dsm.ApplyCommand(3, DummyCommand(103))
	if !dsm.AppliedCommandsEqual(101, 102, 103) {
		t.Fatal(dsm)
	}
	if dsm.GetLastApplied() != 3 {
		t.Fatal(dsm.GetLastApplied())
	}

	testing2.AssertPanicsWithString(
		t,
		func() {
			dsm.ApplyCommand(2, DummyCommand(104))
		},
		"DummyStateMachine: logIndex=2 is < current lastApplied=3",
	)
}
