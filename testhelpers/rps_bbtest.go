package testhelpers

import (
	"testing"

	. "github.com/fenwickdb/raft"
)

// BlackboxTest_PersistentState runs a standard sequence of assertions
// against any PersistentState implementation, starting from a blank
// (term 0) state.
func BlackboxTest_PersistentState(t *testing.T, ps PersistentState) {
	if ps.GetCurrentTerm() != 0 {
		t.Fatal()
	}

	// Set currentTerm to 0 is an error
	err := ps.SetCurrentTerm(0)
	if err == nil || err.Error() != "FATAL: attempt to set currentTerm to 0" {
		t.Fatal(err)
	}
	if ps.GetCurrentTerm() != 0 {
		t.Fatal()
	}

	// Set currentTerm greater is ok
	if err := ps.SetCurrentTerm(1); err != nil {
		t.Fatal(err)
	}
	if ps.GetCurrentTerm() != 1 {
		t.Fatal()
	}

	// Set currentTerm same is ok
	if err := ps.SetCurrentTerm(1); err != nil {
		t.Fatal(err)
	}
	if ps.GetCurrentTerm() != 1 {
		t.Fatal()
	}

	// Set currentTerm greater is ok
	if err := ps.SetCurrentTerm(4); err != nil {
		t.Fatal(err)
	}
	if ps.GetCurrentTerm() != 4 {
		t.Fatal()
	}

	// Set currentTerm less is an error
	err = ps.SetCurrentTerm(3)
	if err == nil || err.Error() != "FATAL: attempt to decrease currentTerm: 4 to 3" {
		t.Fatal(err)
	}
	if ps.GetCurrentTerm() != 4 {
		t.Fatal()
	}
}
