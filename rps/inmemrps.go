package rps

import (
	"fmt"
	"sync"

	. "github.com/fenwickdb/raft"
)

// InMemoryRaftPersistentState is an in-memory implementation of
// PersistentState.
type InMemoryRaftPersistentState struct {
	mutex       sync.Mutex
	currentTerm TermNo
}

var _ PersistentState = (*InMemoryRaftPersistentState)(nil)

func (imps *InMemoryRaftPersistentState) GetCurrentTerm() TermNo {
	imps.mutex.Lock()
	defer imps.mutex.Unlock()
	return imps.currentTerm
}

func (imps *InMemoryRaftPersistentState) SetCurrentTerm(currentTerm TermNo) error {
	imps.mutex.Lock()
	defer imps.mutex.Unlock()
	if currentTerm == 0 {
		return fmt.Errorf("FATAL: attempt to set currentTerm to 0")
	}
	if currentTerm < imps.currentTerm {
		return fmt.Errorf(
			"FATAL: attempt to decrease currentTerm: %v to %v", imps.currentTerm, currentTerm,
		)
	}
	imps.currentTerm = currentTerm
	return nil
}

// NewIMPSWithCurrentTerm creates an InMemoryRaftPersistentState seeded with
// the given term.
func NewIMPSWithCurrentTerm(currentTerm TermNo) *InMemoryRaftPersistentState {
	return &InMemoryRaftPersistentState{currentTerm: currentTerm}
}
