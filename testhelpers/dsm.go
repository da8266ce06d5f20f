package testhelpers

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	. "github.com/fenwickdb/raft"
)

// DummyStateMachine is a dummy StateMachine implementation. It does not
// provide any useful state or commands, and is meant only for tests
// exercising the replication and commit-application machinery around it.
type DummyStateMachine struct {
	mutex           sync.Mutex
	lastApplied     LogIndex
	appliedCommands []Command
}

// DummyCommand serializes to Command("cN").
func DummyCommand(N int) Command {
	return Command("c" + strconv.Itoa(N))
}

func NewDummyStateMachine(lastApplied LogIndex) *DummyStateMachine {
	return &DummyStateMachine{
		lastApplied:     lastApplied,
		appliedCommands: []Command{},
	}
}

func (dsm *DummyStateMachine) GetLastApplied() LogIndex {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()
	return dsm.lastApplied
}

func (dsm *DummyStateMachine) ApplyCommand(logIndex LogIndex, command Command) CommandResult {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	if logIndex < dsm.lastApplied {
		panic(fmt.Sprintf(
			"DummyStateMachine: logIndex=%d is < current lastApplied=%d",
			logIndex,
			dsm.lastApplied,
		))
	}

	dsm.appliedCommands = append(dsm.appliedCommands, command)
	dsm.lastApplied = logIndex
	return string(command)
}

func (dsm *DummyStateMachine) AppliedCommandsEqual(cmds ...int) bool {
	dsm.mutex.Lock()
	defer dsm.mutex.Unlock()

	appliedCommands := make([]Command, len(cmds))
	for i, s := range cmds {
		appliedCommands[i] = DummyCommand(s)
	}
	return reflect.DeepEqual(dsm.appliedCommands, appliedCommands)
}

// DummyCommandEquals is a helper for comparing a Command against the
// result of DummyCommand(n).
func DummyCommandEquals(c Command, n int) bool {
	cn := Command("c" + strconv.Itoa(n))
	return bytes.Equal(c, cn)
}
