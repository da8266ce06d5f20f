package rps

import (
	"fmt"
	"os"
	"sync"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/fileutil"
)

type rpsRecord struct {
	CurrentTerm TermNo `json:"currentTerm"`
}

// JsonFileRaftPersistentState is a json-file-backed implementation of
// PersistentState.
//
// The state is initialized by reading the current values in the given
// AtomicJsonFile. If the file does not exist, the values are initialized
// to default values. However, the file is not actually written until a
// setter call.
//
// Every setter will synchronously write to the underlying json file.
//
// The writes are done without reading the current values and the file is
// never read after initialization. This means that concurrent writes by
// another instance, method or process is unsafe while this returned
// instance is in use. The caller is responsible for ensuring
// safe/exclusive access to the underlying file.
//
// The returned instance is safe for access from multiple goroutines.
type JsonFileRaftPersistentState struct {
	mutex sync.Mutex
	ajf   fileutil.AtomicJsonFile
	rpsRecord
}

var _ PersistentState = (*JsonFileRaftPersistentState)(nil)

func NewJsonFileRaftPersistentState(ajf fileutil.AtomicJsonFile) (*JsonFileRaftPersistentState, error) {
	jfrps := &JsonFileRaftPersistentState{ajf: ajf}

	err := ajf.Read(&jfrps.rpsRecord)
	if err != nil {
		if os.IsNotExist(err) {
			jfrps.rpsRecord.CurrentTerm = 0
		} else {
			return nil, err
		}
	}

	return jfrps, nil
}

func (jfrps *JsonFileRaftPersistentState) writeToJsonFile() error {
	return jfrps.ajf.Write(&jfrps.rpsRecord)
}

func (jfrps *JsonFileRaftPersistentState) GetCurrentTerm() TermNo {
	jfrps.mutex.Lock()
	defer jfrps.mutex.Unlock()
	return jfrps.rpsRecord.CurrentTerm
}

func (jfrps *JsonFileRaftPersistentState) SetCurrentTerm(currentTerm TermNo) error {
	jfrps.mutex.Lock()
	defer jfrps.mutex.Unlock()
	if currentTerm == 0 {
		return fmt.Errorf("FATAL: attempt to set currentTerm to 0")
	}
	if currentTerm < jfrps.rpsRecord.CurrentTerm {
		return fmt.Errorf(
			"FATAL: attempt to decrease currentTerm: %v to %v", jfrps.rpsRecord.CurrentTerm, currentTerm,
		)
	}
	jfrps.rpsRecord.CurrentTerm = currentTerm
	return jfrps.writeToJsonFile()
}
