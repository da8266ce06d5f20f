package rps_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenwickdb/raft/fileutil"
	"github.com/fenwickdb/raft/rps"
	"github.com/fenwickdb/raft/testhelpers"
)

// Run the blackbox test on JsonFileRaftPersistentState
func TestNewJsonFileRaftPersistentState_Blackbox(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(wd, "test_jsonfilerps.json")

	err = os.Remove(filename)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}

	jfrps, err := rps.NewJsonFileRaftPersistentState(fileutil.NewAtomicJsonFile(filename))
	if err != nil {
		t.Fatal(err)
	}

	testhelpers.BlackboxTest_PersistentState(t, jfrps)

	if jfrps.GetCurrentTerm() != 4 {
		t.Fatal()
	}
}

// Run whitebox tests on JsonFileRaftPersistentState
func TestNewJsonFileRaftPersistentState_Whitebox(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(wd, "test_jsonfilerps_whitebox.json")

	err = os.Remove(filename)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}

	// Non-existent file is initialization
	jfrps, err := rps.NewJsonFileRaftPersistentState(fileutil.NewAtomicJsonFile(filename))
	if err != nil {
		t.Fatal(err)
	}
	if jfrps.GetCurrentTerm() != 0 {
		t.Fatal(jfrps)
	}
	// no file written for no changes
	if _, err := ioutil.ReadFile(filename); !os.IsNotExist(err) {
		t.Fatal(err)
	}

	// Set currentTerm and check file
	if err := jfrps.SetCurrentTerm(1); err != nil {
		t.Fatal(err)
	}

	data, err := ioutil.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte(`{"currentTerm":1}`)) {
		t.Fatal(string(data))
	}
}
