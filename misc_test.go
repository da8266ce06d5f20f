package raft

import (
	"errors"
	"testing"
)

type fakeLogTail struct {
	iole LogIndex
	term TermNo
}

func (f fakeLogTail) GetIndexOfLastEntry() (LogIndex, error) { return f.iole, nil }
func (f fakeLogTail) GetTermAtIndex(li LogIndex) (TermNo, error) {
	if li != f.iole {
		return 0, errors.New("unexpected index")
	}
	return f.term, nil
}
func (f fakeLogTail) GetEntriesAfterIndex(LogIndex) ([]LogEntry, error) { return nil, nil }
func (f fakeLogTail) SetEntriesAfterIndex(LogIndex, []LogEntry) error   { return nil }
func (f fakeLogTail) AppendEntry(LogEntry) (LogIndex, error)           { return 0, nil }
func (f fakeLogTail) AppendBatch(Batch) (LogIndex, error)              { return 0, nil }
func (f fakeLogTail) Flush() error                                     { return nil }
func (f fakeLogTail) GetLastFlushedIndex() LogIndex                    { return 0 }

var _ Log = fakeLogTail{}

func TestGetIndexAndTermOfLastEntry_EmptyLog(t *testing.T) {
	index, term, err := GetIndexAndTermOfLastEntry(fakeLogTail{iole: 0})
	if err != nil {
		t.Fatal(err)
	}
	if index != 0 || term != 0 {
		t.Fatalf("index=%v term=%v", index, term)
	}
}

func TestGetIndexAndTermOfLastEntry_NonEmptyLog(t *testing.T) {
	index, term, err := GetIndexAndTermOfLastEntry(fakeLogTail{iole: 5, term: 3})
	if err != nil {
		t.Fatal(err)
	}
	if index != 5 || term != 3 {
		t.Fatalf("index=%v term=%v", index, term)
	}
}

func TestErrLeaderAppendFailed_WrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewErrLeaderAppendFailed(cause)
	if !IsErrLeaderAppendFailed(err) {
		t.Fatal(err)
	}
	if IsErrLeaderFlushFailed(err) {
		t.Fatal(err)
	}
}

func TestErrLeaderAppendFailed_NilCause(t *testing.T) {
	err := NewErrLeaderAppendFailed(nil)
	if !IsErrLeaderAppendFailed(err) {
		t.Fatal(err)
	}
}

func TestErrTargetNodeMismatch_CarriesExpectedAndGot(t *testing.T) {
	err := NewErrTargetNodeMismatch(1, 2)
	if !IsErrTargetNodeMismatch(err) {
		t.Fatal(err)
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	errs := []error{
		NewErrLeaderAppendFailed(nil),
		NewErrLeaderFlushFailed(nil),
		NewErrAppendEntriesDispatchError(nil),
		NewErrReplicatedEntryTruncated(),
		NewErrShuttingDown(),
		NewErrTargetNodeMismatch(1, 2),
	}
	checks := []func(error) bool{
		IsErrLeaderAppendFailed,
		IsErrLeaderFlushFailed,
		IsErrAppendEntriesDispatchError,
		IsErrReplicatedEntryTruncated,
		IsErrShuttingDown,
		IsErrTargetNodeMismatch,
	}
	for i, err := range errs {
		for j, check := range checks {
			want := i == j
			if check(err) != want {
				t.Fatalf("errs[%d] checks[%d]: want %v", i, j, want)
			}
		}
	}
}

func TestBatch_CloneIsIndependent(t *testing.T) {
	b := Batch{Entries: []LogEntry{{TermNo: 1, Command: Command("c1")}}}
	clone := b.Clone()
	clone.Entries[0].Command = Command("mutated")
	if string(b.Entries[0].Command) != "c1" {
		t.Fatal("original batch was mutated through its clone")
	}
}

func TestBatch_LastOffsetIfAppendedAt(t *testing.T) {
	b := Batch{Entries: []LogEntry{{}, {}, {}}}
	if got := b.LastOffsetIfAppendedAt(5); got != 8 {
		t.Fatal(got)
	}
}

func TestAppendEntriesResult_String(t *testing.T) {
	cases := map[AppendEntriesResult]string{
		AppendEntriesSuccess:          "success",
		AppendEntriesLogMismatch:      "log_mismatch",
		AppendEntriesGroupUnavailable: "group_unavailable",
		AppendEntriesTimeout:          "timeout",
		AppendEntriesTargetMismatch:   "target_mismatch",
		AppendEntriesDispatchError:    "dispatch_error",
		AppendEntriesResult(99):       "unknown",
	}
	for result, want := range cases {
		if got := result.String(); got != want {
			t.Fatalf("result=%v got=%v want=%v", result, got, want)
		}
	}
}
