package log

import (
	"testing"

	. "github.com/fenwickdb/raft"
)

// Test InMemoryLog using the Log black-box test suite.
func TestInMemoryLog_BlackboxTest(t *testing.T) {
	l := TestUtil_NewInMemoryLogWithTerms([]TermNo{1, 1, 1, 4, 4, 5, 5, 6, 6, 6}, 3)
	BlackboxTest_Log(t, l)
}

func TestInMemoryLog_AppendBatch(t *testing.T) {
	l := NewInMemoryLog(10)

	last, err := l.AppendBatch(Batch{Entries: []LogEntry{
		{TermNo: 1, Command: Command("c1")},
		{TermNo: 1, Command: Command("c2")},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if last != 2 {
		t.Fatal(last)
	}

	iole, err := l.GetIndexOfLastEntry()
	if err != nil || iole != 2 {
		t.Fatal(iole, err)
	}
}

func TestInMemoryLog_FlushTracksLastFlushedOffset(t *testing.T) {
	l := NewInMemoryLog(10)

	if l.GetLastFlushedIndex() != 0 {
		t.Fatal("expected 0 before any append/flush")
	}

	if _, err := l.AppendEntry(LogEntry{TermNo: 1, Command: Command("c1")}); err != nil {
		t.Fatal(err)
	}
	if l.GetLastFlushedIndex() != 0 {
		t.Fatal("append alone must not advance the flushed offset")
	}

	if err := l.Flush(); err != nil {
		t.Fatal(err)
	}
	if l.GetLastFlushedIndex() != 1 {
		t.Fatal(l.GetLastFlushedIndex())
	}
}
