package log

import (
	"bytes"
	"reflect"
	"testing"

	. "github.com/fenwickdb/raft"
)

// testCommandEquals reports whether c serializes to the given string.
func testCommandEquals(c Command, s string) bool {
	return bytes.Equal(c, Command(s))
}

// BlackboxTest_Log runs a standard sequence of assertions against any Log
// implementation, seeded with 10 entries with terms
// 1,1,1,4,4,5,5,6,6,6 and commands c1..c10.
func BlackboxTest_Log(t *testing.T, l Log) {
	iole, err := l.GetIndexOfLastEntry()
	if err != nil {
		t.Fatal(err)
	}
	if iole != 10 {
		t.Fatal(iole)
	}

	term, err := l.GetTermAtIndex(10)
	if err != nil {
		t.Fatal(err)
	}
	if term != 6 {
		t.Fatal(term)
	}

	entries, err := l.GetEntriesAfterIndex(9)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].TermNo != 6 || !testCommandEquals(entries[0].Command, "c10") {
		t.Fatal(entries)
	}

	// set - invalid index beyond iole
	if err := l.SetEntriesAfterIndex(11, []LogEntry{{TermNo: 8, Command: Command("c12")}}); err == nil {
		t.Fatal("expected error setting entries past the end of the log")
	}

	// set - append with no replacing
	if err := l.SetEntriesAfterIndex(10, []LogEntry{
		{TermNo: 7, Command: Command("c11")},
		{TermNo: 8, Command: Command("c12")},
	}); err != nil {
		t.Fatal(err)
	}
	iole, err = l.GetIndexOfLastEntry()
	if err != nil || iole != 12 {
		t.Fatal(iole, err)
	}

	// set - partial replacing
	if err := l.SetEntriesAfterIndex(10, []LogEntry{
		{TermNo: 7, Command: Command("c11")},
		{TermNo: 9, Command: Command("c12")},
		{TermNo: 9, Command: Command("c13'")},
	}); err != nil {
		t.Fatal(err)
	}
	entries, err = l.GetEntriesAfterIndex(11)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(entries[0], LogEntry{TermNo: 9, Command: Command("c12")}) {
		t.Fatal(entries)
	}

	// append
	if _, err := l.AppendEntry(LogEntry{TermNo: 8, Command: Command("c14")}); err != nil {
		t.Fatal(err)
	}
	iole, err = l.GetIndexOfLastEntry()
	if err != nil || iole != 14 {
		t.Fatal(iole, err)
	}

	// set - no new entries, truncates only
	if err := l.SetEntriesAfterIndex(3, []LogEntry{}); err != nil {
		t.Fatal(err)
	}
	iole, err = l.GetIndexOfLastEntry()
	if err != nil || iole != 3 {
		t.Fatal(iole, err)
	}
	entries, err = l.GetEntriesAfterIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(entries[0], LogEntry{TermNo: 1, Command: Command("c3")}) {
		t.Fatal(entries)
	}
}
