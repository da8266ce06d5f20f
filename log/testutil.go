package log

import (
	"strconv"

	. "github.com/fenwickdb/raft"
)

// TestUtil_NewInMemoryLogWithTerms creates an InMemoryLog seeded with one
// entry per element of logTerms, with commands c1, c2, ...
func TestUtil_NewInMemoryLogWithTerms(logTerms []TermNo, maxEntriesPerAppendEntry uint64) *InMemoryLog {
	l := NewInMemoryLog(maxEntriesPerAppendEntry)
	for i, term := range logTerms {
		command := Command("c" + strconv.Itoa(i+1))
		if _, err := l.AppendEntry(LogEntry{TermNo: term, Command: command}); err != nil {
			panic(err)
		}
	}
	return l
}
