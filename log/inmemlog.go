// Package log provides a Log implementation plus a black-box test suite
// any Log implementation can be run against (spec §6: disk_append,
// flush_log, log.term_at).
package log

import (
	"fmt"
	"sync"

	. "github.com/fenwickdb/raft"
)

// InMemoryLog is an in-memory implementation of the raft Log.
//
// Unlike this corpus' earlier InMemoryLog, this one tracks a separate
// "last flushed" offset so Flush has an observable effect: the
// self-flusher (spec §4.5) needs to report last_flushed_log_index
// distinctly from last_dirty_log_index.
type InMemoryLog struct {
	maxEntries uint64

	lock              sync.RWMutex
	entries           []LogEntry
	lastFlushedOffset LogIndex
}

// Check that InMemoryLog implements the Log interface.
var _ Log = (*InMemoryLog)(nil)

// NewInMemoryLog creates a new InMemoryLog.
//
// maxEntries is the maximum number of log entries GetEntriesAfterIndex
// will return at a time.
func NewInMemoryLog(maxEntries uint64) *InMemoryLog {
	if maxEntries == 0 {
		panic("maxEntries must be greater than zero")
	}
	return &InMemoryLog{maxEntries: maxEntries}
}

func (iml *InMemoryLog) GetIndexOfLastEntry() (LogIndex, error) {
	iml.lock.RLock()
	defer iml.lock.RUnlock()
	return LogIndex(len(iml.entries)), nil
}

func (iml *InMemoryLog) GetTermAtIndex(li LogIndex) (TermNo, error) {
	iml.lock.RLock()
	defer iml.lock.RUnlock()
	if li == 0 {
		return 0, fmt.Errorf("GetTermAtIndex(): li=0")
	}
	if li > LogIndex(len(iml.entries)) {
		return 0, fmt.Errorf("GetTermAtIndex(): li=%v > iole=%v", li, len(iml.entries))
	}
	return iml.entries[li-1].TermNo, nil
}

func (iml *InMemoryLog) GetEntriesAfterIndex(afterLogIndex LogIndex) ([]LogEntry, error) {
	iml.lock.RLock()
	defer iml.lock.RUnlock()

	iole := LogIndex(len(iml.entries))
	if afterLogIndex > iole {
		return nil, fmt.Errorf("afterLogIndex=%v is > iole=%v", afterLogIndex, iole)
	}

	numEntriesToGet := uint64(iole - afterLogIndex)
	if numEntriesToGet == 0 {
		return []LogEntry{}, nil
	}
	if numEntriesToGet > iml.maxEntries {
		numEntriesToGet = iml.maxEntries
	}

	result := make([]LogEntry, numEntriesToGet)
	copy(result, iml.entries[afterLogIndex:afterLogIndex+LogIndex(numEntriesToGet)])
	return result, nil
}

func (iml *InMemoryLog) SetEntriesAfterIndex(li LogIndex, entries []LogEntry) error {
	iml.lock.Lock()
	defer iml.lock.Unlock()

	iole := LogIndex(len(iml.entries))
	if iole < li {
		return fmt.Errorf("SetEntriesAfterIndex(%d, ...) but iole=%d", li, iole)
	}
	if iole > li {
		iml.entries = iml.entries[:li]
	}
	iml.entries = append(iml.entries, entries...)
	return nil
}

func (iml *InMemoryLog) AppendEntry(logEntry LogEntry) (LogIndex, error) {
	iml.lock.Lock()
	defer iml.lock.Unlock()
	iml.entries = append(iml.entries, logEntry)
	return LogIndex(len(iml.entries)), nil
}

// AppendBatch appends every entry in batch in order, returning the
// resulting index of the last entry (the self-appender's "last offset",
// spec §4.2).
func (iml *InMemoryLog) AppendBatch(batch Batch) (LogIndex, error) {
	iml.lock.Lock()
	defer iml.lock.Unlock()
	iml.entries = append(iml.entries, batch.Entries...)
	return LogIndex(len(iml.entries)), nil
}

// Flush advances the last-flushed offset to the current end of the log.
// A real disk-backed Log would fsync here; this in-memory one has nothing
// to sync, so Flush can never fail.
func (iml *InMemoryLog) Flush() error {
	iml.lock.Lock()
	defer iml.lock.Unlock()
	iml.lastFlushedOffset = LogIndex(len(iml.entries))
	return nil
}

// GetLastFlushedIndex returns the offset of the last entry known to have
// been flushed.
func (iml *InMemoryLog) GetLastFlushedIndex() LogIndex {
	iml.lock.RLock()
	defer iml.lock.RUnlock()
	return iml.lastFlushedOffset
}
