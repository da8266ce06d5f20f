// Package statemachine applies committed log entries to a StateMachine and
// notifies callers waiting on a particular index's result. It sits
// downstream of the commit waiter (spec §4.7): once replicate.Round
// observes the commit index has reached an offset, this is what actually
// turns the command at that offset into a result.
//
// Grounded on this corpus' committer.Committer (the simpler of its two
// committer designs — the other, Applier, drives itself off a
// log.WatchableIndex/commitIndex.WatchableIndex pair; this package's
// caller instead explicitly calls CommitAsync whenever
// logindex.CommitCond advances, so the listener-based design is unneeded
// plumbing for this domain).
package statemachine

import (
	"fmt"
	"sync"

	. "github.com/fenwickdb/raft"
	"github.com/fenwickdb/raft/util"
)

// LogReader is the subset of Log the Committer needs: read-only access to
// the tail of the log it is applying.
type LogReader interface {
	GetIndexOfLastEntry() (LogIndex, error)
	GetEntriesAfterIndex(afterLogIndex LogIndex) ([]LogEntry, error)
}

// FatalErrorHandler is called if the Committer's goroutine hits an
// unrecoverable error (e.g. the log and the cached commit index have
// diverged). It is expected to call Committer.StopSync().
type FatalErrorHandler func(err error)

// Committer applies committed log entries to a StateMachine in a
// dedicated goroutine, and lets callers register a one-shot listener for a
// specific index's result.
type Committer struct {
	mutex sync.Mutex

	stopRequest bool
	commitIndex LogIndex

	log          LogReader
	stateMachine StateMachine
	feHandler    FatalErrorHandler

	runner *util.TriggeredRunner

	listeners              map[LogIndex]chan CommandResult
	highestRegisteredIndex LogIndex
}

// NewCommitter creates a Committer and starts its goroutine.
func NewCommitter(log LogReader, stateMachine StateMachine, feHandler FatalErrorHandler) *Committer {
	c := &Committer{
		log:          log,
		stateMachine: stateMachine,
		feHandler:    feHandler,
		listeners:    make(map[LogIndex]chan CommandResult),
	}
	c.runner = util.NewTriggeredRunner(c.applyPendingCommits)
	return c
}

// StopSync stops the Committer's goroutine. Panics if called more than
// once.
func (c *Committer) StopSync() {
	c.mutex.Lock()
	c.stopRequest = true
	c.mutex.Unlock()
	c.runner.StopSync()
}

// RegisterListener registers a one-shot listener for logIndex's eventual
// result. logIndex must be greater than the current commit index and
// greater than any previously registered index, and must not exceed the
// log's current last entry.
func (c *Committer) RegisterListener(logIndex LogIndex) (<-chan CommandResult, error) {
	iole, err := c.log.GetIndexOfLastEntry()
	if err != nil {
		return nil, err
	}
	if logIndex > iole {
		return nil, fmt.Errorf("FATAL: logIndex=%v is > current iole=%v", logIndex, iole)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if logIndex <= c.commitIndex {
		return nil, fmt.Errorf("FATAL: logIndex=%v is <= commitIndex=%v", logIndex, c.commitIndex)
	}
	if logIndex <= c.highestRegisteredIndex {
		return nil, fmt.Errorf(
			"FATAL: logIndex=%v is <= highestRegisteredIndex=%v", logIndex, c.highestRegisteredIndex,
		)
	}

	ch := make(chan CommandResult, 1)
	c.listeners[logIndex] = ch
	c.highestRegisteredIndex = logIndex
	return ch, nil
}

// RemoveListenersAfterIndex removes and closes every listener registered
// for an index greater than afterIndex. Used when a new leader truncates
// log entries this node had speculatively registered listeners for.
func (c *Committer) RemoveListenersAfterIndex(afterIndex LogIndex) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i := afterIndex + 1; i <= c.highestRegisteredIndex; i++ {
		if ch, ok := c.listeners[i]; ok {
			delete(c.listeners, i)
			close(ch)
		}
	}
	if afterIndex < c.highestRegisteredIndex {
		c.highestRegisteredIndex = afterIndex
	}
}

// CommitAsync records that entries up to commitIndex are now committed and
// triggers an asynchronous run of the applier goroutine. Returns an error
// if commitIndex regresses or exceeds the log's last entry.
func (c *Committer) CommitAsync(commitIndex LogIndex) error {
	iole, err := c.log.GetIndexOfLastEntry()
	if err != nil {
		return err
	}
	if commitIndex > iole {
		return fmt.Errorf("FATAL: commitIndex=%v is > current iole=%v", commitIndex, iole)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if commitIndex < c.commitIndex {
		return fmt.Errorf("FATAL: commitIndex=%v is < current commitIndex=%v", commitIndex, c.commitIndex)
	}

	c.commitIndex = commitIndex
	c.runner.TriggerRun()
	return nil
}

func (c *Committer) applyPendingCommits() {
	for {
		c.mutex.Lock()
		stopRequested := c.stopRequest
		commitIndexSnapshot := c.commitIndex
		c.mutex.Unlock()

		if stopRequested {
			return
		}

		lastApplied := c.stateMachine.GetLastApplied()
		if lastApplied >= commitIndexSnapshot {
			return
		}

		entries, err := c.log.GetEntriesAfterIndex(lastApplied)
		if err != nil {
			c.feHandler(err)
			return
		}

		for _, entry := range entries {
			indexToApply := lastApplied + 1
			if indexToApply > commitIndexSnapshot {
				return
			}

			c.mutex.Lock()
			stopRequested = c.stopRequest
			commitIndexSnapshot = c.commitIndex
			ch, hasListener := c.listeners[indexToApply]
			if hasListener {
				delete(c.listeners, indexToApply)
			}
			c.mutex.Unlock()

			if stopRequested {
				return
			}

			result := c.stateMachine.ApplyCommand(indexToApply, entry.Command)
			if hasListener {
				ch <- result
			}

			lastApplied = indexToApply
		}
	}
}
