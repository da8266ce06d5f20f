package logindex_test

import (
	"testing"
	"time"

	"github.com/fenwickdb/raft/logindex"
)

func TestCommitCond_AdvanceWakesWaiters(t *testing.T) {
	cc := logindex.NewCommitCond()

	ci, broken, changed := cc.Wait()
	if ci != 0 || broken {
		t.Fatal(ci, broken)
	}

	done := make(chan struct{})
	go func() {
		<-changed
		close(done)
	}()

	cc.Advance(5)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Advance to wake waiter")
	}

	if cc.CommitIndex() != 5 {
		t.Fatal(cc.CommitIndex())
	}
}

func TestCommitCond_AdvanceRejectsRegression(t *testing.T) {
	cc := logindex.NewCommitCond()
	cc.Advance(5)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on commit index regression")
		}
	}()
	cc.Advance(4)
}

func TestCommitCond_BreakIsSticky(t *testing.T) {
	cc := logindex.NewCommitCond()
	cc.Advance(3)
	cc.Break()

	ci, broken, changed := cc.Wait()
	if ci != 3 || !broken {
		t.Fatal(ci, broken)
	}
	select {
	case <-changed:
	default:
		t.Fatal("expected changed channel from a Wait after Break to already be closed")
	}

	// A Wait() issued after Break is also immediately broken.
	_, broken2, changed2 := cc.Wait()
	if !broken2 {
		t.Fatal("expected broken")
	}
	select {
	case <-changed2:
	default:
		t.Fatal("expected post-Break Wait to return an already-closed channel")
	}
}

func TestCommitCond_TouchWakesWithoutAdvancing(t *testing.T) {
	cc := logindex.NewCommitCond()
	_, _, changed := cc.Wait()

	cc.Touch()

	select {
	case <-changed:
	default:
		t.Fatal("expected Touch to close the changed channel")
	}
	if cc.CommitIndex() != 0 {
		t.Fatal("Touch must not change the commit index")
	}
}
