package core

import (
	"sync"
	"testing"
)

func TestCoordinatorSingleFlight(t *testing.T) {
	c := NewCoordinator()

	if !c.TryStartWriting() {
		t.Fatal("first TryStartWriting should succeed")
	}
	if c.TryStartWriting() {
		t.Error("second TryStartWriting should be refused while busy")
	}
	c.FinishWriting()
	if !c.TryStartWriting() {
		t.Error("TryStartWriting should succeed again after Finish")
	}
	c.FinishWriting()
}

func TestCoordinatorPerChapterIndependence(t *testing.T) {
	c := NewCoordinator()

	if !c.TryStartChecking(2) {
		t.Fatal("checking chapter 2 should start")
	}
	// Same resource, same chapter: refused.
	if c.TryStartChecking(2) {
		t.Error("checking chapter 2 twice should be refused")
	}
	// Same resource, different chapter: allowed.
	if !c.TryStartChecking(5) {
		t.Error("checking chapter 5 should start while chapter 2 is busy")
	}
	// Different resource, same chapter: allowed.
	if !c.TryStartRevising(2) {
		t.Error("revising chapter 2 should start while it is being checked")
	}

	c.FinishChecking(2)
	if !c.TryStartChecking(2) {
		t.Error("checking chapter 2 should start again after Finish")
	}
}

func TestCoordinatorAnyActive(t *testing.T) {
	c := NewCoordinator()

	if c.AnyActive() {
		t.Error("fresh coordinator should be idle")
	}

	c.TryStartSyncing(0)
	if !c.AnyActive() {
		t.Error("AnyActive should see a per-chapter sync")
	}
	c.FinishSyncing(0)

	c.TryStartAgent()
	if !c.AnyActive() {
		t.Error("AnyActive should see the agent run")
	}
	c.FinishAgent()

	if c.AnyActive() {
		t.Error("coordinator should be idle after all finishes")
	}
}

func TestCoordinatorTasksSnapshot(t *testing.T) {
	c := NewCoordinator()
	c.TryStartWriting()
	c.TryStartChecking(1)
	c.TryStartRevising(3)

	tasks := c.Tasks()
	if !tasks.WritingChapter {
		t.Error("snapshot should show writing busy")
	}
	if !tasks.CheckingChapter[1] || len(tasks.CheckingChapter) != 1 {
		t.Errorf("CheckingChapter = %v", tasks.CheckingChapter)
	}
	if !tasks.RevisingChapter[3] {
		t.Errorf("RevisingChapter = %v", tasks.RevisingChapter)
	}

	// The snapshot is a copy; mutating it does not leak back.
	tasks.CheckingChapter[7] = true
	if c.Tasks().CheckingChapter[7] {
		t.Error("mutating the snapshot changed coordinator state")
	}
}

func TestCoordinatorConcurrentStarts(t *testing.T) {
	c := NewCoordinator()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryStartAgent() {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("%d goroutines acquired the agent slot, want exactly 1", won)
	}
}
