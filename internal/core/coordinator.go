package core

import (
	"sync"

	"github.com/vampirenirmal/novelist/internal/novel"
)

// Coordinator enforces single-flight execution per resource. Whole-document
// resources (writing, agent run, planning) are plain booleans; per-chapter
// resources are sparse maps keyed by chapter index, where key presence means
// busy. Every TryStart* must be paired with its Finish* regardless of the
// operation's outcome.
type Coordinator struct {
	mu sync.Mutex

	planning       bool
	writingChapter bool
	agentRunning   bool
	checking       map[int]bool
	revising       map[int]bool
	syncing        map[int]bool
}

// NewCoordinator returns an idle coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		checking: make(map[int]bool),
		revising: make(map[int]bool),
		syncing:  make(map[int]bool),
	}
}

// TryStartPlanning reserves the plan-generation resource.
func (c *Coordinator) TryStartPlanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.planning {
		return false
	}
	c.planning = true
	return true
}

// FinishPlanning releases the plan-generation resource.
func (c *Coordinator) FinishPlanning() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planning = false
}

// TryStartWriting reserves the single chapter-writing slot.
func (c *Coordinator) TryStartWriting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writingChapter {
		return false
	}
	c.writingChapter = true
	return true
}

// FinishWriting releases the chapter-writing slot.
func (c *Coordinator) FinishWriting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writingChapter = false
}

// TryStartAgent reserves the free-form agent slot.
func (c *Coordinator) TryStartAgent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agentRunning {
		return false
	}
	c.agentRunning = true
	return true
}

// FinishAgent releases the free-form agent slot.
func (c *Coordinator) FinishAgent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agentRunning = false
}

// TryStartChecking reserves the check slot for one chapter index.
func (c *Coordinator) TryStartChecking(chapter int) bool {
	return c.tryStartKeyed(c.checking, chapter)
}

// FinishChecking releases the check slot for one chapter index.
func (c *Coordinator) FinishChecking(chapter int) {
	c.finishKeyed(c.checking, chapter)
}

// TryStartRevising reserves the revision slot for one chapter index.
func (c *Coordinator) TryStartRevising(chapter int) bool {
	return c.tryStartKeyed(c.revising, chapter)
}

// FinishRevising releases the revision slot for one chapter index.
func (c *Coordinator) FinishRevising(chapter int) {
	c.finishKeyed(c.revising, chapter)
}

// TryStartSyncing reserves the plan-sync slot for one chapter index.
func (c *Coordinator) TryStartSyncing(chapter int) bool {
	return c.tryStartKeyed(c.syncing, chapter)
}

// FinishSyncing releases the plan-sync slot for one chapter index.
func (c *Coordinator) FinishSyncing(chapter int) {
	c.finishKeyed(c.syncing, chapter)
}

func (c *Coordinator) tryStartKeyed(m map[int]bool, chapter int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m[chapter] {
		return false
	}
	m[chapter] = true
	return true
}

func (c *Coordinator) finishKeyed(m map[int]bool, chapter int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(m, chapter)
}

// AnyActive reports whether any resource is busy. Plan editing and other
// cross-cutting controls are disabled while this holds.
func (c *Coordinator) AnyActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planning || c.writingChapter || c.agentRunning ||
		len(c.checking) > 0 || len(c.revising) > 0 || len(c.syncing) > 0
}

// Tasks returns a copied snapshot of the current busy state.
func (c *Coordinator) Tasks() novel.ActiveTasks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return novel.ActiveTasks{
		WritingChapter:  c.writingChapter,
		CheckingChapter: copyKeyed(c.checking),
		RevisingChapter: copyKeyed(c.revising),
		SyncingPlan:     copyKeyed(c.syncing),
		AgentRunning:    c.agentRunning,
	}
}

func copyKeyed(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
