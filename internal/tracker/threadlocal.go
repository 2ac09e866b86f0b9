package tracker

import (
	"sync"

	"github.com/covlang/scriptcov/internal/model"
)

// ThreadLocal coordinates one Tracker per host thread against its own
// GlobalState, merging every thread's TrackingState into a shared target at
// Stop — the per-thread variant of spec.md §5's concurrency model ("the
// engine is installed per-thread with thread-local GlobalState and a merge
// step at stop"). Each per-thread Tracker still runs single-threaded
// cooperative scheduling on its own thread; only the merge step touches
// more than one thread's state, and it runs after every thread has stopped.
type ThreadLocal struct {
	mu      sync.Mutex
	shared  *model.GlobalState
	threads map[string]*model.GlobalState
}

// NewThreadLocal creates a ThreadLocal that merges into shared.
func NewThreadLocal(shared *model.GlobalState) *ThreadLocal {
	return &ThreadLocal{shared: shared, threads: make(map[string]*model.GlobalState)}
}

// ForThread returns the GlobalState dedicated to threadID, creating one on
// first use.
func (tl *ThreadLocal) ForThread(threadID string) *model.GlobalState {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	g, ok := tl.threads[threadID]
	if !ok {
		g = model.NewGlobalState()
		tl.threads[threadID] = g
	}

	return g
}

// Merge folds threadID's GlobalState into the shared one: a union over
// every bit per spec.md §3's TrackingState.Merge semantics. Call once per
// thread after that thread's Tracker has stopped.
func (tl *ThreadLocal) Merge(threadID string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	g, ok := tl.threads[threadID]
	if !ok {
		return
	}

	for _, sf := range g.Files() {
		existing := tl.shared.Get(sf.Path)
		if existing == nil {
			tl.shared.Put(sf)
			tl.shared.MarkActive(sf.Path)

			continue
		}

		existing.Tracking.Merge(sf.Tracking)
	}

	delete(tl.threads, threadID)
}
