package attendance

import (
	"context"
	"sync"
	"time"

	id "watchpost/pkg/domain"
	"watchpost/pkg/requestcontext"
)

// Registry hands out the per-guard, per-day workflow instance. A guard's
// working day gets exactly one machine; yesterday's machines are swept on
// the next acquire so the map does not grow without bound.
type Registry struct {
	deps Dependencies

	mu        sync.Mutex
	workflows map[registryKey]*Workflow
}

type registryKey struct {
	guardID id.GuardID
	day     time.Time
}

func NewRegistry(deps Dependencies) *Registry {
	return &Registry{deps: deps, workflows: make(map[registryKey]*Workflow)}
}

// Acquire returns the guard's workflow for the current working day, creating
// and restoring it on first use. The working day comes from the request
// clock, so tests can pin it.
func (r *Registry) Acquire(ctx context.Context, guardID id.GuardID) *Workflow {
	day := requestcontext.Now(ctx).UTC().Truncate(24 * time.Hour)
	key := registryKey{guardID: guardID, day: day}

	r.mu.Lock()
	if w, ok := r.workflows[key]; ok {
		r.mu.Unlock()
		return w
	}
	for k := range r.workflows {
		if k.day.Before(day) {
			delete(r.workflows, k)
		}
	}
	w := NewWorkflow(r.deps, guardID, day)
	r.workflows[key] = w
	r.mu.Unlock()

	// Restore outside the registry lock; it reads the store.
	w.restore(ctx)
	return w
}
