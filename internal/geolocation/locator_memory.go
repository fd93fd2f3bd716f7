package geolocation

import (
	"context"
	"sync"
	"time"

	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// MemoryLocator serves fixes from process memory. Used by tests and local
// development where no device reports positions.
type MemoryLocator struct {
	mu    sync.RWMutex
	fixes map[id.GuardID]Fix
	errs  map[id.GuardID]error
}

func NewMemoryLocator() *MemoryLocator {
	return &MemoryLocator{
		fixes: make(map[id.GuardID]Fix),
		errs:  make(map[id.GuardID]error),
	}
}

// SetFix makes the guard's next CurrentPosition return fix.
func (l *MemoryLocator) SetFix(guardID id.GuardID, fix Fix) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fixes[guardID] = fix
	delete(l.errs, guardID)
}

// SetError makes the guard's next CurrentPosition fail with err.
func (l *MemoryLocator) SetError(guardID id.GuardID, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[guardID] = err
	delete(l.fixes, guardID)
}

func (l *MemoryLocator) CurrentPosition(_ context.Context, guardID id.GuardID, _ time.Duration) (*Fix, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err, ok := l.errs[guardID]; ok {
		return nil, err
	}
	fix, ok := l.fixes[guardID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeGeolocationTimeout, "no fix configured for guard")
	}
	return &fix, nil
}

// SubmitFix matches the RedisLocator's device-report surface.
func (l *MemoryLocator) SubmitFix(_ context.Context, guardID id.GuardID, fix Fix) error {
	l.SetFix(guardID, fix)
	return nil
}

// SubmitDenial records a permission denial for the guard's next request.
func (l *MemoryLocator) SubmitDenial(_ context.Context, guardID id.GuardID) error {
	l.SetError(guardID, dErrors.New(dErrors.CodeGeolocationDenied, "device denied location permission"))
	return nil
}
