package custody

import (
	"context"
	"sort"
	"sync"

	id "watchpost/pkg/domain"
	"watchpost/pkg/platform/sentinel"
)

// InMemoryStore keeps weapons and the custody log in process memory.
// Used by unit tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	weapons map[id.WeaponID]Weapon
	entries map[id.WeaponID][]LogEntry

	// txMu serializes Atomically blocks so a rollback restores exactly the
	// state the failed block started from.
	txMu sync.Mutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		weapons: make(map[id.WeaponID]Weapon),
		entries: make(map[id.WeaponID][]LogEntry),
	}
}

// PutWeapon seeds a weapon.
func (s *InMemoryStore) PutWeapon(weapon Weapon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weapons[weapon.ID] = weapon
}

func (s *InMemoryStore) FindAssignedWeapon(_ context.Context, guardID id.GuardID) (*Weapon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, weapon := range s.weapons {
		if weapon.AssignedGuardID != nil && *weapon.AssignedGuardID == guardID {
			w := weapon
			return &w, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindWeapon(_ context.Context, weaponID id.WeaponID) (*Weapon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	weapon, ok := s.weapons[weaponID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &weapon, nil
}

func (s *InMemoryStore) AppendLogEntry(_ context.Context, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.WeaponID] = append(s.entries[entry.WeaponID], entry)
	return nil
}

func (s *InMemoryStore) UpdateAmmoCount(_ context.Context, weaponID id.WeaponID, expected, observed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	weapon, ok := s.weapons[weaponID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if weapon.AmmoCount != expected {
		return sentinel.ErrStale
	}
	weapon.AmmoCount = observed
	s.weapons[weaponID] = weapon
	return nil
}

func (s *InMemoryStore) ListByWeapon(_ context.Context, weaponID id.WeaponID) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := append([]LogEntry{}, s.entries[weaponID]...)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Atomically snapshots the store, runs fn and restores the snapshot when fn
// fails, matching the postgres store's transaction semantics: a handover whose
// compare-and-swap loses the race must not leave its already-appended log
// entry behind.
func (s *InMemoryStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	weapons := make(map[id.WeaponID]Weapon, len(s.weapons))
	for weaponID, weapon := range s.weapons {
		weapons[weaponID] = weapon
	}
	entries := make(map[id.WeaponID][]LogEntry, len(s.entries))
	for weaponID, log := range s.entries {
		entries[weaponID] = append([]LogEntry{}, log...)
	}
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.weapons = weapons
		s.entries = entries
		s.mu.Unlock()
		return err
	}
	return nil
}
