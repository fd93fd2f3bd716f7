package roster

import (
	"context"
	"sync"

	id "watchpost/pkg/domain"
	"watchpost/pkg/platform/sentinel"
)

// InMemoryStore holds guards and posts for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	guards map[id.GuardID]Guard
	users  map[id.UserID]id.GuardID
	posts  map[id.PostID]Post
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		guards: make(map[id.GuardID]Guard),
		users:  make(map[id.UserID]id.GuardID),
		posts:  make(map[id.PostID]Post),
	}
}

// PutGuard seeds a guard and, optionally, the user it belongs to.
func (s *InMemoryStore) PutGuard(guard Guard, userID id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guards[guard.ID] = guard
	if !userID.IsNil() {
		s.users[userID] = guard.ID
	}
}

// PutPost seeds a post.
func (s *InMemoryStore) PutPost(post Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post
}

func (s *InMemoryStore) FindGuard(_ context.Context, guardID id.GuardID) (*Guard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guard, ok := s.guards[guardID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &guard, nil
}

func (s *InMemoryStore) FindGuardByUser(ctx context.Context, userID id.UserID) (*Guard, error) {
	s.mu.RLock()
	guardID, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindGuard(ctx, guardID)
}

func (s *InMemoryStore) FindAssignedPost(ctx context.Context, guardID id.GuardID) (*Post, error) {
	guard, err := s.FindGuard(ctx, guardID)
	if err != nil {
		return nil, err
	}
	if guard.PostID == nil {
		return nil, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[*guard.PostID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &post, nil
}
