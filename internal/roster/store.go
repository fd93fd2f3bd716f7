package roster

import (
	"context"

	id "watchpost/pkg/domain"
)

// Store reads guard and post data owned by the HR collaborator.
// Implementations return sentinel.ErrNotFound when the entity is missing.
type Store interface {
	FindGuard(ctx context.Context, guardID id.GuardID) (*Guard, error)
	// FindGuardByUser resolves the authenticated user into the guard the
	// workflow operates on. The access gate is the only caller.
	FindGuardByUser(ctx context.Context, userID id.UserID) (*Guard, error)
	// FindAssignedPost returns the post assigned to the guard, or
	// sentinel.ErrNotFound when the guard has no post.
	FindAssignedPost(ctx context.Context, guardID id.GuardID) (*Post, error)
}
