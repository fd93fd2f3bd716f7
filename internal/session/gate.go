package session

import (
	"context"
	"errors"

	"watchpost/internal/roster"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/platform/sentinel"
)

// Gate applies the access policy and maps the session onto a guard.
type Gate struct {
	roster roster.Store
}

func NewGate(store roster.Store) *Gate {
	return &Gate{roster: store}
}

// ResolveGuard returns the guard the session may act for.
//
// Policy: only the GUARD role reaches the attendance workflow, a pending
// password change blocks everything, and the guard must still be employed.
func (g *Gate) ResolveGuard(ctx context.Context, sess Session) (*roster.Guard, error) {
	if sess.Role != RoleGuard {
		return nil, dErrors.New(dErrors.CodeForbidden, "attendance operations require the guard role")
	}
	if sess.RequiresPasswordChange {
		return nil, dErrors.New(dErrors.CodeForbidden, "password change required before operating")
	}
	if sess.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session has no user")
	}

	guard, err := g.roster.FindGuardByUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeForbidden, "user is not registered as a guard", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "resolving guard for user", err)
	}
	if guard.Employment != roster.EmploymentActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "guard is not active")
	}
	return guard, nil
}

// GuardIDOf is a convenience for handlers that only need the identity.
func (g *Gate) GuardIDOf(ctx context.Context, sess Session) (id.GuardID, error) {
	guard, err := g.ResolveGuard(ctx, sess)
	if err != nil {
		return id.GuardID{}, err
	}
	return guard.ID, nil
}
