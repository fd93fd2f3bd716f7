package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchpost/internal/roster"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

func seededGate(t *testing.T, employment roster.EmploymentStatus) (*Gate, Session, id.GuardID) {
	t.Helper()
	store := roster.NewInMemoryStore()
	guardID := id.NewGuardID()
	userID := id.NewUserID()
	store.PutGuard(roster.Guard{ID: guardID, FullName: "M. Giménez", Employment: employment}, userID)
	sess := Session{ID: id.NewSessionID(), UserID: userID, Role: RoleGuard}
	return NewGate(store), sess, guardID
}

func TestGate_ResolvesActiveGuard(t *testing.T) {
	gate, sess, guardID := seededGate(t, roster.EmploymentActive)

	guard, err := gate.ResolveGuard(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, guardID, guard.ID)

	got, err := gate.GuardIDOf(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, guardID, got)
}

func TestGate_Policy(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*Session)
		wantCode dErrors.Code
	}{
		{"non-guard role", func(s *Session) { s.Role = RoleOperations }, dErrors.CodeForbidden},
		{"pending password change", func(s *Session) { s.RequiresPasswordChange = true }, dErrors.CodeForbidden},
		{"no user", func(s *Session) { s.UserID = id.UserID{} }, dErrors.CodeUnauthorized},
		{"unknown user", func(s *Session) { s.UserID = id.NewUserID() }, dErrors.CodeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate, sess, _ := seededGate(t, roster.EmploymentActive)
			tc.mutate(&sess)
			_, err := gate.ResolveGuard(context.Background(), sess)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tc.wantCode))
		})
	}
}

func TestGate_SuspendedGuard(t *testing.T) {
	gate, sess, _ := seededGate(t, roster.EmploymentSuspended)
	_, err := gate.ResolveGuard(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}
