// Package session resolves the authenticated user into the guard the
// attendance workflow acts for, and enforces the access policy that gates
// the workflow endpoints.
package session

import (
	id "watchpost/pkg/domain"
)

// Role mirrors the account roles of the surrounding back office. Attendance
// operations are guard-facing; the other roles exist so the policy can name
// what it rejects.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleFinance    Role = "FINANCE"
	RoleOperations Role = "OPERATIONS"
	RoleClient     Role = "CLIENT"
	RoleGuard      Role = "GUARD"
)

// Valid reports whether the role is one the back office issues.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinance, RoleOperations, RoleClient, RoleGuard:
		return true
	}
	return false
}

// Session is the authenticated caller as the token describes it.
type Session struct {
	ID     id.SessionID
	UserID id.UserID
	Role   Role
	// RequiresPasswordChange blocks all workflow operations until the user
	// rotates the initial password.
	RequiresPasswordChange bool
}
