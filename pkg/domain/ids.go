package domain

import (
	"github.com/google/uuid"

	dErrors "watchpost/pkg/domain-errors"
)

// Typed identifiers for the entities the attendance core operates on.
// Invariant: IDs must be valid, non-nil UUIDs.
//
// Usage: construct via the Parse* functions at trust boundaries (HTTP
// handlers, store scans); direct casting bypasses validation and is reserved
// for code paths that already hold a trusted uuid.UUID.
type (
	// GuardID identifies a guard. The guard record itself is owned by the HR
	// collaborator; the core only references it.
	GuardID uuid.UUID

	// PostID identifies a guarded post.
	PostID uuid.UUID

	// WeaponID identifies a firearm tracked by the custody ledger.
	WeaponID uuid.UUID

	// RecordID identifies an attendance record.
	RecordID uuid.UUID

	// EntryID identifies an immutable weapon log entry.
	EntryID uuid.UUID

	// SessionID identifies an authenticated session.
	SessionID uuid.UUID

	// UserID identifies the authenticated user behind a session. Distinct
	// from GuardID: the access gate resolves one into the other.
	UserID uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// ParseGuardID constructs a GuardID from external input.
func ParseGuardID(s string) (GuardID, error) {
	u, err := parseUUID(s, "guard id")
	return GuardID(u), err
}

// ParsePostID constructs a PostID from external input.
func ParsePostID(s string) (PostID, error) {
	u, err := parseUUID(s, "post id")
	return PostID(u), err
}

// ParseWeaponID constructs a WeaponID from external input.
func ParseWeaponID(s string) (WeaponID, error) {
	u, err := parseUUID(s, "weapon id")
	return WeaponID(u), err
}

// ParseRecordID constructs a RecordID from external input.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record id")
	return RecordID(u), err
}

// ParseSessionID constructs a SessionID from external input.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session id")
	return SessionID(u), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func (id GuardID) String() string   { return uuid.UUID(id).String() }
func (id PostID) String() string    { return uuid.UUID(id).String() }
func (id WeaponID) String() string  { return uuid.UUID(id).String() }
func (id RecordID) String() string  { return uuid.UUID(id).String() }
func (id EntryID) String() string   { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }

func (id GuardID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PostID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id WeaponID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewGuardID returns a fresh random GuardID. Intended for tests and fixtures;
// production guard IDs originate in the HR system.
func NewGuardID() GuardID { return GuardID(uuid.New()) }

// NewPostID returns a fresh random PostID.
func NewPostID() PostID { return PostID(uuid.New()) }

// NewWeaponID returns a fresh random WeaponID.
func NewWeaponID() WeaponID { return WeaponID(uuid.New()) }

// NewRecordID returns a fresh random RecordID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

// NewEntryID returns a fresh random EntryID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// NewSessionID returns a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }
