package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "watchpost/pkg/domain"
	"watchpost/pkg/platform/sentinel"
	txcontext "watchpost/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists weapons and the custody log in PostgreSQL.
//
// The weapon_log table is append-only: no UPDATE or DELETE is ever issued
// against it. The ammo baseline swap is a conditional UPDATE so a stale
// handover loses instead of overwriting a newer one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const weaponColumns = `id, serial_number, model, caliber, ammo_count, assigned_guard_id`

func (s *PostgresStore) FindAssignedWeapon(ctx context.Context, guardID id.GuardID) (*Weapon, error) {
	query := `SELECT ` + weaponColumns + ` FROM weapons WHERE assigned_guard_id = $1`
	return scanWeapon(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(guardID)))
}

func (s *PostgresStore) FindWeapon(ctx context.Context, weaponID id.WeaponID) (*Weapon, error) {
	query := `SELECT ` + weaponColumns + ` FROM weapons WHERE id = $1`
	return scanWeapon(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(weaponID)))
}

func scanWeapon(row *sql.Row) (*Weapon, error) {
	var (
		weapon   Weapon
		weaponID uuid.UUID
		guardID  uuid.NullUUID
	)
	err := row.Scan(&weaponID, &weapon.SerialNumber, &weapon.Model, &weapon.Caliber,
		&weapon.AmmoCount, &guardID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan weapon: %w", err)
	}
	weapon.ID = id.WeaponID(weaponID)
	if guardID.Valid {
		g := id.GuardID(guardID.UUID)
		weapon.AssignedGuardID = &g
	}
	return &weapon, nil
}

func (s *PostgresStore) AppendLogEntry(ctx context.Context, entry LogEntry) error {
	query := `
		INSERT INTO weapon_log (id, weapon_id, guard_id, post_id, action, ammo_observed, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.WeaponID),
		uuid.UUID(entry.GuardID),
		uuid.UUID(entry.PostID),
		string(entry.Action),
		entry.AmmoObserved,
		entry.Notes,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append weapon log entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAmmoCount(ctx context.Context, weaponID id.WeaponID, expected, observed int) error {
	query := `
		UPDATE weapons
		SET ammo_count = $1, version = version + 1
		WHERE id = $2 AND ammo_count = $3
	`
	result, err := s.execer(ctx).ExecContext(ctx, query, observed, uuid.UUID(weaponID), expected)
	if err != nil {
		return fmt.Errorf("update ammo count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ammo count rows affected: %w", err)
	}
	if affected == 0 {
		// Either the weapon vanished or the baseline moved. Distinguish so
		// callers can report the right failure.
		if _, findErr := s.FindWeapon(ctx, weaponID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStale
	}
	return nil
}

func (s *PostgresStore) ListByWeapon(ctx context.Context, weaponID id.WeaponID) ([]LogEntry, error) {
	query := `
		SELECT id, weapon_id, guard_id, post_id, action, ammo_observed, notes, created_at
		FROM weapon_log
		WHERE weapon_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(weaponID))
	if err != nil {
		return nil, fmt.Errorf("list weapon log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		var entryID, wID, guardID, postID uuid.UUID
		var action string
		if err := rows.Scan(&entryID, &wID, &guardID, &postID, &action,
			&entry.AmmoObserved, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan weapon log entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.WeaponID = id.WeaponID(wID)
		entry.GuardID = id.GuardID(guardID)
		entry.PostID = id.PostID(postID)
		entry.Action = Action(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weapon log: %w", err)
	}
	return entries, nil
}

// Atomically wraps fn in a SQL transaction carried through the context, so
// the log append and the baseline swap commit or roll back together.
func (s *PostgresStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Within(ctx, s.db, fn)
}
