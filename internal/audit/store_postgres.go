package audit

import (
	"context"
	"database/sql"
	"fmt"

	id "watchpost/pkg/domain"
	txcontext "watchpost/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists audit events in the audit_log table. Append-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_log (id, category, created_at, guard_id, action, outcome, reason, weapon_id, request_id, device, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var exec interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if tx, ok := txcontext.From(ctx); ok {
		exec = tx
	}
	var guardID any
	if !event.GuardID.IsNil() {
		guardID = uuid.UUID(event.GuardID)
	}
	_, err := exec.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		guardID,
		event.Action,
		event.Outcome,
		event.Reason,
		nullIfEmpty(event.WeaponID),
		nullIfEmpty(event.RequestID),
		nullIfEmpty(event.Device),
		nullIfEmpty(event.ClientIP),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *PostgresStore) ListByGuard(ctx context.Context, guardID id.GuardID) ([]Event, error) {
	query := `
		SELECT category, created_at, guard_id, action, outcome, reason,
		       COALESCE(weapon_id, ''), COALESCE(request_id, ''),
		       COALESCE(device, ''), COALESCE(client_ip, '')
		FROM audit_log
		WHERE guard_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(guardID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var category string
		var gID uuid.UUID
		if err := rows.Scan(&category, &event.Timestamp, &gID, &event.Action,
			&event.Outcome, &event.Reason, &event.WeaponID, &event.RequestID,
			&event.Device, &event.ClientIP); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = EventCategory(category)
		event.GuardID = id.GuardID(gID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
