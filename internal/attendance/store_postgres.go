package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
	"watchpost/pkg/platform/sentinel"
)

// PostgresStore persists attendance records.
//
// The one-open-record-per-guard invariant is enforced by a partial unique
// index on (guard_id) WHERE check_out_at IS NULL. Unique violations surface
// as sentinel.ErrConflict; the workflow's own open-record query is only a
// fast path, the index is the authority under concurrent check-ins.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, guard_id, post_id, check_in_at, check_in_latitude, check_in_longitude,
	inside_geofence, distance_meters, status, check_out_at,
	check_out_latitude, check_out_longitude
`

func (s *PostgresStore) FindOpen(ctx context.Context, guardID id.GuardID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE guard_id = $1 AND check_out_at IS NULL`
	return scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(guardID)).Scan)
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RecordID) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE id = $1`
	return scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(recordID)).Scan)
}

func scanRecord(scan func(dest ...any) error) (*Record, error) {
	var record Record
	var recordID, guardID, postID uuid.UUID
	var distance sql.NullFloat64
	var status string
	var checkOutAt sql.NullTime
	var checkOutLat, checkOutLon sql.NullFloat64
	err := scan(&recordID, &guardID, &postID, &record.CheckInAt,
		&record.CheckInCoordinates.Latitude, &record.CheckInCoordinates.Longitude,
		&record.InsideGeofence, &distance, &status,
		&checkOutAt, &checkOutLat, &checkOutLon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan attendance record: %w", err)
	}
	record.ID = id.RecordID(recordID)
	record.GuardID = id.GuardID(guardID)
	record.PostID = id.PostID(postID)
	record.Status = Status(status)
	if distance.Valid {
		record.DistanceMeters = &distance.Float64
	}
	if checkOutAt.Valid {
		record.CheckOutAt = &checkOutAt.Time
	}
	if checkOutLat.Valid && checkOutLon.Valid {
		record.CheckOutCoordinates = &geofence.Coordinates{
			Latitude:  checkOutLat.Float64,
			Longitude: checkOutLon.Float64,
		}
	}
	return &record, nil
}

func (s *PostgresStore) Create(ctx context.Context, record Record) error {
	query := `
		INSERT INTO attendance_records
			(id, guard_id, post_id, check_in_at, check_in_latitude, check_in_longitude,
			 inside_geofence, distance_meters, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var distance any
	if record.DistanceMeters != nil {
		distance = *record.DistanceMeters
	}
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		uuid.UUID(record.GuardID),
		uuid.UUID(record.PostID),
		record.CheckInAt,
		record.CheckInCoordinates.Latitude,
		record.CheckInCoordinates.Longitude,
		record.InsideGeofence,
		distance,
		string(record.Status),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close(ctx context.Context, recordID id.RecordID, at time.Time, coords geofence.Coordinates) error {
	// The check_out_at IS NULL predicate makes the single mutation explicit:
	// a second close finds zero rows instead of overwriting the audit trail.
	query := `
		UPDATE attendance_records
		SET check_out_at = $1, check_out_latitude = $2, check_out_longitude = $3
		WHERE id = $4 AND check_out_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, at, coords.Latitude, coords.Longitude, uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("close attendance record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close attendance record rows affected: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, recordID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) ListFlagged(ctx context.Context, day time.Time) ([]Record, error) {
	day = day.UTC().Truncate(24 * time.Hour)
	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE status = $1 AND check_in_at >= $2 AND check_in_at < $3
		ORDER BY check_in_at
	`
	rows, err := s.db.QueryContext(ctx, query, string(StatusFlagged), day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list flagged records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flagged records: %w", err)
	}
	return records, nil
}
