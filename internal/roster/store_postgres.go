package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
	"watchpost/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// PostgresStore reads the guards and posts tables maintained by the HR side
// of the application. Read-only: this package issues no writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const guardColumns = `id, full_name, employment_status, post_id, weapon_id`

func (s *PostgresStore) FindGuard(ctx context.Context, guardID id.GuardID) (*Guard, error) {
	query := `SELECT ` + guardColumns + ` FROM guards WHERE id = $1`
	return s.scanGuard(s.db.QueryRowContext(ctx, query, uuid.UUID(guardID)))
}

func (s *PostgresStore) FindGuardByUser(ctx context.Context, userID id.UserID) (*Guard, error) {
	query := `SELECT ` + guardColumns + ` FROM guards WHERE user_id = $1`
	return s.scanGuard(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) scanGuard(row *sql.Row) (*Guard, error) {
	var (
		guard    Guard
		guardID  uuid.UUID
		postID   uuid.NullUUID
		weaponID uuid.NullUUID
	)
	err := row.Scan(&guardID, &guard.FullName, &guard.Employment, &postID, &weaponID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan guard: %w", err)
	}
	guard.ID = id.GuardID(guardID)
	if postID.Valid {
		p := id.PostID(postID.UUID)
		guard.PostID = &p
	}
	if weaponID.Valid {
		w := id.WeaponID(weaponID.UUID)
		guard.WeaponID = &w
	}
	return &guard, nil
}

func (s *PostgresStore) FindAssignedPost(ctx context.Context, guardID id.GuardID) (*Post, error) {
	query := `
		SELECT p.id, p.name, p.latitude, p.longitude, p.radius_meters
		FROM posts p
		JOIN guards g ON g.post_id = p.id
		WHERE g.id = $1
	`
	var (
		post     Post
		postID   uuid.UUID
		lat, lon sql.NullFloat64
		radius   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(guardID)).
		Scan(&postID, &post.Name, &lat, &lon, &radius)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find assigned post: %w", err)
	}
	post.ID = id.PostID(postID)
	// Both coordinates must be present for the post to count as mapped.
	if lat.Valid && lon.Valid {
		post.Coordinates = &geofence.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if radius.Valid {
		post.RadiusMeters = radius.Float64
	}
	return &post, nil
}
