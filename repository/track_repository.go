package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"soundwave/db"
	"soundwave/logger"
	"soundwave/model"
)

// TrackRepository defines the interface for song catalog operations.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (*model.Track, error)
	GetAllTracks(ctx context.Context) ([]*model.Track, error)
	GetTrackByID(ctx context.Context, id string) (*model.Track, error)
	DeleteTrack(ctx context.Context, id string) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

func generateUniqueSuffix() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// NewTrackID generates an opaque song identifier. Millisecond timestamp plus
// a random suffix keeps IDs unique without coordination.
func NewTrackID() string {
	return fmt.Sprintf("song_%d_%s", time.Now().UnixMilli(), generateUniqueSuffix())
}

// CreateTrack inserts a new song record. The ID and creation timestamp are
// assigned here, never taken from the caller.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (*model.Track, error) {
	created := &model.Track{
		ID:        NewTrackID(),
		Title:     track.Title,
		Artist:    track.Artist,
		FileKey:   track.FileKey,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	query := `INSERT INTO songs (id, title, artist, file_key, created_at) VALUES (?, ?, ?, ?, ?)`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, created.ID, created.Title, created.Artist, created.FileKey, created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	logger.Info("Track created",
		logger.String("id", created.ID),
		logger.String("title", created.Title))
	return created, nil
}

// GetAllTracks retrieves all songs in store order. No pagination: the whole
// table is fetched in one query.
func (r *mysqlTrackRepository) GetAllTracks(ctx context.Context) ([]*model.Track, error) {
	query := `SELECT id, title, artist, file_key, created_at FROM songs`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track := &model.Track{}
		err := rows.Scan(&track.ID, &track.Title, &track.Artist, &track.FileKey, &track.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in GetAllTracks: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetAllTracks: %w", err)
	}

	return tracks, nil
}

// GetTrackByID retrieves a song by its ID, or nil if not found.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id string) (*model.Track, error) {
	query := `SELECT id, title, artist, file_key, created_at FROM songs WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, id)

	track := &model.Track{}
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.FileKey, &track.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// DeleteTrack removes a song record. Deleting an unknown ID affects zero rows
// and succeeds; callers rely on idempotent delete.
func (r *mysqlTrackRepository) DeleteTrack(ctx context.Context, id string) error {
	query := `DELETE FROM songs WHERE id = ?`
	stmt, err := r.DB.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for DeleteTrack: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteTrack for ID %s: %w", id, err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		logger.Debug("DeleteTrack matched no rows", logger.String("id", id))
	}
	return nil
}
