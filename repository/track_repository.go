package repository

import (
	"database/sql"
	"fmt"
	"time"

	"LumiFM/db"
	"LumiFM/model"
)

// TrackRepository defines the interface for track catalog operations.
// The catalog is an ordered, read-mostly list; ordering follows track_order.
type TrackRepository interface {
	CreateTrack(track *model.Track, order int) (int64, error)
	GetTrackByID(id int64) (*model.Track, error)
	GetAllTracks() ([]*model.Track, error)
	UpdateTrackDuration(trackID int64, duration float64) error
	DeleteTrack(trackID int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

// CreateTrack adds a new track to the catalog at the given order position.
func (r *mysqlTrackRepository) CreateTrack(track *model.Track, order int) (int64, error) {
	query := `INSERT INTO tracks (title, artist, album, duration, audio_key, cover_key, track_order, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	res, err := stmt.Exec(track.Title, track.Artist, track.Album, track.Duration,
		track.AudioKey, track.CoverKey, order, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackByID retrieves a track by its ID.
func (r *mysqlTrackRepository) GetTrackByID(id int64) (*model.Track, error) {
	query := `SELECT id, title, artist, album, duration, audio_key, cover_key, created_at, updated_at
	           FROM tracks WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	track := &model.Track{}
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.Duration,
		&track.AudioKey, &track.CoverKey, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track %d: %w", id, err)
	}
	return track, nil
}

// GetAllTracks retrieves the whole catalog in playback order.
func (r *mysqlTrackRepository) GetAllTracks() ([]*model.Track, error) {
	query := `SELECT id, title, artist, album, duration, audio_key, cover_key, created_at, updated_at
	           FROM tracks ORDER BY track_order ASC, id ASC`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		track := &model.Track{}
		err := rows.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.Duration,
			&track.AudioKey, &track.CoverKey, &track.CreatedAt, &track.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track rows: %w", err)
	}
	return tracks, nil
}

// UpdateTrackDuration stores the probed duration for a track.
func (r *mysqlTrackRepository) UpdateTrackDuration(trackID int64, duration float64) error {
	query := `UPDATE tracks SET duration = ?, updated_at = ? WHERE id = ?`
	_, err := r.DB.Exec(query, duration, time.Now(), trackID)
	if err != nil {
		return fmt.Errorf("failed to update duration for track %d: %w", trackID, err)
	}
	return nil
}

// DeleteTrack removes a track from the catalog.
func (r *mysqlTrackRepository) DeleteTrack(trackID int64) error {
	_, err := r.DB.Exec(`DELETE FROM tracks WHERE id = ?`, trackID)
	if err != nil {
		return fmt.Errorf("failed to delete track %d: %w", trackID, err)
	}
	return nil
}
