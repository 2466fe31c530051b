package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/db"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/geo"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/stream"

	"github.com/jackc/pgx/v5"
)

// Each participant keeps this many most recent fixes; older ones are pruned
// on every accepted update.
const historyLimit = 100

type Service struct {
	db  db.Pool
	hub *stream.Hub
}

func NewService(pool db.Pool, hub *stream.Hub) *Service {
	return &Service{db: pool, hub: hub}
}

// Update accepts a new fix for an active membership. The insert, online
// flag and history prune commit together; the stream event goes out after.
func (s *Service) Update(ctx context.Context, participantID, name string, lat, lng float64, accuracy *float64) (Fix, error) {
	if lat < -90 || lat > 90 {
		return Fix{}, apperr.NewValidation("latitude", "must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return Fix{}, apperr.NewValidation("longitude", "must be between -180 and 180")
	}

	var isActive bool
	var sessionCode string
	var endedAt *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT p.is_active, s.session_code, s.ended_at
		FROM session_participants p
		JOIN sessions s ON s.id = p.session_id
		WHERE p.id = $1
	`, participantID).Scan(&isActive, &sessionCode, &endedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Fix{}, fmt.Errorf("participant %s: %w", participantID, apperr.ErrNotFound)
		}
		return Fix{}, err
	}
	if !isActive || endedAt != nil {
		return Fix{}, apperr.ErrNotActiveMember
	}

	fix := Fix{
		ParticipantID: participantID,
		Name:          name,
		Latitude:      lat,
		Longitude:     lng,
		Accuracy:      accuracy,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Fix{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO locations (participant_id, latitude, longitude, accuracy)
		VALUES ($1,$2,$3,$4)
		RETURNING recorded_at
	`, participantID, lat, lng, accuracy)
	if err := row.Scan(&fix.RecordedAt); err != nil {
		return Fix{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE session_participants SET is_online = TRUE WHERE id = $1
	`, participantID); err != nil {
		return Fix{}, err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM locations
		WHERE participant_id = $1 AND id NOT IN (
			SELECT id FROM locations
			WHERE participant_id = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		)
	`, participantID, historyLimit); err != nil {
		return Fix{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Fix{}, err
	}

	if s.hub != nil {
		s.hub.Publish(sessionCode, "location", fix)
	}
	return fix, nil
}

// StopSharing flips the online flag off. The last known coordinates stay in
// the history so the list still shows where the participant was.
func (s *Service) StopSharing(ctx context.Context, participantID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE session_participants SET is_online = FALSE WHERE id = $1
	`, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s: %w", participantID, apperr.ErrNotFound)
	}
	return nil
}

// Positions returns a participant's fix history, oldest first, plus the
// distance along the track. Callers may only read tracks within their own
// session.
func (s *Service) Positions(ctx context.Context, callerSessionCode, targetID string) (Track, error) {
	var targetCode string
	err := s.db.QueryRow(ctx, `
		SELECT s.session_code
		FROM session_participants p
		JOIN sessions s ON s.id = p.session_id
		WHERE p.id = $1
	`, targetID).Scan(&targetCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Track{}, fmt.Errorf("participant %s: %w", targetID, apperr.ErrNotFound)
		}
		return Track{}, err
	}
	if !strings.EqualFold(targetCode, callerSessionCode) {
		return Track{}, fmt.Errorf("positions: %w", apperr.ErrForbidden)
	}

	rows, err := s.db.Query(ctx, `
		SELECT latitude, longitude, accuracy, recorded_at
		FROM locations
		WHERE participant_id = $1
		ORDER BY recorded_at
	`, targetID)
	if err != nil {
		return Track{}, err
	}
	defer rows.Close()

	track := Track{ParticipantID: targetID}
	var points [][2]float64
	for rows.Next() {
		fix := Fix{ParticipantID: targetID}
		if err := rows.Scan(&fix.Latitude, &fix.Longitude, &fix.Accuracy, &fix.RecordedAt); err != nil {
			return Track{}, err
		}
		track.Positions = append(track.Positions, fix)
		points = append(points, [2]float64{fix.Latitude, fix.Longitude})
	}
	if err := rows.Err(); err != nil {
		return Track{}, err
	}

	track.DistanceM = geo.TrackDistanceM(points)
	return track, nil
}
