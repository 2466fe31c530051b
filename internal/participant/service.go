package participant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/db"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db        db.Pool
	staleness time.Duration
}

// NewService builds the participant registry. stalenessSec bounds how old a
// fix may be before an online participant is reported offline.
func NewService(pool db.Pool, stalenessSec int) *Service {
	return &Service{
		db:        pool,
		staleness: time.Duration(stalenessSec) * time.Second,
	}
}

// Join adds the caller to a session, or reactivates a prior membership.
// Registered users rejoin by user id, guests by display name; either way the
// upsert hits a partial unique index so two racing joins converge on one row.
func (s *Service) Join(ctx context.Context, code, userID, guestName string) (Participant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Participant{}, apperr.NewValidation("session_code", "session code required")
	}

	var sessionID string
	var endedAt *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT id, ended_at FROM sessions WHERE session_code = $1
	`, code).Scan(&sessionID, &endedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Participant{}, fmt.Errorf("session %s: %w", code, apperr.ErrNotFound)
		}
		return Participant{}, err
	}
	if endedAt != nil {
		return Participant{}, apperr.ErrSessionEnded
	}

	p := Participant{
		SessionID:   sessionID,
		SessionCode: code,
		UserID:      userID,
		IsActive:    true,
	}

	if userID != "" {
		if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&p.DisplayName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Participant{}, fmt.Errorf("user: %w", apperr.ErrNotFound)
			}
			return Participant{}, err
		}

		err = s.db.QueryRow(ctx, `
			INSERT INTO session_participants (id, session_id, user_id, display_name)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (session_id, user_id) WHERE user_id IS NOT NULL
			DO UPDATE SET is_active = TRUE
			RETURNING id, display_name, role, joined_at
		`, uuid.NewString(), sessionID, userID, p.DisplayName).
			Scan(&p.ID, &p.DisplayName, &p.Role, &p.JoinedAt)
		return p, err
	}

	guestName = strings.TrimSpace(guestName)
	if guestName == "" {
		return Participant{}, apperr.NewValidation("guest_name", "guest name required")
	}
	p.DisplayName = guestName

	err = s.db.QueryRow(ctx, `
		INSERT INTO session_participants (id, session_id, display_name)
		VALUES ($1,$2,$3)
		ON CONFLICT (session_id, display_name) WHERE user_id IS NULL
		DO UPDATE SET is_active = TRUE
		RETURNING id, display_name, role, joined_at
	`, uuid.NewString(), sessionID, guestName).
		Scan(&p.ID, &p.DisplayName, &p.Role, &p.JoinedAt)
	return p, err
}

// Leave deactivates the membership. The row stays so history and a later
// rejoin keep working.
func (s *Service) Leave(ctx context.Context, participantID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE session_participants SET is_active = FALSE, is_online = FALSE WHERE id = $1
	`, participantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("participant %s: %w", participantID, apperr.ErrNotFound)
	}
	return nil
}

// Remove kicks a participant out of a session. Creator only, and the creator
// row itself cannot be removed.
func (s *Service) Remove(ctx context.Context, code, targetID, callerID string) error {
	code = strings.ToUpper(code)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var sessionID, creatorID string
	row := tx.QueryRow(ctx, `
		SELECT id, creator_id FROM sessions WHERE session_code = $1
		FOR UPDATE
	`, code)
	if err := row.Scan(&sessionID, &creatorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", code, apperr.ErrNotFound)
		}
		return err
	}
	if creatorID != callerID {
		return fmt.Errorf("remove participant: %w", apperr.ErrForbidden)
	}

	var role string
	row = tx.QueryRow(ctx, `
		SELECT role FROM session_participants WHERE id = $1 AND session_id = $2
		FOR UPDATE
	`, targetID, sessionID)
	if err := row.Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("participant %s: %w", targetID, apperr.ErrNotFound)
		}
		return err
	}
	if role == "creator" {
		return apperr.ErrCannotRemoveCreator
	}

	if _, err := tx.Exec(ctx, `
		UPDATE session_participants SET is_active = FALSE, is_online = FALSE WHERE id = $1
	`, targetID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// List returns the session's active participants in join order, each with
// their latest fix. A participant counts as online only while fixes keep
// arriving within the staleness window.
func (s *Service) List(ctx context.Context, code string) ([]Member, error) {
	code = strings.ToUpper(code)

	var sessionID string
	err := s.db.QueryRow(ctx, `SELECT id FROM sessions WHERE session_code = $1`, code).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", code, apperr.ErrNotFound)
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.display_name, p.role, p.joined_at,
		       p.is_online AND l.recorded_at > now() - make_interval(secs => $2) AS is_online,
		       l.latitude, l.longitude, l.accuracy, l.recorded_at
		FROM session_participants p
		LEFT JOIN LATERAL (
			SELECT latitude, longitude, accuracy, recorded_at
			FROM locations
			WHERE participant_id = p.id
			ORDER BY recorded_at DESC
			LIMIT 1
		) l ON TRUE
		WHERE p.session_id = $1 AND p.is_active
		ORDER BY p.joined_at
	`, sessionID, s.staleness.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		var online *bool
		var lat, lng, accuracy *float64
		var recordedAt *time.Time
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Role, &m.JoinedAt,
			&online, &lat, &lng, &accuracy, &recordedAt); err != nil {
			return nil, err
		}
		m.IsOnline = online != nil && *online
		if lat != nil && lng != nil && recordedAt != nil {
			m.LastPosition = &Position{
				Latitude:   *lat,
				Longitude:  *lng,
				Accuracy:   accuracy,
				RecordedAt: *recordedAt,
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Info resolves one membership by id.
func (s *Service) Info(ctx context.Context, participantID string) (Participant, error) {
	row := s.db.QueryRow(ctx, `
		SELECT p.id, p.session_id, s.session_code, p.user_id, p.display_name,
		       p.role, p.joined_at, p.is_active
		FROM session_participants p
		JOIN sessions s ON s.id = p.session_id
		WHERE p.id = $1
	`, participantID)

	var p Participant
	var userID *string
	if err := row.Scan(&p.ID, &p.SessionID, &p.SessionCode, &userID, &p.DisplayName,
		&p.Role, &p.JoinedAt, &p.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Participant{}, fmt.Errorf("participant %s: %w", participantID, apperr.ErrNotFound)
		}
		return Participant{}, err
	}
	if userID != nil {
		p.UserID = *userID
	}
	return p, nil
}
