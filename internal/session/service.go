package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/db"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	codeAttempts = 10
)

type Service struct {
	db       db.Pool
	geocoder geo.Geocoder
}

func NewService(pool db.Pool, geocoder geo.Geocoder) *Service {
	return &Service{db: pool, geocoder: geocoder}
}

// Create persists a new session and its creator membership in one
// transaction; either both rows exist afterwards or neither does. The
// reverse-geocode lookup is best effort and never blocks creation.
func (s *Service) Create(ctx context.Context, creatorID, name string, lat, lng *float64) (Session, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Session{}, "", apperr.NewValidation("session_name", "session name required")
	}

	var creatorName string
	if err := s.db.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, creatorID).Scan(&creatorName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, "", fmt.Errorf("creator: %w", apperr.ErrNotFound)
		}
		return Session{}, "", err
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return Session{}, "", err
	}

	locationName := ""
	if lat != nil && lng != nil && s.geocoder != nil {
		locationName, err = s.geocoder.ReverseName(ctx, *lat, *lng)
		if err != nil {
			log.Printf("geocode lookup failed: %v", err)
			locationName = ""
		}
	}

	sess := Session{
		ID:           uuid.NewString(),
		Code:         code,
		Name:         name,
		CreatorID:    creatorID,
		CreatorName:  creatorName,
		LocationName: locationName,
		IsActive:     true,
	}
	participantID := uuid.NewString()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Session{}, "", err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO sessions (id, session_code, creator_id, session_name, location_name)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, sess.ID, sess.Code, sess.CreatorID, sess.Name, sess.LocationName)
	if err := row.Scan(&sess.CreatedAt); err != nil {
		return Session{}, "", err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO session_participants (id, session_id, user_id, display_name, role)
		VALUES ($1,$2,$3,$4,'creator')
	`, participantID, sess.ID, creatorID, creatorName); err != nil {
		return Session{}, "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return Session{}, "", err
	}
	return sess, participantID, nil
}

func (s *Service) Get(ctx context.Context, code string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT s.id, s.session_code, s.session_name, s.creator_id, u.username,
		       s.location_name, s.created_at, s.ended_at
		FROM sessions s
		JOIN users u ON u.id = s.creator_id
		WHERE s.session_code = $1
	`, strings.ToUpper(code))

	var sess Session
	var endedAt *time.Time
	if err := row.Scan(&sess.ID, &sess.Code, &sess.Name, &sess.CreatorID, &sess.CreatorName,
		&sess.LocationName, &sess.CreatedAt, &endedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, fmt.Errorf("session %s: %w", code, apperr.ErrNotFound)
		}
		return Session{}, err
	}
	if endedAt != nil {
		sess.EndedAt = *endedAt
	}
	sess.IsActive = endedAt == nil
	return sess, nil
}

// Rename updates the session name. The creator check runs inside the same
// transaction as the update so a concurrent end/role change cannot slip in
// between authorization and mutation.
func (s *Service) Rename(ctx context.Context, code, newName, callerID string) (Session, error) {
	newName = strings.TrimSpace(newName)
	if utf8.RuneCountInString(newName) < 3 {
		return Session{}, apperr.NewValidation("session_name", "must be at least 3 characters")
	}
	code = strings.ToUpper(code)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback(ctx)

	var sess Session
	var endedAt *time.Time
	row := tx.QueryRow(ctx, `
		SELECT id, session_code, session_name, creator_id, location_name, created_at, ended_at
		FROM sessions WHERE session_code = $1
		FOR UPDATE
	`, code)
	if err := row.Scan(&sess.ID, &sess.Code, &sess.Name, &sess.CreatorID, &sess.LocationName,
		&sess.CreatedAt, &endedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, fmt.Errorf("session %s: %w", code, apperr.ErrNotFound)
		}
		return Session{}, err
	}
	if sess.CreatorID != callerID {
		return Session{}, fmt.Errorf("rename session: %w", apperr.ErrForbidden)
	}
	if endedAt != nil {
		return Session{}, apperr.ErrSessionEnded
	}

	if _, err := tx.Exec(ctx, `UPDATE sessions SET session_name = $2 WHERE id = $1`, sess.ID, newName); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Session{}, err
	}

	sess.Name = newName
	sess.IsActive = true
	return sess, nil
}

// End marks the session terminal and deactivates every membership, all in
// one transaction.
func (s *Service) End(ctx context.Context, code, callerID string) error {
	code = strings.ToUpper(code)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var id, creatorID string
	var endedAt *time.Time
	row := tx.QueryRow(ctx, `
		SELECT id, creator_id, ended_at FROM sessions WHERE session_code = $1
		FOR UPDATE
	`, code)
	if err := row.Scan(&id, &creatorID, &endedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", code, apperr.ErrNotFound)
		}
		return err
	}
	if creatorID != callerID {
		return fmt.Errorf("end session: %w", apperr.ErrForbidden)
	}
	if endedAt != nil {
		return apperr.ErrAlreadyEnded
	}

	if _, err := tx.Exec(ctx, `UPDATE sessions SET ended_at = now() WHERE id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE session_participants SET is_active = FALSE, is_online = FALSE WHERE session_id = $1
	`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreatedSessions lists the caller's active sessions, newest first.
func (s *Service) CreatedSessions(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.session_code, s.session_name, s.location_name, s.created_at,
		       (SELECT COUNT(*) FROM session_participants p WHERE p.session_id = s.id) AS total,
		       (SELECT COUNT(*) FROM session_participants p WHERE p.session_id = s.id AND p.is_active) AS active
		FROM sessions s
		WHERE s.creator_id = $1 AND s.ended_at IS NULL
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum := Summary{IsActive: true, IsCreator: true, UserIsActive: true}
		if err := rows.Scan(&sum.Code, &sum.Name, &sum.LocationName, &sum.CreatedAt,
			&sum.ParticipantCount, &sum.ActiveParticipantCount); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// JoinedSessions lists active sessions the caller joined as a participant,
// including ones they have since left so the dashboard can offer a rejoin.
func (s *Service) JoinedSessions(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.session_code, s.session_name, s.location_name, u.username, s.created_at,
		       p.is_active, p.joined_at,
		       (SELECT COUNT(*) FROM session_participants sp WHERE sp.session_id = s.id) AS total,
		       (SELECT COUNT(*) FROM session_participants sp WHERE sp.session_id = s.id AND sp.is_active) AS active
		FROM sessions s
		JOIN session_participants p ON p.session_id = s.id AND p.user_id = $1
		JOIN users u ON u.id = s.creator_id
		WHERE s.ended_at IS NULL AND s.creator_id <> $1
		ORDER BY p.joined_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum := Summary{IsActive: true}
		var joinedAt time.Time
		if err := rows.Scan(&sum.Code, &sum.Name, &sum.LocationName, &sum.CreatorName, &sum.CreatedAt,
			&sum.UserIsActive, &joinedAt, &sum.ParticipantCount, &sum.ActiveParticipantCount); err != nil {
			return nil, err
		}
		sum.JoinedAt = &joinedAt
		out = append(out, sum)
	}
	return out, rows.Err()
}

// History lists every session the caller created or joined, active and
// ended alike.
func (s *Service) History(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.session_code, s.session_name, s.location_name, u.username, s.created_at,
		       s.ended_at IS NULL AS is_active,
		       s.creator_id = $1 AS is_creator,
		       COALESCE(p.is_active, FALSE) AS user_is_active,
		       p.joined_at,
		       (SELECT COUNT(*) FROM session_participants sp WHERE sp.session_id = s.id) AS total,
		       (SELECT COUNT(*) FROM session_participants sp WHERE sp.session_id = s.id AND sp.is_active) AS active
		FROM sessions s
		JOIN users u ON u.id = s.creator_id
		LEFT JOIN session_participants p ON p.session_id = s.id AND p.user_id = $1
		WHERE s.creator_id = $1 OR p.id IS NOT NULL
		ORDER BY s.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var joinedAt *time.Time
		if err := rows.Scan(&sum.Code, &sum.Name, &sum.LocationName, &sum.CreatorName, &sum.CreatedAt,
			&sum.IsActive, &sum.IsCreator, &sum.UserIsActive, &joinedAt,
			&sum.ParticipantCount, &sum.ActiveParticipantCount); err != nil {
			return nil, err
		}
		sum.JoinedAt = joinedAt
		out = append(out, sum)
	}
	return out, rows.Err()
}

// generateCode draws short codes until one is free. Codes are checked
// against all sessions ever created since ended sessions keep their rows.
func (s *Service) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := randomCode(codeLength)

		var taken bool
		if err := s.db.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM sessions WHERE session_code = $1)
		`, code).Scan(&taken); err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique session code")
}

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}
