package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/db"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/stream"

	"github.com/jackc/pgx/v5"
)

type Service struct {
	db  db.Pool
	hub *stream.Hub
}

func NewService(pool db.Pool, hub *stream.Hub) *Service {
	return &Service{db: pool, hub: hub}
}

// Send fans one notification out to every other active participant of the
// sender's session, with the sender's position snapshotted at send time.
// A session with no other members yields count 0, not an error.
func (s *Service) Send(ctx context.Context, senderID, senderName string) (int, error) {
	var sessionID, sessionCode string
	var isActive bool
	var endedAt *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT p.session_id, p.is_active, s.session_code, s.ended_at
		FROM session_participants p
		JOIN sessions s ON s.id = p.session_id
		WHERE p.id = $1
	`, senderID).Scan(&sessionID, &isActive, &sessionCode, &endedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("participant %s: %w", senderID, apperr.ErrNotFound)
		}
		return 0, err
	}
	if !isActive || endedAt != nil {
		return 0, apperr.ErrNotActiveMember
	}

	var lat, lng *float64
	err = s.db.QueryRow(ctx, `
		SELECT latitude, longitude FROM locations
		WHERE participant_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, senderID).Scan(&lat, &lng)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	message := senderName + " needs your attention"

	// One statement covers the whole fanout, so a concurrent join or leave
	// cannot produce a partial set of recipients.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO notifications
			(id, session_id, sender_participant_id, recipient_participant_id,
			 message, sender_latitude, sender_longitude)
		SELECT gen_random_uuid()::text, $1, $2, p.id, $3, $4, $5
		FROM session_participants p
		WHERE p.session_id = $1 AND p.is_active AND p.id <> $2
	`, sessionID, senderID, message, lat, lng)
	if err != nil {
		return 0, err
	}
	count := int(tag.RowsAffected())

	if s.hub != nil {
		s.hub.Publish(sessionCode, "alert", Notification{
			SenderID:        senderID,
			SenderName:      senderName,
			Message:         message,
			SenderLatitude:  lat,
			SenderLongitude: lng,
			CreatedAt:       time.Now(),
		})
	}
	return count, nil
}

// Unread lists the caller's pending notifications, oldest first. Reading
// marks nothing; acknowledgement is a separate call.
func (s *Service) Unread(ctx context.Context, participantID string) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT n.id, n.sender_participant_id, p.display_name, n.message,
		       n.sender_latitude, n.sender_longitude, n.created_at
		FROM notifications n
		JOIN session_participants p ON p.id = n.sender_participant_id
		WHERE n.recipient_participant_id = $1 AND NOT n.is_read
		ORDER BY n.created_at
	`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.SenderID, &n.SenderName, &n.Message,
			&n.SenderLatitude, &n.SenderLongitude, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead acknowledges notifications by id. Ids that are unknown, already
// read, or addressed to someone else are ignored.
func (s *Service) MarkRead(ctx context.Context, participantID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient_participant_id = $1 AND id = ANY($2)
	`, participantID, ids)
	return err
}
