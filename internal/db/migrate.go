package db

import "context"

// Schema statements are idempotent so Migrate can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      VARCHAR(50) UNIQUE NOT NULL,
		email         VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		token      TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		session_code  VARCHAR(10) UNIQUE NOT NULL,
		creator_id    TEXT NOT NULL REFERENCES users(id),
		session_name  VARCHAR(100) NOT NULL,
		location_name VARCHAR(200) NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		ended_at      TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS session_participants (
		id           TEXT PRIMARY KEY,
		session_id   TEXT NOT NULL REFERENCES sessions(id),
		user_id      TEXT REFERENCES users(id),
		display_name VARCHAR(50) NOT NULL,
		role         VARCHAR(20) NOT NULL DEFAULT 'participant',
		joined_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		is_online    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_participant_user
		ON session_participants (session_id, user_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_participant_guest
		ON session_participants (session_id, display_name) WHERE user_id IS NULL`,
	`CREATE TABLE IF NOT EXISTS locations (
		id             BIGSERIAL PRIMARY KEY,
		participant_id TEXT NOT NULL REFERENCES session_participants(id),
		latitude       DOUBLE PRECISION NOT NULL,
		longitude      DOUBLE PRECISION NOT NULL,
		accuracy       DOUBLE PRECISION,
		recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_locations_participant_time
		ON locations (participant_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id                       TEXT PRIMARY KEY,
		session_id               TEXT NOT NULL REFERENCES sessions(id),
		sender_participant_id    TEXT NOT NULL REFERENCES session_participants(id),
		recipient_participant_id TEXT NOT NULL REFERENCES session_participants(id),
		message                  VARCHAR(500) NOT NULL,
		sender_latitude          DOUBLE PRECISION,
		sender_longitude         DOUBLE PRECISION,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_read                  BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread
		ON notifications (recipient_participant_id, created_at) WHERE NOT is_read`,
}

// Migrate bootstraps the schema. Safe to call repeatedly.
func Migrate(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
