package session

import "time"

type Session struct {
	ID           string    `json:"id"`
	Code         string    `json:"session_code"`
	Name         string    `json:"session_name"`
	CreatorID    string    `json:"creator_id"`
	CreatorName  string    `json:"creator_name,omitempty"`
	LocationName string    `json:"location_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
	IsActive     bool      `json:"is_active"`
}

// Listing row for dashboards and history: a session plus the caller's
// relationship to it.
type Summary struct {
	Code                   string     `json:"session_code"`
	Name                   string     `json:"session_name"`
	LocationName           string     `json:"location_name,omitempty"`
	CreatorName            string     `json:"creator_name,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	IsActive               bool       `json:"is_active"`
	IsCreator              bool       `json:"is_creator"`
	UserIsActive           bool       `json:"user_is_active"`
	JoinedAt               *time.Time `json:"joined_at,omitempty"`
	ParticipantCount       int        `json:"participant_count"`
	ActiveParticipantCount int        `json:"active_participant_count"`
}

type CreateRequest struct {
	Name      string   `json:"session_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type RenameRequest struct {
	Code string `json:"session_code"`
	Name string `json:"session_name"`
}

type EndRequest struct {
	Code string `json:"session_code"`
}
