package participant

import "time"

type Participant struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"-"`
	SessionCode string    `json:"session_code"`
	UserID      string    `json:"user_id,omitempty"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	IsActive    bool      `json:"is_active"`
}

// Member is a row in the live participant list: identity plus the latest
// known position, if any.
type Member struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	JoinedAt     time.Time `json:"joined_at"`
	IsOnline     bool      `json:"is_online"`
	LastPosition *Position `json:"last_position,omitempty"`
}

type Position struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

type JoinRequest struct {
	Code      string `json:"session_code"`
	GuestName string `json:"guest_name"`
}

type RemoveRequest struct {
	Code          string `json:"session_code"`
	ParticipantID string `json:"participant_id"`
}
