package location

import "time"

type Fix struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Accuracy      *float64  `json:"accuracy,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Track is one participant's fix history in chronological order, with the
// total distance walked along it.
type Track struct {
	ParticipantID string  `json:"participant_id"`
	Positions     []Fix   `json:"positions"`
	DistanceM     float64 `json:"distance_m"`
}

type UpdateRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
}
