package alert

import "time"

type Notification struct {
	ID              string    `json:"id"`
	SenderID        string    `json:"sender_participant_id"`
	SenderName      string    `json:"sender_name"`
	Message         string    `json:"message"`
	SenderLatitude  *float64  `json:"sender_latitude,omitempty"`
	SenderLongitude *float64  `json:"sender_longitude,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type MarkReadRequest struct {
	IDs []string `json:"notification_ids"`
}
