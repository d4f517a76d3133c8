package models

import "time"

// Participant is a live roster entry. The roster reflects who is connected
// right now; it is not persisted and disconnecting never deletes the
// participant's recorded responses.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}
