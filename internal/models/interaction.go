package models

import "time"

// Interaction is one append-only journal row in the durable store. Every
// event that flows through a session (joins, slide changes, responses,
// lifecycle transitions) lands here for audit and export.
type Interaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionCode     string    `gorm:"size:5;index" json:"session_code"`
	EventType       string    `gorm:"size:30;not null;index" json:"event_type"`
	ParticipantID   string    `gorm:"size:64" json:"participant_id,omitempty"`
	ParticipantName string    `gorm:"size:100" json:"participant_name,omitempty"`
	SlideIndex      int       `gorm:"not null;default:0" json:"slide_index"`
	EventData       string    `gorm:"type:jsonb" json:"event_data,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
