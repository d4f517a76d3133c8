package models

import "time"

type Session struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Code          string     `gorm:"size:5;index" json:"code"`
	PresenterID   uint       `gorm:"index;default:0" json:"presenter_id,omitempty"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	PresenterName string     `gorm:"size:100;not null" json:"presenter_name"`
	SlideCount    int        `gorm:"not null;default:0" json:"slide_count"`
	CurrentSlide  int        `gorm:"not null;default:0" json:"current_slide"`
	Status        string     `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

const (
	SessionStatusActive  = "active"
	SessionStatusStarted = "started"
	SessionStatusPaused  = "paused"
	SessionStatusEnded   = "ended"
)
