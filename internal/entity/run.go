package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run represents one processing attempt of a bulletin document.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	SourcePath   string     `json:"source_path"`
	BulletinDate string     `json:"bulletin_date"`
	Status       string     `json:"status"`
	Pages        int        `json:"pages"`
	Products     int        `json:"products"`
	Discarded    int        `json:"discarded"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
