package services

import (
	"log"
	"time"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/models"

	"gorm.io/gorm"
)

// LogWriter appends interaction rows to the durable store off the event
// path. Record never blocks: a full queue drops the entry with a warning,
// and insert failures are logged and swallowed. The in-memory session state
// stays authoritative either way.
type LogWriter struct {
	db    *gorm.DB
	queue chan models.Interaction
	done  chan struct{}
}

func NewLogWriter(db *gorm.DB, buffer int) *LogWriter {
	if buffer <= 0 {
		buffer = 256
	}
	w := &LogWriter{
		db:    db,
		queue: make(chan models.Interaction, buffer),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *LogWriter) Record(entry models.Interaction) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	select {
	case w.queue <- entry:
	default:
		log.Printf("journal: queue full, dropping %s event for session %s", entry.EventType, entry.SessionCode)
	}
}

func (w *LogWriter) run() {
	for entry := range w.queue {
		if err := w.db.Create(&entry).Error; err != nil {
			log.Printf("journal: append %s for session %s failed: %v", entry.EventType, entry.SessionCode, err)
		}
	}
	close(w.done)
}

// Close drains the queue and stops the worker.
func (w *LogWriter) Close() {
	close(w.queue)
	<-w.done
}

// History reads a session's journal back from the durable store, oldest
// first, optionally filtered by event types and slide index (-1 for all
// slides).
func (w *LogWriter) History(code string, eventTypes []string, slideIndex int) ([]models.Interaction, error) {
	q := w.db.Where("session_code = ?", code)
	if len(eventTypes) > 0 {
		q = q.Where("event_type IN ?", eventTypes)
	}
	if slideIndex >= 0 {
		q = q.Where("slide_index = ?", slideIndex)
	}

	var rows []models.Interaction
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
