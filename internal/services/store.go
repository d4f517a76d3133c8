package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/models"

	"gorm.io/gorm"
)

// liveSession is the authoritative in-memory state for one running session:
// the session record, the live roster, and the append-only response list.
type liveSession struct {
	session   models.Session
	roster    map[string]models.Participant
	responses []models.Response
}

// SessionStore owns the in-memory session map and writes through to the
// durable store. In-memory state is the source of truth for live behavior;
// durable writes after creation are fire-and-forget and exist for crash
// recovery and export.
type SessionStore struct {
	db *gorm.DB

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{
		db:       db,
		sessions: make(map[string]*liveSession),
	}
}

// CreateSession generates a join code, persists the new record, and inserts
// it into memory. The durable insert is synchronous: if it fails the
// session does not exist.
func (s *SessionStore) CreateSession(presenterID uint, title, presenterName string, slideCount int) (*models.Session, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate session code: %w", err)
	}

	session := models.Session{
		Code:          code,
		PresenterID:   presenterID,
		Title:         title,
		PresenterName: presenterName,
		SlideCount:    slideCount,
		Status:        models.SessionStatusActive,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.sessions[code] = &liveSession{
		session: session,
		roster:  make(map[string]models.Participant),
	}
	s.mu.Unlock()

	log.Printf("store: created session %s (%q)", code, title)
	return &session, nil
}

// newCode draws codes until one collides with neither a live in-memory
// session nor a non-ended durable row. Codes of ended sessions may be
// reused.
func (s *SessionStore) newCode() (string, error) {
	for {
		code := randomCode()

		s.mu.RLock()
		_, taken := s.sessions[code]
		s.mu.RUnlock()
		if taken {
			continue
		}

		var count int64
		if err := s.db.Model(&models.Session{}).
			Where("code = ? AND status != ?", code, models.SessionStatusEnded).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
}

func (s *SessionStore) GetSession(code string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls, ok := s.sessions[code]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return ls.session, nil
}

// UpdateStatus mutates the in-memory status synchronously and persists in a
// detached task. Reaching ended removes the session from live memory; the
// durable record remains.
func (s *SessionStore) UpdateStatus(code, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[code]
	if !ok {
		return ErrSessionNotFound
	}
	if ls.session.Status == models.SessionStatusEnded {
		return ErrInvalidSessionState
	}

	now := time.Now()
	ls.session.Status = status
	switch status {
	case models.SessionStatusStarted:
		if ls.session.StartedAt == nil {
			ls.session.StartedAt = &now
		}
	case models.SessionStatusEnded:
		ls.session.EndedAt = &now
		delete(s.sessions, code)
	}

	go s.persistSession(ls.session)
	return nil
}

// UpdateCurrentSlide mutates the in-memory slide index synchronously and
// persists in a detached task.
func (s *SessionStore) UpdateCurrentSlide(code string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[code]
	if !ok {
		return ErrSessionNotFound
	}
	ls.session.CurrentSlide = index

	go s.persistSession(ls.session)
	return nil
}

// persistSession is fire-and-forget: failure degrades crash recovery, not
// the live session, so it is logged and swallowed.
func (s *SessionStore) persistSession(session models.Session) {
	err := s.db.Model(&models.Session{}).
		Where("code = ?", session.Code).
		Updates(map[string]interface{}{
			"status":        session.Status,
			"current_slide": session.CurrentSlide,
			"started_at":    session.StartedAt,
			"ended_at":      session.EndedAt,
		}).Error
	if err != nil {
		log.Printf("store: persist session %s failed: %v", session.Code, err)
	}
}

// AddParticipant upserts a roster entry (reconnects keep their id) and
// returns the updated roster.
func (s *SessionStore) AddParticipant(code string, p models.Participant) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if existing, ok := ls.roster[p.ID]; ok {
		p.JoinedAt = existing.JoinedAt
	}
	ls.roster[p.ID] = p
	return rosterSlice(ls.roster), nil
}

// RemoveParticipant drops a roster entry. The roster is a presence view:
// removal never touches the participant's recorded responses.
func (s *SessionStore) RemoveParticipant(code, participantID string) ([]models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	delete(ls.roster, participantID)
	return rosterSlice(ls.roster), nil
}

func (s *SessionStore) Roster(code string) []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls, ok := s.sessions[code]
	if !ok {
		return nil
	}
	return rosterSlice(ls.roster)
}

func rosterSlice(roster map[string]models.Participant) []models.Participant {
	out := make([]models.Participant, 0, len(roster))
	for _, p := range roster {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AppendResponse adds a response to the session's in-memory list.
func (s *SessionStore) AppendResponse(resp models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls, ok := s.sessions[resp.SessionCode]
	if !ok {
		return ErrSessionNotFound
	}
	ls.responses = append(ls.responses, resp)
	return nil
}

// Responses returns a snapshot of the responses recorded for one slide, in
// submission order.
func (s *SessionStore) Responses(code string, slideIndex int) []models.Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls, ok := s.sessions[code]
	if !ok {
		return nil
	}
	out := make([]models.Response, 0, len(ls.responses))
	for _, r := range ls.responses {
		if r.SlideIndex == slideIndex {
			out = append(out, r)
		}
	}
	return out
}

// LoadActiveSessions rehydrates every non-ended session from the durable
// store, replaying its response history so aggregates are correct
// immediately after a restart.
func (s *SessionStore) LoadActiveSessions() error {
	var rows []models.Session
	if err := s.db.Where("status != ?", models.SessionStatusEnded).Find(&rows).Error; err != nil {
		return fmt.Errorf("load active sessions: %w", err)
	}

	responseTypes := []string{models.ResponseTypePoll, models.ResponseTypeQuiz, models.ResponseTypeText}

	for _, row := range rows {
		ls := &liveSession{
			session: row,
			roster:  make(map[string]models.Participant),
		}

		var interactions []models.Interaction
		if err := s.db.
			Where("session_code = ? AND event_type IN ?", row.Code, responseTypes).
			Order("created_at ASC").
			Find(&interactions).Error; err != nil {
			log.Printf("store: replay responses for session %s failed: %v", row.Code, err)
		}
		for _, it := range interactions {
			var data models.ResponseData
			if err := json.Unmarshal([]byte(it.EventData), &data); err != nil {
				log.Printf("store: skipping unreadable response row %d for session %s: %v", it.ID, row.Code, err)
				continue
			}
			ls.responses = append(ls.responses, models.Response{
				SessionCode:     row.Code,
				SlideIndex:      it.SlideIndex,
				Type:            it.EventType,
				Data:            data,
				ParticipantID:   it.ParticipantID,
				ParticipantName: it.ParticipantName,
				Timestamp:       it.CreatedAt,
			})
		}

		s.mu.Lock()
		s.sessions[row.Code] = ls
		s.mu.Unlock()
		log.Printf("store: rehydrated session %s (%d responses)", row.Code, len(ls.responses))
	}
	return nil
}

// FindSession resolves a code to its session record, live or ended,
// preferring live in-memory state.
func (s *SessionStore) FindSession(code string) (models.Session, error) {
	if session, err := s.GetSession(code); err == nil {
		return session, nil
	}
	var session models.Session
	if err := s.db.Where("code = ?", code).
		Order("created_at DESC").
		First(&session).Error; err != nil {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns a presenter's sessions, newest first, from the
// durable store (ended sessions included).
func (s *SessionStore) ListSessions(presenterID uint) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.Where("presenter_id = ?", presenterID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
