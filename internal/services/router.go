package services

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/models"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/ws"
)

// EventRouter is the state machine between the transport and the session
// state. It validates role and session for every inbound event, mutates the
// SessionStore, enqueues journal writes, recomputes aggregates, and fans
// out results through the hub.
//
// All events for one session are handled under that session's lock, run to
// completion, so participants observe presenter events in issue order and
// every aggregate reflects a consistent snapshot of the response list.
// Different sessions proceed independently.
type EventRouter struct {
	store   *SessionStore
	journal *LogWriter
	hub     *ws.Hub

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEventRouter(store *SessionStore, journal *LogWriter, hub *ws.Hub) *EventRouter {
	return &EventRouter{
		store:   store,
		journal: journal,
		hub:     hub,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *EventRouter) sessionLock(code string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[code]
	if !ok {
		l = &sync.Mutex{}
		r.locks[code] = l
	}
	return l
}

// Connect registers a handshaken connection. Presenters get the full
// resumable state; participants land on the current slide (not slide 0) and
// presenters are told about the roster change. A connection for an unknown
// session is rejected; the caller closes the transport.
func (r *EventRouter) Connect(client *ws.Client) error {
	lock := r.sessionLock(client.SessionCode)
	lock.Lock()
	defer lock.Unlock()

	session, err := r.store.GetSession(client.SessionCode)
	if err != nil {
		return err
	}

	r.hub.Register(client)

	switch client.Role {
	case ws.RolePresenter:
		state := ws.SessionStatePayload{
			CurrentSlide: session.CurrentSlide,
			Status:       session.Status,
			SlideCount:   session.SlideCount,
			Participants: r.store.Roster(client.SessionCode),
		}
		if err := client.Send(ws.Envelope{Type: ws.EventSessionState, Data: state}); err != nil {
			log.Printf("router: send session-state to %s: %v", client.SessionCode, err)
		}

	case ws.RoleParticipant:
		roster, err := r.store.AddParticipant(client.SessionCode, models.Participant{
			ID:       client.ParticipantID,
			Name:     client.ParticipantName,
			JoinedAt: time.Now(),
		})
		if err != nil {
			r.hub.Unregister(client)
			return err
		}
		if err := client.Send(ws.Envelope{
			Type: ws.EventSlideChange,
			Data: ws.SlideChangeEvent{SlideIndex: session.CurrentSlide},
		}); err != nil {
			log.Printf("router: send current slide to %s: %v", client.SessionCode, err)
		}
		r.hub.BroadcastToPresenters(client.SessionCode, ws.Envelope{
			Type: ws.EventParticipantJoined,
			Data: ws.RosterPayload{Participants: roster},
		})
		r.journal.Record(models.Interaction{
			SessionCode:     client.SessionCode,
			EventType:       ws.EventParticipantJoined,
			ParticipantID:   client.ParticipantID,
			ParticipantName: client.ParticipantName,
			SlideIndex:      session.CurrentSlide,
		})
	}
	return nil
}

// Disconnect unregisters the connection and, for participants, updates the
// live roster. Response history is never touched.
func (r *EventRouter) Disconnect(client *ws.Client) {
	lock := r.sessionLock(client.SessionCode)
	lock.Lock()
	defer lock.Unlock()

	r.hub.Unregister(client)

	if client.Role != ws.RoleParticipant {
		return
	}
	roster, err := r.store.RemoveParticipant(client.SessionCode, client.ParticipantID)
	if err != nil {
		return
	}
	r.hub.BroadcastToPresenters(client.SessionCode, ws.Envelope{
		Type: ws.EventParticipantLeft,
		Data: ws.RosterPayload{Participants: roster},
	})
	r.journal.Record(models.Interaction{
		SessionCode:     client.SessionCode,
		EventType:       ws.EventParticipantLeft,
		ParticipantID:   client.ParticipantID,
		ParticipantName: client.ParticipantName,
	})
}

// HandleMessage processes one inbound frame. Errors are contained per
// message: a malformed payload is dropped with a warning and the connection
// stays open.
func (r *EventRouter) HandleMessage(client *ws.Client, raw []byte) {
	event, err := ws.ParseInbound(raw)
	if err != nil {
		log.Printf("router: dropping message on session %s: %v", client.SessionCode, err)
		return
	}

	lock := r.sessionLock(client.SessionCode)
	lock.Lock()
	defer lock.Unlock()

	switch event.Type {
	case ws.EventSlideChange:
		r.handleSlideChange(client, *event.SlideChange)
	case ws.EventResponse:
		r.handleResponse(client, *event.Response)
	default:
		r.handleLifecycle(client, event.Type)
	}
}

func (r *EventRouter) handleSlideChange(client *ws.Client, payload ws.SlideChangePayload) {
	// Privileged commands from non-presenters are dropped without a reply:
	// a tampered client gets no signal about what is privileged.
	if client.Role != ws.RolePresenter {
		log.Printf("router: ignoring slide-change from %s on session %s", client.Role, client.SessionCode)
		return
	}

	index := *payload.SlideIndex
	if err := r.store.UpdateCurrentSlide(client.SessionCode, index); err != nil {
		r.rejectCommand(client, err)
		return
	}

	data, _ := json.Marshal(map[string]int{"slideIndex": index})
	r.journal.Record(models.Interaction{
		SessionCode: client.SessionCode,
		EventType:   ws.EventSlideChange,
		SlideIndex:  index,
		EventData:   string(data),
	})

	r.hub.Broadcast(client.SessionCode, ws.Envelope{
		Type: ws.EventSlideChange,
		Data: ws.SlideChangeEvent{SlideIndex: index},
	}, client)
}

// lifecycleTransitions maps a lifecycle command to the statuses it may be
// issued from and the status it produces. ended is terminal and appears in
// no from set.
var lifecycleTransitions = map[string]struct {
	from []string
	to   string
}{
	ws.EventSessionStart:  {from: []string{models.SessionStatusActive}, to: models.SessionStatusStarted},
	ws.EventSessionPause:  {from: []string{models.SessionStatusStarted}, to: models.SessionStatusPaused},
	ws.EventSessionResume: {from: []string{models.SessionStatusPaused}, to: models.SessionStatusStarted},
	ws.EventSessionEnd: {
		from: []string{models.SessionStatusActive, models.SessionStatusStarted, models.SessionStatusPaused},
		to:   models.SessionStatusEnded,
	},
}

func (r *EventRouter) handleLifecycle(client *ws.Client, event string) {
	if client.Role != ws.RolePresenter {
		log.Printf("router: ignoring %s from %s on session %s", event, client.Role, client.SessionCode)
		return
	}

	transition, ok := lifecycleTransitions[event]
	if !ok {
		return
	}

	session, err := r.store.GetSession(client.SessionCode)
	if err != nil {
		r.rejectCommand(client, err)
		return
	}

	allowed := false
	for _, from := range transition.from {
		if session.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		r.rejectCommand(client, ErrInvalidSessionState)
		return
	}

	if err := r.store.UpdateStatus(client.SessionCode, transition.to); err != nil {
		r.rejectCommand(client, err)
		return
	}

	r.journal.Record(models.Interaction{
		SessionCode: client.SessionCode,
		EventType:   event,
		SlideIndex:  session.CurrentSlide,
	})

	r.hub.Broadcast(client.SessionCode, ws.Envelope{Type: event}, nil)
}

func (r *EventRouter) handleResponse(client *ws.Client, payload ws.ResponsePayload) {
	// Only participant connections submit responses.
	if client.Role != ws.RoleParticipant {
		log.Printf("router: ignoring response from %s on session %s", client.Role, client.SessionCode)
		return
	}

	timestamp := time.Now()
	if payload.Timestamp > 0 {
		timestamp = time.UnixMilli(payload.Timestamp)
	}

	// Identity comes from the connection context established at handshake,
	// not from the payload.
	resp := models.Response{
		SessionCode:     client.SessionCode,
		SlideIndex:      *payload.SlideIndex,
		Type:            payload.Type,
		Data:            payload.Data,
		ParticipantID:   client.ParticipantID,
		ParticipantName: client.ParticipantName,
		Timestamp:       timestamp,
	}

	if err := r.store.AppendResponse(resp); err != nil {
		r.rejectCommand(client, err)
		return
	}

	data, _ := json.Marshal(resp.Data)
	r.journal.Record(models.Interaction{
		SessionCode:     resp.SessionCode,
		EventType:       resp.Type,
		ParticipantID:   resp.ParticipantID,
		ParticipantName: resp.ParticipantName,
		SlideIndex:      resp.SlideIndex,
		EventData:       string(data),
		CreatedAt:       resp.Timestamp,
	})

	// Raw response feed for presenters.
	r.hub.BroadcastToPresenters(resp.SessionCode, ws.Envelope{
		Type: ws.EventResponse,
		Data: ws.ResponseEvent{
			SlideIndex:      resp.SlideIndex,
			Type:            resp.Type,
			Data:            resp.Data,
			ParticipantID:   resp.ParticipantID,
			ParticipantName: resp.ParticipantName,
			Timestamp:       resp.Timestamp.UnixMilli(),
		},
	})

	// Aggregate goes to everyone so shared result slides work for
	// participants too.
	responses := r.store.Responses(resp.SessionCode, resp.SlideIndex)
	switch resp.Type {
	case models.ResponseTypePoll:
		r.hub.Broadcast(resp.SessionCode, ws.Envelope{
			Type: ws.EventPollUpdate,
			Data: ws.ChoiceUpdatePayload{SlideIndex: resp.SlideIndex, Results: AggregateChoices(responses)},
		}, nil)
	case models.ResponseTypeQuiz:
		r.hub.Broadcast(resp.SessionCode, ws.Envelope{
			Type: ws.EventQuizUpdate,
			Data: ws.ChoiceUpdatePayload{SlideIndex: resp.SlideIndex, Results: AggregateChoices(responses)},
		}, nil)
	case models.ResponseTypeText:
		r.hub.Broadcast(resp.SessionCode, ws.Envelope{
			Type: ws.EventTextUpdate,
			Data: ws.TextUpdatePayload{SlideIndex: resp.SlideIndex, Results: AggregateText(responses)},
		}, nil)
	}
}

// rejectCommand reports a rejected command back to its sender. A registered
// connection whose session is gone from memory can only mean the session
// ended, so a lookup miss surfaces as invalid state rather than not found.
func (r *EventRouter) rejectCommand(client *ws.Client, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		err = ErrInvalidSessionState
	}
	if sendErr := client.Send(ws.Envelope{
		Type: ws.EventError,
		Data: ws.ErrorPayload{Message: err.Error()},
	}); sendErr != nil {
		log.Printf("router: send error event on session %s: %v", client.SessionCode, sendErr)
	}
}
