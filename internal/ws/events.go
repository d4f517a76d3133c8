package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/models"
)

// Event names shared by both directions of the wire protocol.
const (
	EventSessionState      = "session-state"
	EventSlideChange       = "slide-change"
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventResponse          = "response"
	EventPollUpdate        = "poll-update"
	EventQuizUpdate        = "quiz-update"
	EventTextUpdate        = "text-update"
	EventSessionStart      = "session-start"
	EventSessionPause      = "session-pause"
	EventSessionResume     = "session-resume"
	EventSessionEnd        = "session-end"
	EventError             = "error"
)

var ErrMalformedPayload = errors.New("malformed payload")

// Inbound payloads. Required integer fields are pointers so a missing
// field is distinguishable from zero.

type SlideChangePayload struct {
	SlideIndex *int `json:"slideIndex"`
}

type ResponsePayload struct {
	SlideIndex      *int                `json:"slideIndex"`
	Type            string              `json:"type"`
	Data            models.ResponseData `json:"data"`
	ParticipantID   string              `json:"participantId"`
	ParticipantName string              `json:"participantName"`
	Timestamp       int64               `json:"timestamp"`
}

// Outbound payloads.

type SessionStatePayload struct {
	CurrentSlide int                  `json:"currentSlide"`
	Status       string               `json:"status"`
	SlideCount   int                  `json:"slideCount"`
	Participants []models.Participant `json:"participants"`
}

type SlideChangeEvent struct {
	SlideIndex int `json:"slideIndex"`
}

type RosterPayload struct {
	Participants []models.Participant `json:"participants"`
}

type ResponseEvent struct {
	SlideIndex      int                 `json:"slideIndex"`
	Type            string              `json:"type"`
	Data            models.ResponseData `json:"data"`
	ParticipantID   string              `json:"participantId"`
	ParticipantName string              `json:"participantName"`
	Timestamp       int64               `json:"timestamp"`
}

type ChoiceUpdatePayload struct {
	SlideIndex int                  `json:"slideIndex"`
	Results    models.ChoiceResults `json:"results"`
}

type TextUpdatePayload struct {
	SlideIndex int                `json:"slideIndex"`
	Results    models.TextResults `json:"results"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// InboundEvent is one decoded client message. Exactly one payload pointer
// is non-nil, matching Type; lifecycle events carry no payload.
type InboundEvent struct {
	Type        string
	SlideChange *SlideChangePayload
	Response    *ResponsePayload
}

// ParseInbound validates a raw client message against the fixed schema for
// its event name. Anything that does not decode cleanly is rejected with
// ErrMalformedPayload before it can reach the router.
func ParseInbound(raw []byte) (*InboundEvent, error) {
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch env.Type {
	case EventSessionStart, EventSessionPause, EventSessionResume, EventSessionEnd:
		return &InboundEvent{Type: env.Type}, nil

	case EventSlideChange:
		var p SlideChangePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if p.SlideIndex == nil || *p.SlideIndex < 0 {
			return nil, fmt.Errorf("%w: slide-change requires a non-negative slideIndex", ErrMalformedPayload)
		}
		return &InboundEvent{Type: env.Type, SlideChange: &p}, nil

	case EventResponse:
		var p ResponsePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if p.SlideIndex == nil || *p.SlideIndex < 0 {
			return nil, fmt.Errorf("%w: response requires a non-negative slideIndex", ErrMalformedPayload)
		}
		switch p.Type {
		case models.ResponseTypePoll, models.ResponseTypeQuiz:
			if p.Data.Option == nil || *p.Data.Option < 0 {
				return nil, fmt.Errorf("%w: %s response requires a non-negative option", ErrMalformedPayload, p.Type)
			}
		case models.ResponseTypeText:
			if p.Data.Text == "" {
				return nil, fmt.Errorf("%w: text response requires text", ErrMalformedPayload)
			}
		default:
			return nil, fmt.Errorf("%w: unknown response type %q", ErrMalformedPayload, p.Type)
		}
		return &InboundEvent{Type: env.Type, Response: &p}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedPayload, env.Type)
	}
}
