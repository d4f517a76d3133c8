package ws

import (
	"errors"
	"testing"
)

func TestParseInboundValid(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{"lifecycle without payload", `{"type":"session-start"}`, EventSessionStart},
		{"slide change", `{"type":"slide-change","data":{"slideIndex":0}}`, EventSlideChange},
		{"poll response", `{"type":"response","data":{"slideIndex":2,"type":"poll","data":{"option":1}}}`, EventResponse},
		{"quiz response", `{"type":"response","data":{"slideIndex":2,"type":"quiz","data":{"option":0}}}`, EventResponse},
		{"text response", `{"type":"response","data":{"slideIndex":1,"type":"text","data":{"text":"hi there"}}}`, EventResponse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := ParseInbound([]byte(tc.raw))
			if err != nil {
				t.Fatalf("ParseInbound: %v", err)
			}
			if event.Type != tc.want {
				t.Errorf("type = %q, want %q", event.Type, tc.want)
			}
		})
	}
}

func TestParseInboundPayloadDetails(t *testing.T) {
	event, err := ParseInbound([]byte(`{"type":"response","data":{"slideIndex":2,"type":"poll","data":{"option":1},"participantId":"p1","participantName":"Ann","timestamp":1700000000000}}`))
	if err != nil {
		t.Fatalf("ParseInbound: %v", err)
	}
	p := event.Response
	if p == nil {
		t.Fatal("response payload missing")
	}
	if *p.SlideIndex != 2 || *p.Data.Option != 1 || p.ParticipantID != "p1" || p.Timestamp != 1700000000000 {
		t.Errorf("payload = %+v", p)
	}
}

func TestParseInboundMalformed(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"unknown event", `{"type":"teleport"}`},
		{"slide change without payload", `{"type":"slide-change"}`},
		{"slide change missing index", `{"type":"slide-change","data":{}}`},
		{"slide change negative index", `{"type":"slide-change","data":{"slideIndex":-1}}`},
		{"response missing slide", `{"type":"response","data":{"type":"poll","data":{"option":1}}}`},
		{"response unknown type", `{"type":"response","data":{"slideIndex":0,"type":"emoji","data":{}}}`},
		{"poll missing option", `{"type":"response","data":{"slideIndex":0,"type":"poll","data":{}}}`},
		{"poll negative option", `{"type":"response","data":{"slideIndex":0,"type":"poll","data":{"option":-2}}}`},
		{"text missing text", `{"type":"response","data":{"slideIndex":0,"type":"text","data":{}}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseInbound([]byte(tc.raw)); !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("got %v, want ErrMalformedPayload", err)
			}
		})
	}
}
