package models

import "time"

const (
	ResponseTypePoll = "poll"
	ResponseTypeQuiz = "quiz"
	ResponseTypeText = "text"
)

// ResponseData is the type-dependent body of a response: Option for
// poll/quiz answers, Text for free text.
type ResponseData struct {
	Option *int   `json:"option,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Response is one submitted answer, held in the session's in-memory
// response list for the lifetime of the session. Append-only.
type Response struct {
	SessionCode     string       `json:"session_code"`
	SlideIndex      int          `json:"slide_index"`
	Type            string       `json:"type"`
	Data            ResponseData `json:"data"`
	ParticipantID   string       `json:"participant_id"`
	ParticipantName string       `json:"participant_name"`
	Timestamp       time.Time    `json:"timestamp"`
}

// ChoiceResults is the aggregate for poll and quiz slides. Options is dense:
// its length is max(observed option index)+1 and unobserved indices are zero.
type ChoiceResults struct {
	Options []int `json:"options"`
	Total   int   `json:"total"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type TextEntry struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// TextResults is the aggregate for free-text slides: top words by frequency
// plus a bounded wall of the most recent raw responses, newest first.
type TextResults struct {
	Words []WordCount `json:"words"`
	Texts []TextEntry `json:"texts"`
	Total int         `json:"total"`
}
