package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/models"
)

// Aggregates are recomputed in full from the response list on every new
// response. Session volumes are classroom scale, so the recompute is cheap
// and there are no incremental counters to drift.

const (
	topWordLimit = 30
	wallLimit    = 10
	minTokenLen  = 2
)

var stopwords = map[string]bool{
	"am": true, "an": true, "as": true, "at": true, "be": true,
	"by": true, "do": true, "go": true, "he": true, "if": true,
	"in": true, "is": true, "it": true, "me": true, "my": true,
	"no": true, "of": true, "on": true, "or": true, "so": true,
	"to": true, "up": true, "us": true, "we": true,
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"has": true, "have": true, "was": true, "were": true, "one": true,
	"our": true, "out": true, "this": true, "that": true, "with": true,
	"they": true, "them": true, "then": true, "than": true, "what": true,
	"when": true, "where": true, "which": true, "will": true, "would": true,
	"there": true, "their": true, "been": true, "from": true, "who": true,
	"how": true, "its": true, "also": true, "your": true, "his": true,
	"her": true, "she": true, "him": true, "some": true, "more": true,
	"very": true, "just": true, "about": true, "into": true, "over": true,
	"after": true, "because": true, "does": true, "did": true, "only": true,
	"other": true, "such": true, "these": true, "those": true, "each": true,
	"get": true, "got": true, "like": true, "too": true, "any": true,
}

// AggregateChoices counts poll/quiz answers per option. A participant's
// latest answer for the slide is the one counted, so resubmitting moves a
// vote instead of double-counting it. The returned Options slice is dense:
// length max(observed option)+1, zeros for unpicked options.
func AggregateChoices(responses []models.Response) models.ChoiceResults {
	latest := make(map[string]int)
	for i, r := range responses {
		if r.Data.Option == nil || *r.Data.Option < 0 {
			continue
		}
		key := r.ParticipantID
		if key == "" {
			key = fmt.Sprintf("anon-%d", i)
		}
		latest[key] = *r.Data.Option
	}

	max := -1
	for _, opt := range latest {
		if opt > max {
			max = opt
		}
	}

	options := make([]int, max+1)
	for _, opt := range latest {
		options[opt]++
	}
	return models.ChoiceResults{Options: options, Total: len(latest)}
}

// AggregateText builds the word-frequency summary and the recent-response
// wall for a free-text slide. All submissions accumulate; several thoughts
// from one participant are all meaningful for a word cloud.
//
// Top words are ordered by descending count; ties keep the order in which a
// word was first seen across the response list (stable sort over a
// first-seen slice), which keeps the output deterministic for a given
// response sequence.
func AggregateText(responses []models.Response) models.TextResults {
	counts := make(map[string]int)
	var firstSeen []string

	total := 0
	for _, r := range responses {
		if r.Data.Text == "" {
			continue
		}
		total++
		for _, tok := range tokenize(r.Data.Text) {
			if counts[tok] == 0 {
				firstSeen = append(firstSeen, tok)
			}
			counts[tok]++
		}
	}

	words := make([]models.WordCount, 0, len(firstSeen))
	for _, w := range firstSeen {
		words = append(words, models.WordCount{Word: w, Count: counts[w]})
	}
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Count > words[j].Count
	})
	if len(words) > topWordLimit {
		words = words[:topWordLimit]
	}

	// Wall: most recent raw responses, newest first, full text untruncated
	// so exports keep round-trip fidelity. Truncation is a rendering concern.
	texts := make([]models.TextEntry, 0, wallLimit)
	for i := len(responses) - 1; i >= 0 && len(texts) < wallLimit; i-- {
		if responses[i].Data.Text == "" {
			continue
		}
		texts = append(texts, models.TextEntry{
			Name: responses[i].ParticipantName,
			Text: responses[i].Data.Text,
		})
	}

	return models.TextResults{Words: words, Texts: texts, Total: total}
}

// tokenize lower-cases the text, drops every character outside
// [a-z0-9\s'-], splits on whitespace, and filters short tokens and
// stopwords.
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteRune(' ')
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) < minTokenLen || stopwords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
