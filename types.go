package main

import (
	"time"
)

// Category is one intent: example phrasings and the replies it may answer with
type Category struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
}

// LoadOutcome records what happened to one entry of the corpus document.
// Skipped entries never reach Corpus.Categories.
type LoadOutcome struct {
	Index   int    `json:"index"`
	Tag     string `json:"tag"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
}

// Corpus is the immutable set of categories a Matcher scores against
type Corpus struct {
	Categories []Category
	Outcomes   []LoadOutcome
	Path       string
	LoadedAt   time.Time
}

// Trace describes the best candidate found by one matching pass
type Trace struct {
	Tag     string  `json:"tag"`
	Pattern string  `json:"pattern"`
	Score   float64 `json:"score"`
	Matched bool    `json:"matched"`
}

// Request/Response structures
type RespondRequest struct {
	Text      string `json:"text" form:"text" query:"text"`
	SessionID string `json:"session_id" form:"session_id" query:"session_id"`
}

type RespondResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	Matched   bool   `json:"matched"`
}

type ReloadResponse struct {
	Message    string    `json:"message"`
	Categories int       `json:"categories"`
	ReloadedAt time.Time `json:"reloaded_at"`
}

type MessagesResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}
