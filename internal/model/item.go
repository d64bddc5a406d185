package model

import (
	"fmt"
	"strings"
	"time"
)

// State is the disposition of a processed item for one persona.
type State string

const (
	StateDrafted State = "drafted"
	StateDone    State = "done"
	StateDeleted State = "deleted"
	StateSkip    State = "skip"
)

// ParseState validates a state string against the closed set.
func ParseState(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StateDrafted, StateDone, StateDeleted, StateSkip:
		return st, nil
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// Terminal reports whether the item can never become eligible again.
func (s State) Terminal() bool {
	return s == StateDone || s == StateDeleted
}

// ProcessedItem is the durable record of a candidate's disposition, keyed by (PersonaID, SourceID).
type ProcessedItem struct {
	PersonaID       string     `json:"persona_id"`
	SourceID        string     `json:"source_id"`
	Fingerprint     string     `json:"fingerprint"`
	Community       string     `json:"community"`
	URL             string     `json:"url"`
	Title           string     `json:"title,omitempty"`
	Body            string     `json:"body,omitempty"`
	State           State      `json:"state"`
	SkipExpiresAt   *time.Time `json:"skip_expires_at,omitempty"`
	GeneratedReply  string     `json:"generated_reply,omitempty"`
	RelevanceScore  float64    `json:"relevance_score"`
	Reasoning       string     `json:"reasoning,omitempty"`
	TokensSpent     int        `json:"tokens_spent,omitempty"`
	PostedCommentID string     `json:"posted_comment_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Disposition is the subset of a ProcessedItem consulted by the dedup filter.
type Disposition struct {
	State         State
	SkipExpiresAt *time.Time
}

// Disposition extracts the dedup-relevant fields.
func (p ProcessedItem) Disposition() Disposition {
	return Disposition{State: p.State, SkipExpiresAt: p.SkipExpiresAt}
}
