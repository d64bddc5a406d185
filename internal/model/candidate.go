package model

import (
	"strings"
	"time"
)

// Candidate is a freshly fetched, not yet evaluated post from the content source.
type Candidate struct {
	SourceID        string    `json:"source_id"`
	Community       string    `json:"community"`
	Title           string    `json:"title"`
	Body            string    `json:"body"`
	URL             string    `json:"url"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
	ReplyCount      int       `json:"reply_count"`
	PopularityScore int       `json:"popularity_score"`
	// Fingerprint is derived from SourceID once at normalization time.
	Fingerprint string `json:"fingerprint"`
}

// NormalizeSourceID maps a post id or its "t3_" fullname to the bare lowercase id.
// Every key, lookup and fingerprint uses this form.
func NormalizeSourceID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.TrimPrefix(id, "t3_")
}

// AgeSeconds returns the candidate age relative to now. Future timestamps count as zero.
func (c Candidate) AgeSeconds(now time.Time) float64 {
	if c.CreatedAt.IsZero() {
		return 0
	}
	d := now.Sub(c.CreatedAt).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// ScoredCandidate decorates a candidate with the stage-1 relevance verdict.
type ScoredCandidate struct {
	Candidate      Candidate
	RelevanceScore float64
	Reasoning      string
	TokensUsed     int
}

// Accepted reports whether the score clears the threshold (inclusive).
func (s ScoredCandidate) Accepted(threshold float64) bool {
	return s.RelevanceScore >= threshold
}
