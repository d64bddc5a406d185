package model

import "time"

// StopReason explains why a hunt cycle ended.
type StopReason string

const (
	StopDesiredReached StopReason = "desired_reached"
	StopMaxScored      StopReason = "max_scored"
	StopMaxIterations  StopReason = "max_iterations"
	StopExhausted      StopReason = "exhausted"
	StopDeadline       StopReason = "deadline"
	StopNotActive      StopReason = "not_active"
	StopCapReached     StopReason = "cap_reached"
)

// RunStatus is the coarse outcome of a cycle.
type RunStatus string

const (
	RunCompleted  RunStatus = "completed"
	RunNotActive  RunStatus = "not_active"
	RunCapReached RunStatus = "cap_reached"
	RunFailed     RunStatus = "failed"
)

// RunSummary records what one hunt cycle did.
type RunSummary struct {
	RunID              string     `json:"run_id"`
	CampaignID         string     `json:"campaign_id"`
	PersonaID          string     `json:"persona_id"`
	HuntMode           HuntMode   `json:"hunt_mode"`
	Status             RunStatus  `json:"status"`
	StopReason         StopReason `json:"stop_reason,omitempty"`
	Error              string     `json:"error,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         time.Time  `json:"finished_at"`
	Pages              int        `json:"pages"`
	FetchFailures      int        `json:"fetch_failures"`
	Seen               int        `json:"seen"`
	Stale              int        `json:"stale"`
	Duplicates         int        `json:"duplicates"`
	Excluded           int        `json:"excluded"`
	Eligible           int        `json:"eligible"`
	Scored             int        `json:"scored"`
	Accepted           int        `json:"accepted"`
	Rejected           int        `json:"rejected"`
	Drafted            int        `json:"drafted"`
	GenerationFailures int        `json:"generation_failures"`
	TokensSpent        int        `json:"tokens_spent"`
	DraftedSourceIDs   []string   `json:"drafted_source_ids,omitempty"`
}

// Duration is the wall time of the cycle.
func (r RunSummary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
