package model

import (
	"fmt"
	"strings"
	"time"
)

// HuntMode selects the sourcing strategy of a campaign.
type HuntMode string

const (
	HuntGlobal   HuntMode = "global"
	HuntTargeted HuntMode = "targeted"
)

// ParseHuntMode accepts "subreddit" as an alias of targeted.
func ParseHuntMode(s string) (HuntMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global":
		return HuntGlobal, nil
	case "targeted", "subreddit", "":
		return HuntTargeted, nil
	}
	return "", fmt.Errorf("unknown hunt mode %q", s)
}

// Campaign is one persona's active hunt configuration plus persisted limiter state.
type Campaign struct {
	ID                string    `json:"id"`
	PersonaID         string    `json:"persona_id"`
	HuntMode          HuntMode  `json:"hunt_mode"`
	IsActive          bool      `json:"is_active"`
	DailyPostCap      int       `json:"daily_post_cap"`
	CurrentDailyCount int       `json:"current_daily_count"`
	LastPostDate      time.Time `json:"last_post_date"`
	UpdatedAt         time.Time `json:"updated_at"`
}
