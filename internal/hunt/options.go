package hunt

import (
	"time"

	"redditfrost/internal/config"
)

// Options tunes a cycle.
type Options struct {
	Threshold         float64
	DesiredAccepted   int
	MaxScored         int
	MaxIterations     int
	StaleAfter        time.Duration
	SkipDuration      time.Duration
	ScoreConcurrency  int
	CrossPersonaDedup bool
}

// OptionsFromConfig converts validated configuration.
func OptionsFromConfig(h config.HuntConfig) Options {
	return Options{
		Threshold:         h.Threshold,
		DesiredAccepted:   h.DesiredAccepted,
		MaxScored:         h.MaxScored,
		MaxIterations:     h.MaxIterations,
		StaleAfter:        config.Duration(h.StaleAfter),
		SkipDuration:      config.Duration(h.SkipDuration),
		ScoreConcurrency:  h.ScoreConcurrency,
		CrossPersonaDedup: h.CrossPersonaDedup,
	}
}

func (o Options) withDefaults() Options {
	if o.DesiredAccepted <= 0 {
		o.DesiredAccepted = 5
	}
	if o.MaxScored <= 0 {
		o.MaxScored = 10
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 10
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 48 * time.Hour
	}
	if o.SkipDuration <= 0 {
		o.SkipDuration = 14 * 24 * time.Hour
	}
	if o.ScoreConcurrency <= 0 {
		o.ScoreConcurrency = 1
	}
	return o
}
