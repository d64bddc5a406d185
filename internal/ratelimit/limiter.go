// Package ratelimit implements the per-campaign daily posting cap with a
// warm-up schedule, plus the randomized delay between consecutive writes.
package ratelimit

import (
	"fmt"
	"math/rand"
	"time"

	"redditfrost/internal/config"
	"redditfrost/internal/model"
)

// Limiter is pure: it takes and returns campaign state, persistence is the caller's job.
type Limiter struct {
	StartCap int
	MaxCap   int
	MinDelay time.Duration
	MaxDelay time.Duration
	Location *time.Location
}

// FromConfig builds a Limiter from validated configuration.
func FromConfig(cfg config.RateLimitConfig) (Limiter, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Limiter{}, fmt.Errorf("rate limit timezone: %w", err)
	}
	return Limiter{
		StartCap: cfg.StartCap,
		MaxCap:   cfg.MaxCap,
		MinDelay: config.Duration(cfg.MinDelay),
		MaxDelay: config.Duration(cfg.MaxDelay),
		Location: loc,
	}, nil
}

func (l Limiter) loc() *time.Location {
	if l.Location == nil {
		return time.UTC
	}
	return l.Location
}

// Day truncates t to midnight of its calendar day in the limiter's timezone.
func (l Limiter) Day(t time.Time) time.Time {
	loc := l.loc()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Rollover resets the daily count when a new calendar day started since the last
// post and raises the cap by one, up to MaxCap. The cap grows by one per rollover
// no matter how many days elapsed. A campaign that never posted is initialized.
// changed reports whether c was modified.
func (l Limiter) Rollover(c model.Campaign, now time.Time) (model.Campaign, bool) {
	today := l.Day(now)
	if c.LastPostDate.IsZero() {
		if c.DailyPostCap <= 0 {
			c.DailyPostCap = l.StartCap
		}
		c.CurrentDailyCount = 0
		c.LastPostDate = today
		return c, true
	}
	if !today.After(l.Day(c.LastPostDate)) {
		return c, false
	}
	c.CurrentDailyCount = 0
	c.LastPostDate = today
	if c.DailyPostCap < l.MaxCap {
		c.DailyPostCap++
	}
	if c.DailyPostCap > l.MaxCap {
		c.DailyPostCap = l.MaxCap
	}
	return c, true
}

// CanPost applies rollover and reports whether one more post fits today's cap.
func (l Limiter) CanPost(c model.Campaign, now time.Time) (model.Campaign, bool) {
	c, _ = l.Rollover(c, now)
	return c, c.CurrentDailyCount < c.DailyPostCap
}

// RecordPost counts one successful write.
func (l Limiter) RecordPost(c model.Campaign, now time.Time) model.Campaign {
	c, _ = l.Rollover(c, now)
	c.CurrentDailyCount++
	c.LastPostDate = l.Day(now)
	return c
}

// Remaining is the number of posts still allowed today.
func (l Limiter) Remaining(c model.Campaign, now time.Time) int {
	c, _ = l.Rollover(c, now)
	if r := c.DailyPostCap - c.CurrentDailyCount; r > 0 {
		return r
	}
	return 0
}

// NextDelay returns a uniformly random wait in [MinDelay, MaxDelay].
func (l Limiter) NextDelay(rng *rand.Rand) time.Duration {
	span := l.MaxDelay - l.MinDelay
	if span <= 0 {
		return l.MinDelay
	}
	return l.MinDelay + time.Duration(rng.Int63n(int64(span)+1))
}
