package ratelimit

import (
	"math/rand"
	"testing"
	"time"

	"redditfrost/internal/config"
	"redditfrost/internal/model"
)

func testLimiter() Limiter {
	return Limiter{StartCap: 2, MaxCap: 20, MinDelay: 240 * time.Second, MaxDelay: 600 * time.Second, Location: time.UTC}
}

func TestRolloverFreshCampaign(t *testing.T) {
	l := testLimiter()
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	c, changed := l.Rollover(model.Campaign{ID: "c1"}, now)
	if !changed {
		t.Fatal("fresh campaign should be initialized")
	}
	if c.DailyPostCap != 2 || c.CurrentDailyCount != 0 {
		t.Fatalf("got cap=%d count=%d, want 2/0", c.DailyPostCap, c.CurrentDailyCount)
	}
	if !c.LastPostDate.Equal(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last post date = %v", c.LastPostDate)
	}
}

func TestRolloverNextDayRaisesCap(t *testing.T) {
	l := testLimiter()
	day1 := time.Date(2026, 5, 10, 23, 59, 0, 0, time.UTC)
	c := model.Campaign{DailyPostCap: 2, CurrentDailyCount: 2, LastPostDate: l.Day(day1)}

	if _, ok := l.CanPost(c, day1); ok {
		t.Fatal("cap reached on day 1, CanPost should be false")
	}
	c, ok := l.CanPost(c, day1.Add(2*time.Minute))
	if !ok {
		t.Fatal("new day should allow posting")
	}
	if c.DailyPostCap != 3 || c.CurrentDailyCount != 0 {
		t.Fatalf("got cap=%d count=%d, want 3/0", c.DailyPostCap, c.CurrentDailyCount)
	}
}

func TestRolloverSameDayIsNoop(t *testing.T) {
	l := testLimiter()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	c := model.Campaign{DailyPostCap: 5, CurrentDailyCount: 1, LastPostDate: l.Day(now)}
	got, changed := l.Rollover(c, now.Add(10*time.Hour))
	if changed || got != c {
		t.Fatalf("same-day rollover changed state: %+v", got)
	}
}

func TestRolloverFutureDateDoesNotReset(t *testing.T) {
	l := testLimiter()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	c := model.Campaign{DailyPostCap: 5, CurrentDailyCount: 5, LastPostDate: l.Day(now.AddDate(0, 0, 1))}
	if _, ok := l.CanPost(c, now); ok {
		t.Fatal("clock skew must not reset the count")
	}
}

func TestCapNeverExceedsMax(t *testing.T) {
	l := testLimiter()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	c := model.Campaign{DailyPostCap: 19, LastPostDate: l.Day(now)}
	for i := 1; i <= 5; i++ {
		c = l.RecordPost(c, now.AddDate(0, 0, i))
	}
	if c.DailyPostCap != 20 {
		t.Fatalf("cap = %d, want 20", c.DailyPostCap)
	}
	if c.CurrentDailyCount != 1 {
		t.Errorf("count = %d, want 1", c.CurrentDailyCount)
	}
}

func TestRecordPostAndRemaining(t *testing.T) {
	l := testLimiter()
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	c, _ := l.Rollover(model.Campaign{}, now)
	c = l.RecordPost(c, now)
	if got := l.Remaining(c, now); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}
	c = l.RecordPost(c, now)
	if got := l.Remaining(c, now); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
}

func TestDayBoundaryUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	l := testLimiter()
	l.Location = tokyo
	// 14:00 UTC on the 10th is already the 11th in JST.
	last := time.Date(2026, 5, 10, 1, 0, 0, 0, time.UTC)
	c := model.Campaign{DailyPostCap: 2, CurrentDailyCount: 2, LastPostDate: l.Day(last)}
	if _, ok := l.CanPost(c, time.Date(2026, 5, 10, 16, 0, 0, 0, time.UTC)); !ok {
		t.Fatal("expected rollover across JST midnight")
	}
}

func TestNextDelayWithinBounds(t *testing.T) {
	l := testLimiter()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		d := l.NextDelay(rng)
		if d < l.MinDelay || d > l.MaxDelay {
			t.Fatalf("delay %s out of [%s,%s]", d, l.MinDelay, l.MaxDelay)
		}
	}
	l.MaxDelay = l.MinDelay
	if d := l.NextDelay(rng); d != l.MinDelay {
		t.Errorf("degenerate range delay = %s", d)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Config{}
	cfg.FillDefaults()
	l, err := FromConfig(cfg.RateLimit)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if l.MinDelay != 240*time.Second || l.MaxDelay != 600*time.Second {
		t.Errorf("unexpected delays: %s %s", l.MinDelay, l.MaxDelay)
	}
}
