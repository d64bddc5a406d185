package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"redditfrost/internal/hunt"
	"redditfrost/internal/model"
)

// Cycler is the part of *hunt.Service a scheduled campaign needs.
type Cycler interface {
	TriggerCycle(ctx context.Context, campaignID string) (model.RunSummary, error)
	PostDrafts(ctx context.Context, campaignID string, limit int) (hunt.PostReport, error)
}

// HuntWorker triggers hunt cycles for one campaign on a fixed interval and,
// when AutoPost is set, publishes pending drafts after each cycle.
type HuntWorker struct {
	Service      Cycler
	CampaignID   string
	Interval     time.Duration
	CycleTimeout time.Duration
	AutoPost     bool
	// PostLimit caps drafts published per tick; 0 means up to the daily cap.
	PostLimit int
}

func (w *HuntWorker) Start(ctx context.Context) error {
	if w.Interval <= 0 {
		w.Interval = 30 * time.Minute
	}
	if w.CycleTimeout <= 0 {
		w.CycleTimeout = 5 * time.Minute
	}

	// initial run
	w.runOnce(ctx)

	t := time.NewTicker(w.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *HuntWorker) runOnce(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, w.CycleTimeout)
	sum, err := w.Service.TriggerCycle(cctx, w.CampaignID)
	cancel()
	if err != nil {
		if errors.Is(err, hunt.ErrCampaignNotFound) || errors.Is(err, hunt.ErrConfig) {
			slog.Error("hunt-worker: campaign needs attention", "campaign", w.CampaignID, "error", err)
		} else {
			slog.Warn("hunt-worker: cycle failed", "campaign", w.CampaignID, "error", err)
		}
		return
	}
	if !w.AutoPost || sum.Status != model.RunCompleted || ctx.Err() != nil {
		return
	}
	rep, err := w.Service.PostDrafts(ctx, w.CampaignID, w.PostLimit)
	if err != nil {
		slog.Warn("hunt-worker: posting drafts failed", "campaign", w.CampaignID, "error", err)
		return
	}
	slog.Info("hunt-worker: posted drafts", "campaign", w.CampaignID, "posted", len(rep.Posted), "failed", len(rep.Failed), "stopped", rep.Stopped)
}
