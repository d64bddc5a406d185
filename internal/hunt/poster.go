package hunt

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"redditfrost/internal/model"
	"redditfrost/internal/reddit"
)

// Post publishes a drafted reply. The cap is checked before the write and the
// post is counted only after the write succeeded.
func (s *Service) Post(ctx context.Context, campaignID, sourceID string) (model.ProcessedItem, error) {
	if s.writer == nil {
		return model.ProcessedItem{}, fmt.Errorf("%w: posting is not configured", ErrConfig)
	}
	sourceID = model.NormalizeSourceID(sourceID)
	camp, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return model.ProcessedItem{}, err
	}
	item, err := s.store.GetItem(ctx, camp.PersonaID, sourceID)
	if err != nil {
		return item, err
	}
	if item.State != model.StateDrafted || item.GeneratedReply == "" {
		return item, fmt.Errorf("%w: %s is %s", ErrNotDrafted, sourceID, item.State)
	}

	now := s.now()
	if _, err := s.store.UpdateCampaign(ctx, camp.ID, func(c *model.Campaign) error {
		next, ok := s.limiter.CanPost(*c, now)
		if !ok {
			return ErrCapReached
		}
		*c = next
		return nil
	}); err != nil {
		return item, err
	}

	commentID, err := s.writer.SubmitComment(ctx, sourceID, item.GeneratedReply)
	if err != nil {
		return item, fmt.Errorf("submit reply for %s: %w", sourceID, err)
	}

	now = s.now()
	if _, err := s.store.UpdateCampaign(ctx, camp.ID, func(c *model.Campaign) error {
		*c = s.limiter.RecordPost(*c, now)
		c.UpdatedAt = now
		return nil
	}); err != nil {
		s.log.Error("hunt: posted but failed to count post", "campaign", camp.ID, "source_id", sourceID, "error", err)
	}
	posted, err := s.store.UpdateItem(ctx, camp.PersonaID, sourceID, func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error) {
		cur.State = model.StateDone
		cur.SkipExpiresAt = nil
		cur.PostedCommentID = commentID
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return item, fmt.Errorf("mark %s posted: %w", sourceID, err)
	}
	s.log.Info("hunt: reply posted", "campaign", camp.ID, "source_id", sourceID, "comment", commentID)
	return posted, nil
}

// PostReport summarizes a PostDrafts run.
type PostReport struct {
	Posted  []string `json:"posted"`
	Failed  []string `json:"failed,omitempty"`
	Stopped string   `json:"stopped,omitempty"`
}

// PostDrafts posts pending drafts oldest first, waiting a jittered delay between
// writes, until limit posts, the daily cap, or the drafts run out.
func (s *Service) PostDrafts(ctx context.Context, campaignID string, limit int) (PostReport, error) {
	var rep PostReport
	camp, err := s.Campaign(ctx, campaignID)
	if err != nil {
		return rep, err
	}
	drafts, err := s.store.ListItems(ctx, camp.PersonaID, model.StateDrafted)
	if err != nil {
		return rep, err
	}
	sort.SliceStable(drafts, func(i, j int) bool { return drafts[i].CreatedAt.Before(drafts[j].CreatedAt) })

	for _, d := range drafts {
		if limit > 0 && len(rep.Posted) >= limit {
			rep.Stopped = "max reached"
			break
		}
		if len(rep.Posted)+len(rep.Failed) > 0 {
			delay := s.nextDelay()
			s.log.Info("hunt: waiting before next post", "campaign", camp.ID, "delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				rep.Stopped = "canceled"
				return rep, err
			}
		}
		_, err := s.Post(ctx, camp.ID, d.SourceID)
		switch {
		case err == nil:
			rep.Posted = append(rep.Posted, d.SourceID)
		case errors.Is(err, ErrCapReached):
			rep.Stopped = "cap reached"
			return rep, nil
		case errors.Is(err, reddit.ErrNotAuthenticated):
			rep.Stopped = "not authenticated"
			return rep, err
		case errors.Is(err, ErrConfig):
			rep.Stopped = "not configured"
			return rep, err
		case ctx.Err() != nil:
			rep.Stopped = "canceled"
			return rep, ctx.Err()
		default:
			s.log.Warn("hunt: post failed", "campaign", camp.ID, "source_id", d.SourceID, "error", err)
			rep.Failed = append(rep.Failed, d.SourceID)
		}
	}
	return rep, nil
}
