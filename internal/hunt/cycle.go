package hunt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"redditfrost/internal/dedup"
	"redditfrost/internal/model"
	"redditfrost/internal/sourcing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var errAlreadyHandled = errors.New("hunt: item already handled")

// TriggerCycle runs one bounded hunt for the campaign. Partial failures are
// counted in the summary; only preconditions that need operator action are
// returned as errors (wrapping ErrConfig or ErrCampaignNotFound). Inactive
// campaigns and an exhausted cap are normal outcomes reported via Status.
func (s *Service) TriggerCycle(ctx context.Context, campaignID string) (model.RunSummary, error) {
	sum := model.RunSummary{
		RunID:      uuid.NewString(),
		CampaignID: campaignID,
		StartedAt:  s.now(),
	}
	sum, err := s.runCycle(ctx, sum)
	sum.FinishedAt = s.now()
	if err != nil {
		sum.Status = model.RunFailed
		sum.Error = err.Error()
	}
	// history is written with a fresh context so a cycle cut by its deadline is still recorded
	histCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if herr := s.store.AppendRun(histCtx, sum); herr != nil {
		s.log.Warn("hunt: failed to record run", "campaign", campaignID, "error", herr)
	}
	s.log.Info("hunt: cycle finished",
		"campaign", campaignID, "run", sum.RunID, "status", sum.Status, "stop", sum.StopReason,
		"pages", sum.Pages, "seen", sum.Seen, "eligible", sum.Eligible, "scored", sum.Scored,
		"accepted", sum.Accepted, "drafted", sum.Drafted, "gen_failures", sum.GenerationFailures,
		"tokens", sum.TokensSpent, "took", sum.Duration())
	return sum, err
}

func (s *Service) runCycle(ctx context.Context, sum model.RunSummary) (model.RunSummary, error) {
	camp, err := s.Campaign(ctx, sum.CampaignID)
	if err != nil {
		return sum, err
	}
	sum.PersonaID = camp.PersonaID
	sum.HuntMode = camp.HuntMode

	if !camp.IsActive {
		sum.Status = model.RunNotActive
		sum.StopReason = model.StopNotActive
		return sum, nil
	}

	now := s.now()
	camp, err = s.store.UpdateCampaign(ctx, camp.ID, func(c *model.Campaign) error {
		if next, changed := s.limiter.Rollover(*c, now); changed {
			next.UpdatedAt = now
			*c = next
		}
		return nil
	})
	if err != nil {
		return sum, fmt.Errorf("persist rollover: %w", err)
	}
	if _, ok := s.limiter.CanPost(camp, now); !ok {
		sum.Status = model.RunCapReached
		sum.StopReason = model.StopCapReached
		return sum, nil
	}

	persona, err := s.persona(camp.PersonaID)
	if err != nil {
		return sum, err
	}
	if err := s.validate(persona); err != nil {
		return sum, err
	}
	stream, err := s.streams(camp.HuntMode, persona)
	if err != nil {
		return sum, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	sum.Status = model.RunCompleted
	sum.StopReason = s.loop(ctx, persona, stream, &sum)
	return sum, nil
}

func (s *Service) validate(p model.Persona) error {
	var missing []string
	if s.scorer == nil || s.drafter == nil {
		missing = append(missing, "text generation credentials")
	}
	if s.streams == nil {
		missing = append(missing, "content source")
	}
	if strings.TrimSpace(p.ProductName) == "" && strings.TrimSpace(p.BrandMission) == "" {
		missing = append(missing, "brand context (product_name or brand_mission)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: persona %s: missing %s", ErrConfig, p.ID, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) loop(ctx context.Context, p model.Persona, stream sourcing.Stream, sum *model.RunSummary) model.StopReason {
	seen := dedup.Seen{}
	for iter := 0; iter < s.opts.MaxIterations; iter++ {
		if ctx.Err() != nil {
			return model.StopDeadline
		}
		batch, err := stream.Next(ctx)
		sum.FetchFailures += batch.Failures
		if errors.Is(err, sourcing.ErrExhausted) {
			return model.StopExhausted
		}
		if err != nil {
			return model.StopDeadline
		}
		if len(batch.Candidates) > 0 {
			sum.Pages++
		}

		eligible := s.filter(ctx, p, batch.Candidates, seen, sum)
		if left := s.opts.MaxScored - sum.Scored; len(eligible) > left {
			eligible = eligible[:left]
		}
		sum.Eligible += len(eligible)

		// Score in chunks no larger than the drafts still wanted, so reaching the
		// desired count never leaves paid-for scores unused.
		for len(eligible) > 0 {
			n := min(len(eligible), s.opts.ScoreConcurrency, s.opts.DesiredAccepted-sum.Drafted)
			scored := s.scoreAll(ctx, p, eligible[:n])
			eligible = eligible[n:]
			for _, sc := range scored {
				sum.Scored++
				sum.TokensSpent += sc.TokensUsed
			}
			if ctx.Err() != nil {
				return model.StopDeadline
			}
			if stop, done := s.handleScored(ctx, p, scored, sum); done {
				return stop
			}
		}
		if sum.Scored >= s.opts.MaxScored {
			return model.StopMaxScored
		}
	}
	return model.StopMaxIterations
}

// handleScored accepts or rejects each scored candidate and drafts the accepted
// ones. done is true when the cycle must stop.
func (s *Service) handleScored(ctx context.Context, p model.Persona, scored []model.ScoredCandidate, sum *model.RunSummary) (model.StopReason, bool) {
	for _, sc := range scored {
		if !sc.Accepted(s.opts.Threshold) {
			sum.Rejected++
			continue
		}
		sum.Accepted++
		tokens, err := s.draft(ctx, p, sc)
		sum.TokensSpent += tokens
		switch {
		case errors.Is(err, errAlreadyHandled):
			sum.Duplicates++
		case err != nil:
			sum.GenerationFailures++
			s.log.Warn("hunt: draft failed", "persona", p.ID, "source_id", sc.Candidate.SourceID, "error", err)
			if ctx.Err() != nil {
				return model.StopDeadline, true
			}
		default:
			sum.Drafted++
			sum.DraftedSourceIDs = append(sum.DraftedSourceIDs, sc.Candidate.SourceID)
			if sum.Drafted >= s.opts.DesiredAccepted {
				return model.StopDesiredReached, true
			}
		}
	}
	return "", false
}

// filter keeps candidates that are fresh, new to this cycle, and eligible per
// the persona's recorded disposition. It runs before any scoring call.
func (s *Service) filter(ctx context.Context, p model.Persona, cands []model.Candidate, seen dedup.Seen, sum *model.RunSummary) []model.Candidate {
	now := s.now()
	fresh := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		sum.Seen++
		c.SourceID = model.NormalizeSourceID(c.SourceID)
		if c.Fingerprint == "" {
			c.Fingerprint = dedup.Fingerprint(c.SourceID)
		}
		if IsStale(c, now, s.opts.StaleAfter) {
			sum.Stale++
			continue
		}
		if !seen.Add(c.Fingerprint) {
			sum.Duplicates++
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil
	}

	ids := make([]string, len(fresh))
	for i, c := range fresh {
		ids[i] = c.SourceID
	}
	disp, err := s.registry.Dispositions(ctx, p.ID, ids)
	if err != nil {
		s.log.Warn("hunt: disposition lookup failed, skipping page", "persona", p.ID, "error", err)
		sum.Excluded += len(fresh)
		return nil
	}

	out := fresh[:0]
	for _, c := range fresh {
		var dp *model.Disposition
		if d, ok := disp[c.SourceID]; ok {
			dp = &d
		}
		if !dedup.Eligible(dp, now) {
			sum.Excluded++
			continue
		}
		if dp == nil && s.opts.CrossPersonaDedup {
			other, err := s.touchedByOtherPersona(ctx, p.ID, c.Fingerprint)
			if err != nil {
				s.log.Warn("hunt: fingerprint lookup failed", "source_id", c.SourceID, "error", err)
			}
			if other || err != nil {
				sum.Excluded++
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func (s *Service) touchedByOtherPersona(ctx context.Context, persona, fp string) (bool, error) {
	known, err := s.registry.Exists(ctx, fp)
	if err != nil || !known {
		return false, err
	}
	mine, err := s.registry.ExistsForPersona(ctx, persona, fp)
	if err != nil {
		return false, err
	}
	return !mine, nil
}

// IsStale reports low-visibility posts: older than maxAge with no replies.
func IsStale(c model.Candidate, now time.Time, maxAge time.Duration) bool {
	return c.AgeSeconds(now) > maxAge.Seconds() && c.ReplyCount == 0
}

// scoreAll runs stage 1 with bounded concurrency and returns results in input order.
func (s *Service) scoreAll(ctx context.Context, p model.Persona, cands []model.Candidate) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, len(cands))
	var g errgroup.Group
	g.SetLimit(s.opts.ScoreConcurrency)
	for i, c := range cands {
		i, c := i, c
		g.Go(func() error {
			out[i] = s.scorer.Score(ctx, c, p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// draft runs stage 2 and persists the drafted item with its fingerprint. Nothing
// is written when generation fails.
func (s *Service) draft(ctx context.Context, p model.Persona, sc model.ScoredCandidate) (int, error) {
	reply, err := s.drafter.Draft(ctx, sc, p)
	if err != nil {
		return reply.Tokens, err
	}
	c := sc.Candidate
	now := s.now()
	_, err = s.store.UpdateItem(ctx, p.ID, c.SourceID, func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error) {
		if exists {
			d := cur.Disposition()
			if !dedup.Eligible(&d, now) {
				return cur, errAlreadyHandled
			}
		}
		created := now
		if exists && !cur.CreatedAt.IsZero() {
			created = cur.CreatedAt
		}
		return model.ProcessedItem{
			PersonaID:      p.ID,
			SourceID:       c.SourceID,
			Fingerprint:    c.Fingerprint,
			Community:      c.Community,
			URL:            c.URL,
			Title:          c.Title,
			Body:           c.Body,
			State:          model.StateDrafted,
			GeneratedReply: reply.Text,
			RelevanceScore: sc.RelevanceScore,
			Reasoning:      sc.Reasoning,
			TokensSpent:    sc.TokensUsed + reply.Tokens,
			CreatedAt:      created,
			UpdatedAt:      now,
		}, nil
	})
	if err != nil {
		return reply.Tokens, err
	}
	if err := s.registry.Record(ctx, p.ID, c.Fingerprint); err != nil {
		s.log.Warn("hunt: failed to record fingerprint", "source_id", c.SourceID, "error", err)
	}
	s.log.Info("hunt: drafted reply", "persona", p.ID, "source_id", c.SourceID, "community", c.Community, "score", sc.RelevanceScore, "style", reply.Style)
	return reply.Tokens, nil
}
