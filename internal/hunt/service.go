// Package hunt runs hunt cycles and applies operator actions to campaigns and items.
package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"redditfrost/internal/ai"
	"redditfrost/internal/config"
	"redditfrost/internal/dedup"
	"redditfrost/internal/model"
	"redditfrost/internal/ratelimit"
	"redditfrost/internal/sourcing"
	"redditfrost/internal/storage"
)

// Store is the persistence the service needs; *storage.RedisStore implements it.
type Store interface {
	dedup.Store
	GetItem(ctx context.Context, persona, sourceID string) (model.ProcessedItem, error)
	UpdateItem(ctx context.Context, persona, sourceID string, fn func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error)) (model.ProcessedItem, error)
	ListItems(ctx context.Context, persona string, states ...model.State) ([]model.ProcessedItem, error)
	GetCampaign(ctx context.Context, id string) (model.Campaign, error)
	CreateCampaign(ctx context.Context, c model.Campaign) (bool, error)
	UpdateCampaign(ctx context.Context, id string, fn func(c *model.Campaign) error) (model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
	AppendRun(ctx context.Context, run model.RunSummary) error
	ListRuns(ctx context.Context, campaignID string, n int) ([]model.RunSummary, error)
}

// Catalog resolves configured personas and campaign seeds; *config.Config implements it.
type Catalog interface {
	Persona(id string) (model.Persona, bool)
	Campaign(id string) (config.CampaignConfig, bool)
}

// Scorer is pipeline stage 1.
type Scorer interface {
	Score(ctx context.Context, c model.Candidate, p model.Persona) model.ScoredCandidate
}

// Drafter is pipeline stage 2.
type Drafter interface {
	Draft(ctx context.Context, sc model.ScoredCandidate, p model.Persona) (ai.Reply, error)
}

// Writer publishes a reply on the platform.
type Writer interface {
	SubmitComment(ctx context.Context, sourceID, text string) (string, error)
}

// StreamFactory opens a fresh candidate stream for one cycle.
type StreamFactory func(mode model.HuntMode, p model.Persona) (sourcing.Stream, error)

// Deps bundles collaborators. Writer may be nil when posting is not configured.
type Deps struct {
	Store   Store
	Catalog Catalog
	Limiter ratelimit.Limiter
	Scorer  Scorer
	Drafter Drafter
	Streams StreamFactory
	Writer  Writer
	Logger  *slog.Logger
	// Rand drives write jitter; seeded from the clock when nil.
	Rand *rand.Rand
	// Now and Sleep are overridable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Service orchestrates hunts for all campaigns. Campaigns share no mutable
// state besides their own persisted records.
type Service struct {
	store    Store
	catalog  Catalog
	registry *dedup.Registry
	limiter  ratelimit.Limiter
	scorer   Scorer
	drafter  Drafter
	streams  StreamFactory
	writer   Writer
	opts     Options
	log      *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(d Deps, opts Options) *Service {
	s := &Service{
		store:    d.Store,
		catalog:  d.Catalog,
		registry: dedup.NewRegistry(d.Store),
		limiter:  d.Limiter,
		scorer:   d.Scorer,
		drafter:  d.Drafter,
		streams:  d.Streams,
		writer:   d.Writer,
		opts:     opts.withDefaults(),
		log:      d.Logger,
		now:      d.Now,
		sleep:    d.Sleep,
		rng:      d.Rand,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = sleepCtx
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) nextDelay() time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.limiter.NextDelay(s.rng)
}

// Campaign loads a campaign, seeding it from configuration on first use.
func (s *Service) Campaign(ctx context.Context, id string) (model.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return c, err
	}
	seed, ok := s.catalog.Campaign(id)
	if !ok {
		return c, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	mode, err := model.ParseHuntMode(seed.HuntMode)
	if err != nil {
		return c, fmt.Errorf("%w: campaign %s: %v", ErrConfig, id, err)
	}
	c = model.Campaign{
		ID:        seed.ID,
		PersonaID: seed.Persona,
		HuntMode:  mode,
		IsActive:  seed.Active,
		UpdatedAt: s.now(),
	}
	created, err := s.store.CreateCampaign(ctx, c)
	if err != nil {
		return c, err
	}
	if !created {
		return s.store.GetCampaign(ctx, id)
	}
	s.log.Info("hunt: campaign seeded from config", "campaign", id, "persona", c.PersonaID, "mode", c.HuntMode)
	return c, nil
}

// Campaigns returns all stored campaigns.
func (s *Service) Campaigns(ctx context.Context) ([]model.Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

// StartCampaign sets isActive.
func (s *Service) StartCampaign(ctx context.Context, id string) (model.Campaign, error) {
	return s.setActive(ctx, id, true)
}

// StopCampaign clears isActive. A running cycle finishes normally.
func (s *Service) StopCampaign(ctx context.Context, id string) (model.Campaign, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id string, active bool) (model.Campaign, error) {
	if _, err := s.Campaign(ctx, id); err != nil {
		return model.Campaign{}, err
	}
	c, err := s.store.UpdateCampaign(ctx, id, func(c *model.Campaign) error {
		c.IsActive = active
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return c, err
	}
	s.log.Info("hunt: campaign toggled", "campaign", id, "active", active)
	return c, nil
}

// CampaignStatus is a campaign with its limiter view as of now.
type CampaignStatus struct {
	Campaign  model.Campaign `json:"campaign"`
	Remaining int            `json:"remaining_today"`
}

// Status reports a campaign with today's remaining posts.
func (s *Service) Status(ctx context.Context, id string) (CampaignStatus, error) {
	c, err := s.Campaign(ctx, id)
	if err != nil {
		return CampaignStatus{}, err
	}
	return CampaignStatus{Campaign: c, Remaining: s.limiter.Remaining(c, s.now())}, nil
}

// Runs returns recent cycle summaries, newest first.
func (s *Service) Runs(ctx context.Context, campaignID string, n int) ([]model.RunSummary, error) {
	return s.store.ListRuns(ctx, campaignID, n)
}

// Items lists a persona's processed items, optionally filtered by state.
func (s *Service) Items(ctx context.Context, personaID string, states ...model.State) ([]model.ProcessedItem, error) {
	return s.store.ListItems(ctx, personaID, states...)
}

func (s *Service) persona(id string) (model.Persona, error) {
	p, ok := s.catalog.Persona(id)
	if !ok {
		return p, fmt.Errorf("%w: unknown persona %q", ErrConfig, id)
	}
	return p, nil
}
