package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"redditfrost/internal/ai"
	"redditfrost/internal/config"
	"redditfrost/internal/hunt"
	"redditfrost/internal/model"
	"redditfrost/internal/ratelimit"
	"redditfrost/internal/reddit"
	"redditfrost/internal/redisclient"
	"redditfrost/internal/sourcing"
	"redditfrost/internal/storage"

	"github.com/redis/go-redis/v9"
)

// newService wires the hunt service from configuration. Missing OpenAI or Reddit
// credentials leave the matching capability unset; the service reports that as a
// configuration error when a cycle or post needs it.
func newService(cfg *config.Config, rdb *redis.Client) (*hunt.Service, error) {
	lim, err := ratelimit.FromConfig(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	seed := cfg.Hunt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rc := reddit.NewClient(reddit.Config{
		BaseURL:           cfg.Reddit.BaseURL,
		OAuthBaseURL:      cfg.Reddit.OAuthBaseURL,
		AccessToken:       cfg.Reddit.AccessToken,
		UserAgent:         cfg.Reddit.UserAgent,
		RequestsPerMinute: cfg.Reddit.RequestsPerMinute,
		Timeout:           config.Duration(cfg.Reddit.Timeout),
	})

	var (
		scorer  hunt.Scorer
		drafter hunt.Drafter
		writer  hunt.Writer
	)
	if cfg.OpenAI.APIKey != "" {
		gen, err := ai.NewOpenAI(ai.Config{APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL})
		if err != nil {
			return nil, err
		}
		scorer = ai.NewScorer(gen, cfg.OpenAI.ScoreModel, slog.Default())
		drafter = ai.NewReplier(gen, cfg.OpenAI.Model, rand.New(rand.NewSource(seed)))
	} else {
		slog.Warn("app: openai.api_key is not set, hunt cycles will fail until it is configured")
	}
	if rc.Authenticated() {
		writer = rc
	}

	pageSize := cfg.Reddit.PageSize
	return hunt.New(hunt.Deps{
		Store:   storage.NewRedisStore(rdb),
		Catalog: cfg,
		Limiter: lim,
		Scorer:  scorer,
		Drafter: drafter,
		Streams: func(mode model.HuntMode, p model.Persona) (sourcing.Stream, error) {
			return sourcing.New(mode, p, rc, pageSize, slog.Default())
		},
		Writer: writer,
		Logger: slog.Default(),
		Rand:   rand.New(rand.NewSource(seed + 1)),
	}, hunt.OptionsFromConfig(cfg.Hunt)), nil
}

// withService opens Redis, builds the service and runs fn with it.
func withService(fn func(ctx context.Context, svc *hunt.Service, cfg *config.Config) error) error {
	cfg := GetConfig()
	rdb := redisclient.New(cfg.Redis)
	defer rdb.Close()

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisclient.Ping(pingCtx, rdb); err != nil {
		return err
	}
	svc, err := newService(&cfg, rdb)
	if err != nil {
		return err
	}
	return fn(ctx, svc, &cfg)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
