package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"redditfrost/internal/model"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"` // optional JSON log file in addition to stderr
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// OpenAIConfig controls the text-generation capability.
type OpenAIConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`       // reply generation
	ScoreModel string `mapstructure:"score_model"` // relevance scoring, defaults to Model
	BaseURL    string `mapstructure:"base_url"`    // optional, OpenAI-compatible endpoints
}

// RedditConfig controls the content source and write capability.
type RedditConfig struct {
	BaseURL           string `mapstructure:"base_url"`       // anonymous JSON listings
	OAuthBaseURL      string `mapstructure:"oauth_base_url"` // used when an access token is set
	AccessToken       string `mapstructure:"access_token"`
	UserAgent         string `mapstructure:"user_agent"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	PageSize          int    `mapstructure:"page_size"`
	Timeout           string `mapstructure:"timeout"` // duration string, e.g., "15s"
}

// HuntConfig tunes the hunt cycle.
type HuntConfig struct {
	Threshold         float64 `mapstructure:"threshold"`
	DesiredAccepted   int     `mapstructure:"desired_accepted"`
	MaxScored         int     `mapstructure:"max_scored"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	StaleAfter        string  `mapstructure:"stale_after"`   // e.g., "48h"
	SkipDuration      string  `mapstructure:"skip_duration"` // e.g., "336h"
	CycleTimeout      string  `mapstructure:"cycle_timeout"`
	Interval          string  `mapstructure:"interval"` // serve: how often each campaign is triggered
	ScoreConcurrency  int     `mapstructure:"score_concurrency"`
	CrossPersonaDedup bool    `mapstructure:"cross_persona_dedup"`
	AutoPost          bool    `mapstructure:"auto_post"` // serve: post drafts after each cycle
	Seed              int64   `mapstructure:"seed"`      // 0 means time-based
}

// RateLimitConfig controls the warm-up cap schedule and write jitter.
type RateLimitConfig struct {
	StartCap int    `mapstructure:"start_cap"`
	MaxCap   int    `mapstructure:"max_cap"`
	MinDelay string `mapstructure:"min_delay"`
	MaxDelay string `mapstructure:"max_delay"`
	Timezone string `mapstructure:"timezone"` // calendar-day boundary for rollover
}

// APIConfig controls the operator HTTP API.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// CampaignConfig seeds a campaign; runtime state lives in storage.
type CampaignConfig struct {
	ID       string `mapstructure:"id"`
	Persona  string `mapstructure:"persona"`
	HuntMode string `mapstructure:"hunt_mode"` // global | targeted
	Active   bool   `mapstructure:"active"`    // initial state on first seed only
}

// Config is the top-level configuration structure.
type Config struct {
	App          AppConfig        `mapstructure:"app"`
	Redis        RedisConfig      `mapstructure:"redis"`
	OpenAI       OpenAIConfig     `mapstructure:"openai"`
	Reddit       RedditConfig     `mapstructure:"reddit"`
	Hunt         HuntConfig       `mapstructure:"hunt"`
	RateLimit    RateLimitConfig  `mapstructure:"rate_limit"`
	API          APIConfig        `mapstructure:"api"`
	Personas     []model.Persona  `mapstructure:"personas"`
	PersonasFile string           `mapstructure:"personas_file"`
	Campaigns    []CampaignConfig `mapstructure:"campaigns"`
}

// SetDefaults registers defaults that cannot be told apart from zero values after unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("hunt.threshold", 0.7)
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.ScoreModel == "" {
		c.OpenAI.ScoreModel = c.OpenAI.Model
	}
	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = "https://www.reddit.com"
	}
	if c.Reddit.OAuthBaseURL == "" {
		c.Reddit.OAuthBaseURL = "https://oauth.reddit.com"
	}
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "redditfrost/1.0"
	}
	if c.Reddit.RequestsPerMinute == 0 {
		c.Reddit.RequestsPerMinute = 30
	}
	if c.Reddit.PageSize == 0 {
		c.Reddit.PageSize = 25
	}
	if c.Reddit.Timeout == "" {
		c.Reddit.Timeout = "15s"
	}
	if c.Hunt.DesiredAccepted == 0 {
		c.Hunt.DesiredAccepted = 5
	}
	if c.Hunt.MaxScored == 0 {
		c.Hunt.MaxScored = 10
	}
	if c.Hunt.MaxIterations == 0 {
		c.Hunt.MaxIterations = 10
	}
	if c.Hunt.StaleAfter == "" {
		c.Hunt.StaleAfter = "48h"
	}
	if c.Hunt.SkipDuration == "" {
		c.Hunt.SkipDuration = "336h" // 14 days
	}
	if c.Hunt.CycleTimeout == "" {
		c.Hunt.CycleTimeout = "5m"
	}
	if c.Hunt.Interval == "" {
		c.Hunt.Interval = "30m"
	}
	if c.Hunt.ScoreConcurrency == 0 {
		c.Hunt.ScoreConcurrency = 4
	}
	if c.RateLimit.StartCap == 0 {
		c.RateLimit.StartCap = 2
	}
	if c.RateLimit.MaxCap == 0 {
		c.RateLimit.MaxCap = 20
	}
	if c.RateLimit.MinDelay == "" {
		c.RateLimit.MinDelay = "240s"
	}
	if c.RateLimit.MaxDelay == "" {
		c.RateLimit.MaxDelay = "600s"
	}
	if c.RateLimit.Timezone == "" {
		c.RateLimit.Timezone = "UTC"
	}
	if c.API.Addr == "" {
		c.API.Addr = "127.0.0.1:8080"
	}
	for i := range c.Campaigns {
		if c.Campaigns[i].HuntMode == "" {
			c.Campaigns[i].HuntMode = string(model.HuntTargeted)
		}
	}
}

// Validate checks cross-field constraints after defaults were applied.
func (c *Config) Validate() error {
	var errs []error
	if c.Hunt.Threshold < 0 || c.Hunt.Threshold > 1 {
		errs = append(errs, fmt.Errorf("hunt.threshold must be within [0,1], got %v", c.Hunt.Threshold))
	}
	for _, f := range []struct{ name, value string }{
		{"reddit.timeout", c.Reddit.Timeout},
		{"hunt.stale_after", c.Hunt.StaleAfter},
		{"hunt.skip_duration", c.Hunt.SkipDuration},
		{"hunt.cycle_timeout", c.Hunt.CycleTimeout},
		{"hunt.interval", c.Hunt.Interval},
		{"rate_limit.min_delay", c.RateLimit.MinDelay},
		{"rate_limit.max_delay", c.RateLimit.MaxDelay},
	} {
		if _, err := time.ParseDuration(f.value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", f.name, err))
		}
	}
	minD, err1 := time.ParseDuration(c.RateLimit.MinDelay)
	maxD, err2 := time.ParseDuration(c.RateLimit.MaxDelay)
	if err1 == nil && err2 == nil && minD > maxD {
		errs = append(errs, fmt.Errorf("rate_limit.min_delay %s exceeds max_delay %s", minD, maxD))
	}
	if c.RateLimit.StartCap > c.RateLimit.MaxCap {
		errs = append(errs, fmt.Errorf("rate_limit.start_cap %d exceeds max_cap %d", c.RateLimit.StartCap, c.RateLimit.MaxCap))
	}
	if _, err := time.LoadLocation(c.RateLimit.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid rate_limit.timezone: %w", err))
	}
	seen := map[string]struct{}{}
	for _, p := range c.Personas {
		if strings.TrimSpace(p.ID) == "" {
			errs = append(errs, errors.New("persona with empty id"))
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate persona id %s", p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	for _, cc := range c.Campaigns {
		if strings.TrimSpace(cc.ID) == "" {
			errs = append(errs, errors.New("campaign with empty id"))
		}
		if _, ok := seen[cc.Persona]; !ok {
			errs = append(errs, fmt.Errorf("campaign %s references unknown persona %q", cc.ID, cc.Persona))
		}
		if _, err := model.ParseHuntMode(cc.HuntMode); err != nil {
			errs = append(errs, fmt.Errorf("campaign %s: %w", cc.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Persona returns the persona with the given id.
func (c *Config) Persona(id string) (model.Persona, bool) {
	for _, p := range c.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return model.Persona{}, false
}

// Campaign returns the campaign seed with the given id.
func (c *Config) Campaign(id string) (CampaignConfig, bool) {
	for _, cc := range c.Campaigns {
		if cc.ID == id {
			return cc, true
		}
	}
	return CampaignConfig{}, false
}

// Duration parses a validated duration field; callers run Validate first.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

type personasFile struct {
	Personas []model.Persona `yaml:"personas"`
}

// LoadPersonas reads a YAML file with a top-level "personas" list.
func LoadPersonas(path string) ([]model.Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas file: %w", err)
	}
	var pf personasFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse personas file %s: %w", path, err)
	}
	return pf.Personas, nil
}

// MergePersonas appends file personas whose ids are not already defined inline.
func (c *Config) MergePersonas(extra []model.Persona) {
	for _, p := range extra {
		if _, ok := c.Persona(p.ID); ok {
			continue
		}
		c.Personas = append(c.Personas, p)
	}
}
