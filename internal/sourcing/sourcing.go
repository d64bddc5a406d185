// Package sourcing turns the content source into per-cycle candidate streams.
package sourcing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"redditfrost/internal/model"
	"redditfrost/internal/reddit"
)

// ErrExhausted signals that every source of a stream ran dry for this cycle.
var ErrExhausted = errors.New("sourcing: exhausted")

// ErrNoSources is a configuration error: a targeted stream needs communities.
var ErrNoSources = errors.New("sourcing: no communities configured")

// Fetcher is the content-source capability.
type Fetcher interface {
	Listing(ctx context.Context, subreddit, sort, after string, limit int) (reddit.Page, error)
	Search(ctx context.Context, query, sort, after string, limit int) (reddit.Page, error)
}

// Source names what to fetch: a community listing, or a global query.
// An empty Query with no Community means the platform-wide newest stream.
type Source struct {
	Community string
	Sort      string
	Query     string
}

func (s Source) String() string {
	switch {
	case s.Community != "":
		return "r/" + s.Community
	case s.Query != "":
		return "search:" + s.Query
	default:
		return "r/all"
	}
}

// FetchPage fetches one page of src starting at cursor and returns the candidates
// and the cursor for the following page ("" when there is none).
func FetchPage(ctx context.Context, f Fetcher, mode model.HuntMode, src Source, cursor string, limit int) ([]model.Candidate, string, error) {
	var (
		page reddit.Page
		err  error
	)
	switch mode {
	case model.HuntTargeted:
		if src.Community == "" {
			return nil, "", ErrNoSources
		}
		page, err = f.Listing(ctx, src.Community, src.Sort, cursor, limit)
	case model.HuntGlobal:
		if src.Query == "" {
			page, err = f.Listing(ctx, "all", "new", cursor, limit)
		} else {
			page, err = f.Search(ctx, src.Query, "new", cursor, limit)
		}
	default:
		return nil, "", fmt.Errorf("sourcing: unknown hunt mode %q", mode)
	}
	if err != nil {
		return nil, "", err
	}
	return page.Candidates, page.After, nil
}

// Batch is what a stream yields per step.
type Batch struct {
	Source     Source
	Candidates []model.Candidate
	// Failures counts source fetches that errored while producing this batch.
	Failures int
}

// Stream yields candidate batches until it returns ErrExhausted.
type Stream interface {
	Next(ctx context.Context) (Batch, error)
}

// New builds the stream for a persona's hunt mode.
func New(mode model.HuntMode, p model.Persona, f Fetcher, pageSize int, log *slog.Logger) (Stream, error) {
	if log == nil {
		log = slog.Default()
	}
	switch mode {
	case model.HuntTargeted:
		return NewTargeted(f, p.Communities, pageSize, log)
	case model.HuntGlobal:
		return NewGlobal(f, BuildQuery(p.Keywords), pageSize, log), nil
	default:
		return nil, fmt.Errorf("sourcing: unknown hunt mode %q", mode)
	}
}

// BuildQuery ORs keywords together, quoting multi-word phrases.
func BuildQuery(keywords []string) string {
	parts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(strings.ReplaceAll(k, `"`, ""))
		if k == "" {
			continue
		}
		if strings.ContainsAny(k, " \t") {
			k = `"` + k + `"`
		}
		parts = append(parts, k)
	}
	return strings.Join(parts, " OR ")
}
