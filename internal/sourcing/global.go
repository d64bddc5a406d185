package sourcing

import (
	"context"
	"log/slog"

	"redditfrost/internal/model"
)

// Global is a single newest-first stream: keyword search when a query is set,
// otherwise the platform-wide new listing.
type Global struct {
	fetcher Fetcher
	source  Source
	cursor  string
	done    bool
	limit   int
	log     *slog.Logger
}

func NewGlobal(f Fetcher, query string, limit int, log *slog.Logger) *Global {
	return &Global{fetcher: f, source: Source{Query: query}, limit: limit, log: log}
}

func (g *Global) Next(ctx context.Context) (Batch, error) {
	if g.done {
		return Batch{}, ErrExhausted
	}
	cands, after, err := FetchPage(ctx, g.fetcher, model.HuntGlobal, g.source, g.cursor, g.limit)
	if err != nil {
		if ctx.Err() != nil {
			return Batch{}, ctx.Err()
		}
		g.log.Warn("sourcing: global fetch failed", "source", g.source.String(), "error", err)
		g.done = true
		return Batch{Source: g.source, Failures: 1}, nil
	}
	if len(cands) == 0 {
		g.done = true
		return Batch{}, ErrExhausted
	}
	g.cursor = after
	if after == "" {
		g.done = true
	}
	return Batch{Source: g.source, Candidates: cands}, nil
}
