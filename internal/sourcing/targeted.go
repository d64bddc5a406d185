package sourcing

import (
	"context"
	"log/slog"
	"strings"

	"redditfrost/internal/model"
)

// Targeted visits communities round-robin, one page per step, each with its own
// cursor. A community drops out once it returns an empty page, has no next
// cursor, or its fetch fails.
type Targeted struct {
	fetcher   Fetcher
	sources   []Source
	cursors   []string
	exhausted []bool
	next      int
	limit     int
	log       *slog.Logger
}

func NewTargeted(f Fetcher, communities []model.Community, limit int, log *slog.Logger) (*Targeted, error) {
	var sources []Source
	for _, c := range communities {
		name := strings.TrimPrefix(strings.TrimSpace(c.Name), "r/")
		if name == "" {
			continue
		}
		sort := c.Sort
		if sort == "" {
			sort = "new"
		}
		sources = append(sources, Source{Community: name, Sort: sort})
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return &Targeted{
		fetcher:   f,
		sources:   sources,
		cursors:   make([]string, len(sources)),
		exhausted: make([]bool, len(sources)),
		limit:     limit,
		log:       log,
	}, nil
}

func (t *Targeted) Next(ctx context.Context) (Batch, error) {
	var failures int
	for range t.sources {
		if err := ctx.Err(); err != nil {
			return Batch{Failures: failures}, err
		}
		i := t.next
		t.next = (t.next + 1) % len(t.sources)
		if t.exhausted[i] {
			continue
		}
		src := t.sources[i]
		cands, after, err := FetchPage(ctx, t.fetcher, model.HuntTargeted, src, t.cursors[i], t.limit)
		if err != nil {
			if ctx.Err() != nil {
				return Batch{Failures: failures}, ctx.Err()
			}
			t.log.Warn("sourcing: fetch failed, dropping community for this cycle", "source", src.String(), "error", err)
			t.exhausted[i] = true
			failures++
			continue
		}
		if len(cands) == 0 {
			t.log.Debug("sourcing: community exhausted", "source", src.String())
			t.exhausted[i] = true
			continue
		}
		t.cursors[i] = after
		if after == "" {
			t.exhausted[i] = true
		}
		return Batch{Source: src, Candidates: cands, Failures: failures}, nil
	}
	return Batch{Failures: failures}, ErrExhausted
}
