package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"redditfrost/internal/model"
)

// ErrEmptyReply is returned when generation produced no usable text.
var ErrEmptyReply = errors.New("ai: empty reply")

// Reply is a stage-2 draft.
type Reply struct {
	Text   string
	Tokens int
	Style  string
}

// Replier is stage 2: it drafts a reply in the persona's voice.
type Replier struct {
	gen   Generator
	model string
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewReplier uses rng for style variation; pass a seeded source for reproducible prompts.
func NewReplier(gen Generator, model string, rng *rand.Rand) *Replier {
	return &Replier{gen: gen, model: model, rng: rng}
}

func (r *Replier) buildPrompt(c model.Candidate, p model.Persona, score float64) ReplyPrompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return BuildReplyPrompt(c, p, score, r.rng)
}

// Draft returns the generated reply or an error; it never substitutes placeholder text.
func (r *Replier) Draft(ctx context.Context, sc model.ScoredCandidate, p model.Persona) (Reply, error) {
	rp := r.buildPrompt(sc.Candidate, p, sc.RelevanceScore)
	res, err := r.gen.Generate(ctx, Request{
		System:   rp.System,
		Prompt:   rp.Prompt,
		Sampling: rp.Sampling,
		Model:    r.model,
	})
	if err != nil {
		return Reply{Tokens: res.Tokens}, fmt.Errorf("generate reply for %s: %w", sc.Candidate.SourceID, err)
	}
	text := cleanReply(res.Text)
	if text == "" {
		return Reply{Tokens: res.Tokens}, fmt.Errorf("generate reply for %s: %w", sc.Candidate.SourceID, ErrEmptyReply)
	}
	return Reply{Text: text, Tokens: res.Tokens, Style: rp.Style}, nil
}

func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
