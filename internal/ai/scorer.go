package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"redditfrost/internal/model"
)

// FailedReasoning is recorded when a score could not be obtained.
const FailedReasoning = "analysis failed"

const maxScoreBody = 4000

// Scorer is stage 1: it rates how well a candidate fits the persona's brand.
type Scorer struct {
	gen   Generator
	model string
	log   *slog.Logger
}

// NewScorer builds a scorer. model may be empty to use the generator default.
func NewScorer(gen Generator, model string, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{gen: gen, model: model, log: log}
}

// Score never fails: upstream or parse errors yield a zero score with FailedReasoning.
func (s *Scorer) Score(ctx context.Context, c model.Candidate, p model.Persona) model.ScoredCandidate {
	out := model.ScoredCandidate{Candidate: c, Reasoning: FailedReasoning}
	res, err := s.gen.Generate(ctx, Request{
		System:   "You evaluate social media posts for brand relevance. Reply with a single JSON object.",
		Prompt:   BuildScorePrompt(c, p),
		Sampling: Sampling{Temperature: 0.2, TopP: 1},
		JSON:     true,
		Model:    s.model,
	})
	out.TokensUsed = res.Tokens
	if err != nil {
		s.log.Warn("ai: scoring failed", "source_id", c.SourceID, "error", err)
		return out
	}
	score, reasoning, ok := ParseScore(res.Text)
	if !ok {
		s.log.Warn("ai: unparseable score response", "source_id", c.SourceID, "raw", truncate(res.Text, 200))
		return out
	}
	out.RelevanceScore = score
	out.Reasoning = reasoning
	return out
}

// BuildScorePrompt renders the stage-1 prompt with the brand context.
func BuildScorePrompt(c model.Candidate, p model.Persona) string {
	b := &strings.Builder{}
	b.WriteString("Analyze this Reddit post to determine if it's relevant for our brand.\n\n")
	b.WriteString("Reddit Post:\n")
	fmt.Fprintf(b, "Title: %s\n", c.Title)
	fmt.Fprintf(b, "Content: %s\n", orNA(truncate(c.Body, maxScoreBody), "No content"))
	fmt.Fprintf(b, "Subreddit: %s\n\n", c.Community)
	b.WriteString("Brand Context:\n")
	fmt.Fprintf(b, "Product: %s\n", orNA(p.ProductName, "N/A"))
	fmt.Fprintf(b, "Mission: %s\n", orNA(p.BrandMission, "N/A"))
	fmt.Fprintf(b, "Target Audience: %s\n", orNA(p.TargetAudience, "N/A"))
	if p.ProblemDescription != "" {
		fmt.Fprintf(b, "Problem We Solve: %s\n", p.ProblemDescription)
	}
	if len(p.PainPoints) > 0 {
		fmt.Fprintf(b, "Pain Points: %s\n", strings.Join(p.PainPoints, "; "))
	}
	if len(p.KeyFeatures) > 0 {
		fmt.Fprintf(b, "Key Features: %s\n", strings.Join(p.KeyFeatures, "; "))
	}
	b.WriteString(`
Evaluate the content for:
1. Relevance to our products/services
2. User's intent and needs
3. Potential for meaningful engagement
4. Authenticity of the request

Provide a relevance score from 0.0 to 1.0 where:
- 0.0-0.3: Not relevant (off-topic, spam, or no clear need)
- 0.4-0.6: Somewhat relevant (related topic but unclear fit)
- 0.7-1.0: Highly relevant (clear need/problem we can address)

Return ONLY a JSON object with this exact format:
{"relevanceScore": 0.85, "reasoning": "Brief explanation of why this score was given"}`)
	return b.String()
}

var (
	fenceRe  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseScore extracts a clamped score and the reasoning from a model response.
// It tolerates code fences, surrounding prose and string-typed numbers.
func ParseScore(raw string) (float64, string, bool) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		m := objectRe.FindString(text)
		if m == "" {
			return 0, "", false
		}
		if err := json.Unmarshal([]byte(m), &obj); err != nil {
			return 0, "", false
		}
	}
	var (
		score float64
		found bool
	)
	for _, k := range []string{"relevanceScore", "relevance_score", "score"} {
		if v, ok := obj[k]; ok {
			score, found = toFloat(v)
			break
		}
	}
	if !found {
		return 0, "", false
	}
	reasoning, _ := obj["reasoning"].(string)
	return clamp01(score), strings.TrimSpace(reasoning), true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f != f || f < 0 { // NaN
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func orNA(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
