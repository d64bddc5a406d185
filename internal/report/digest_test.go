package report

import (
	"strings"
	"testing"
	"time"

	"redditfrost/internal/model"
)

func TestRenderDigest(t *testing.T) {
	now := time.Date(2026, 2, 3, 8, 30, 0, 0, time.UTC)
	items := []model.ProcessedItem{
		{SourceID: "a1", Title: "Freezer burn", URL: "https://www.reddit.com/r/cooking/comments/a1", Community: "cooking", RelevanceScore: 0.91, Reasoning: "clear need", GeneratedReply: "oof\n\ndouble-bag it"},
		{SourceID: "b2", Community: "homelab", RelevanceScore: 0.7, GeneratedReply: "tbh just add a fan"},
	}
	out, err := Render(FromItems("Drafts for {.CurrentDate}", "p1", items, now))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"# Drafts for 2026-02-03",
		"2 pending drafts",
		"## 1. [Freezer burn](https://www.reddit.com/r/cooking/comments/a1)",
		"relevance 0.91 · clear need",
		"> oof\n>\n> double-bag it",
		"## 2. [b2]",
		"> tbh just add a fan",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("digest missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptyDigest(t *testing.T) {
	out, err := Render(FromItems("Drafts", "p1", nil, time.Now()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Nothing pending.") || !strings.Contains(out, "0 pending drafts") {
		t.Errorf("unexpected empty digest:\n%s", out)
	}
}

func TestExpandVars(t *testing.T) {
	now := time.Date(2026, 1, 2, 23, 0, 0, 0, time.FixedZone("X", -5*3600))
	if got := ExpandVars("Daily {.CurrentDate}", now); got != "Daily 2026-01-03" {
		t.Errorf("got %q", got)
	}
	if got := ExpandVars("  ", now); got != "  " {
		t.Errorf("blank input should pass through, got %q", got)
	}
}
