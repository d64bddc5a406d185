package ai

import (
	"fmt"
	"math/rand"
	"strings"

	"redditfrost/internal/model"
)

// LinkScoreThreshold is the minimum relevance at which a reply may carry the product link.
const LinkScoreThreshold = 0.9

const maxReplyBody = 3000

type replyStyle struct {
	name     string
	tone     string
	openings []string
}

var replyStyles = []replyStyle{
	{"stream", "casual", []string{"ugh", "man", "dude", "oh man", "yikes", "oof", "aw man"}},
	{"direct", "straightforward", []string{"yeah", "honestly", "tbh", "ngl", "i mean"}},
	{"empathetic", "understanding", []string{"i totally get that", "i feel you", "been there", "same"}},
	{"thoughtful", "reflective", []string{"so", "okay", "well", "hmm", "interesting"}},
}

var replyShapes = []string{
	"two short paragraphs",
	"one longer paragraph",
	"three or four medium paragraphs, some very short",
	"a mix of short and long sentences with a single line break",
}

var productMentions = []string{
	"i actually found %s helpful for this kind of thing",
	"there's this thing called %s that might help",
	"i've been using %s and it's been pretty good",
	"check out %s, it helped me with something similar",
	"%s has been useful for me",
	"i stumbled across %s and it's been helpful",
}

var closings = []string{
	"end with a quick good luck",
	"end with a short question back to them",
	"just stop naturally without a sign-off",
	"end with something encouraging like hang in there",
}

// ReplyPrompt is a fully built stage-2 request with the style choices that produced it.
type ReplyPrompt struct {
	System   string
	Prompt   string
	Sampling Sampling
	Style    string
	Opening  string
	Shape    string
}

// BuildReplyPrompt is pure given rng: the same seed yields the same prompt.
func BuildReplyPrompt(c model.Candidate, p model.Persona, score float64, rng *rand.Rand) ReplyPrompt {
	style := replyStyles[rng.Intn(len(replyStyles))]
	opening := style.openings[rng.Intn(len(style.openings))]
	shape := replyShapes[rng.Intn(len(replyShapes))]
	closing := closings[rng.Intn(len(closings))]
	mention := ""
	if p.ProductName != "" {
		mention = fmt.Sprintf(productMentions[rng.Intn(len(productMentions))], p.ProductName)
	}
	sampling := Sampling{
		Temperature: 0.95 + rng.Float32()*0.05,
		TopP:        0.9 + rng.Float32()*0.1,
		TopK:        30 + rng.Intn(20),
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "You're %s, a real Reddit user replying to this post in r/%s.\n", orNA(p.Name, "a regular redditor"), c.Community)
	if p.Archetype != "" {
		fmt.Fprintf(b, "Your vibe: %s.\n", p.Archetype)
	}
	b.WriteString("\nPost:\n")
	fmt.Fprintf(b, "Title: %s\n", c.Title)
	fmt.Fprintf(b, "Content: %s\n\n", orNA(truncate(c.Body, maxReplyBody), "(no body)"))

	fmt.Fprintf(b, "Voice: %s and %s. Consider opening with %q, or jump straight in.\n", style.tone, style.name, opening)
	b.WriteString(toneGuidance(p.Tone))
	b.WriteString(authenticityGuidance(p.Authenticity))
	fmt.Fprintf(b, "Shape: %s. Follow hook, then one concrete tip, then an optional soft mention, then closing; %s.\n\n", shape, closing)

	b.WriteString("Rules:\n")
	b.WriteString("- Lead with real value for this person before anything else.\n")
	if p.ProductName != "" {
		fmt.Fprintf(b, "- Only mention %s if it genuinely fits. If you do, keep it casual, e.g. %q. Never a sales pitch.\n", p.ProductName, mention)
	} else {
		b.WriteString("- Do not promote any product.\n")
	}
	if score >= LinkScoreThreshold && p.WebsiteURL != "" {
		fmt.Fprintf(b, "- You may include %s once, only next to the mention.\n", p.WebsiteURL)
	} else {
		b.WriteString("- Do not include any links.\n")
	}
	b.WriteString("- No bullet points, no numbered lists, no headings.\n")
	b.WriteString("- Never say \"Here are a few things\" or \"I hope this helps\".\n")
	b.WriteString("\nWrite only the comment text.")

	return ReplyPrompt{
		System:   "You write short, natural Reddit comments that read like a real person typed them.",
		Prompt:   b.String(),
		Sampling: sampling,
		Style:    style.name,
		Opening:  opening,
		Shape:    shape,
	}
}

func toneGuidance(t model.Tone) string {
	var parts []string
	switch {
	case t.Professionalism >= 7:
		parts = append(parts, "fairly polished wording")
	case t.Professionalism > 0 && t.Professionalism <= 3:
		parts = append(parts, "very casual wording, slang is fine")
	}
	switch {
	case t.Conciseness >= 7:
		parts = append(parts, "keep it brief, under 80 words")
	case t.Conciseness > 0 && t.Conciseness <= 3:
		parts = append(parts, "it's fine to ramble a little")
	}
	switch {
	case t.Empathy >= 7:
		parts = append(parts, "acknowledge how they feel first")
	case t.Empathy > 0 && t.Empathy <= 3:
		parts = append(parts, "skip the sympathy, get to the point")
	}
	if len(parts) == 0 {
		return ""
	}
	return "Tone: " + strings.Join(parts, "; ") + ".\n"
}

func authenticityGuidance(a model.Authenticity) string {
	var parts []string
	if a.LowercaseI {
		parts = append(parts, `write "i" in lowercase`)
	}
	if a.Contractions {
		parts = append(parts, "use contractions")
	}
	if a.VarySentenceLength {
		parts = append(parts, "vary sentence length a lot")
	}
	if a.AvoidCorporateSpeak {
		parts = append(parts, "never use words like delighted, robust, solution, unleash, comprehensive")
	}
	if len(parts) == 0 {
		return ""
	}
	return "Style: " + strings.Join(parts, "; ") + ".\n"
}
