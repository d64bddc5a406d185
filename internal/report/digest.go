// Package report renders pending drafts as a markdown digest for review.
package report

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"redditfrost/internal/model"
)

type Item struct {
	Title     string
	URL       string
	Community string
	Score     float64
	Reasoning string
	Reply     string
}

type Data struct {
	Title     string
	PersonaID string
	Datetime  string
	Items     []Item
}

//go:embed digest.tmpl
var digestTpl string

var compiled = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"quote": quote,
}).Parse(digestTpl))

func Render(d Data) (string, error) {
	var buf bytes.Buffer
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FromItems builds digest data from drafted items, keeping their order.
func FromItems(title, personaID string, items []model.ProcessedItem, now time.Time) Data {
	d := Data{
		Title:     ExpandVars(title, now),
		PersonaID: personaID,
		Datetime:  now.UTC().Format("2006-01-02 15:04 UTC"),
	}
	for _, it := range items {
		t := it.Title
		if strings.TrimSpace(t) == "" {
			t = it.SourceID
		}
		d.Items = append(d.Items, Item{
			Title:     t,
			URL:       it.URL,
			Community: it.Community,
			Score:     it.RelevanceScore,
			Reasoning: it.Reasoning,
			Reply:     it.GeneratedReply,
		})
	}
	return d
}

// ExpandVars performs simple placeholder substitutions in titles.
//
// Supported variables:
// - {.CurrentDate} => formatted as YYYY-MM-DD (UTC)
func ExpandVars(s string, now time.Time) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return strings.ReplaceAll(s, "{.CurrentDate}", now.UTC().Format("2006-01-02"))
}

func quote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("> "+l, " ")
	}
	return strings.Join(lines, "\n")
}
