package hunt

import (
	"context"
	"sort"
)

// DailyStats is one persona's activity for one calendar day.
type DailyStats struct {
	Date          string `json:"date"`
	LeadsFound    int    `json:"leads_found"`
	RepliesPosted int    `json:"replies_posted"`
	TokensSpent   int    `json:"tokens_spent"`
}

// Analytics groups a persona's items by the day they were first recorded, in
// the rate limiter's zone, oldest day first. A reply counts as posted once the
// platform returned a comment id for it.
func (s *Service) Analytics(ctx context.Context, personaID string) ([]DailyStats, error) {
	if _, err := s.persona(personaID); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, personaID)
	if err != nil {
		return nil, err
	}
	byDay := map[string]*DailyStats{}
	for _, it := range items {
		at := it.CreatedAt
		if at.IsZero() {
			at = it.UpdatedAt
		}
		day := s.limiter.Day(at).Format("2006-01-02")
		st, ok := byDay[day]
		if !ok {
			st = &DailyStats{Date: day}
			byDay[day] = st
		}
		st.LeadsFound++
		if it.PostedCommentID != "" {
			st.RepliesPosted++
		}
		st.TokensSpent += it.TokensSpent
	}
	out := make([]DailyStats, 0, len(byDay))
	for _, st := range byDay {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
