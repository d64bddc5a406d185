package hunt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"redditfrost/internal/dedup"
	"redditfrost/internal/model"
)

// ItemMeta describes an item the persona has not processed yet.
type ItemMeta struct {
	Community string `json:"community"`
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
}

var errNoop = errors.New("hunt: no-op")

// SetItemState applies an operator disposition (done, deleted or skip).
// Skip gets a fresh expiry; other states clear it. Deleting drops the draft.
// done and deleted are final: repeating them is a no-op, anything else is ErrInvalidTransition.
func (s *Service) SetItemState(ctx context.Context, personaID, sourceID, state string, meta *ItemMeta) (model.ProcessedItem, error) {
	st, err := model.ParseState(state)
	if err != nil {
		return model.ProcessedItem{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if st == model.StateDrafted {
		return model.ProcessedItem{}, fmt.Errorf("%w: drafted is set by hunt cycles only", ErrInvalidState)
	}
	sourceID = model.NormalizeSourceID(sourceID)
	if personaID == "" || sourceID == "" {
		return model.ProcessedItem{}, fmt.Errorf("%w: persona and source id are required", ErrInvalidState)
	}
	if _, err := s.persona(personaID); err != nil {
		return model.ProcessedItem{}, err
	}

	now := s.now()
	var unchanged model.ProcessedItem
	item, err := s.store.UpdateItem(ctx, personaID, sourceID, func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error) {
		if !exists {
			if meta == nil || strings.TrimSpace(meta.Community) == "" || strings.TrimSpace(meta.URL) == "" {
				return cur, ErrMissingMeta
			}
			cur = model.ProcessedItem{
				Fingerprint: dedup.Fingerprint(sourceID),
				Community:   meta.Community,
				URL:         meta.URL,
				Title:       meta.Title,
				Body:        meta.Body,
				CreatedAt:   now,
			}
		} else if cur.State.Terminal() {
			if cur.State == st {
				unchanged = cur
				return cur, errNoop
			}
			return cur, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.State, st)
		}
		if cur.Fingerprint == "" {
			cur.Fingerprint = dedup.Fingerprint(sourceID)
		}
		cur.State = st
		cur.SkipExpiresAt = nil
		switch st {
		case model.StateSkip:
			exp := now.Add(s.opts.SkipDuration)
			cur.SkipExpiresAt = &exp
		case model.StateDeleted:
			cur.GeneratedReply = ""
		}
		cur.UpdatedAt = now
		return cur, nil
	})
	if errors.Is(err, errNoop) {
		return unchanged, nil
	}
	if err != nil {
		return model.ProcessedItem{}, err
	}
	if err := s.registry.Record(ctx, personaID, item.Fingerprint); err != nil {
		s.log.Warn("hunt: failed to record fingerprint", "source_id", sourceID, "error", err)
	}
	s.log.Info("hunt: item state set", "persona", personaID, "source_id", sourceID, "state", st)
	return item, nil
}
