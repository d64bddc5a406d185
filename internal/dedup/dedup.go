// Package dedup decides whether a candidate was already handled, either by
// content fingerprint or by the persona's recorded disposition.
package dedup

import (
	"context"
	"strconv"
	"time"

	"redditfrost/internal/model"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint derives a stable content fingerprint from the platform id.
// "t3_abc" and "abc" map to the same value.
func Fingerprint(sourceID string) string {
	return strconv.FormatUint(xxhash.Sum64String("reddit:"+model.NormalizeSourceID(sourceID)), 16)
}

// Store is the persistence the registry needs.
type Store interface {
	HasFingerprint(ctx context.Context, fp string) (bool, error)
	HasPersonaFingerprint(ctx context.Context, persona, fp string) (bool, error)
	AddFingerprint(ctx context.Context, persona, fp string) error
	GetItems(ctx context.Context, persona string, sourceIDs []string) (map[string]model.ProcessedItem, error)
}

type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Exists reports whether any persona already processed the fingerprint.
func (r *Registry) Exists(ctx context.Context, fp string) (bool, error) {
	return r.store.HasFingerprint(ctx, fp)
}

// ExistsForPersona reports whether persona already processed the fingerprint.
func (r *Registry) ExistsForPersona(ctx context.Context, persona, fp string) (bool, error) {
	return r.store.HasPersonaFingerprint(ctx, persona, fp)
}

// Record marks the fingerprint as processed. Recording twice is harmless.
func (r *Registry) Record(ctx context.Context, persona, fp string) error {
	return r.store.AddFingerprint(ctx, persona, fp)
}

// Dispositions returns the recorded disposition for each source id that has one.
func (r *Registry) Dispositions(ctx context.Context, persona string, sourceIDs []string) (map[string]model.Disposition, error) {
	items, err := r.store.GetItems(ctx, persona, sourceIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Disposition, len(items))
	for id, it := range items {
		out[id] = it.Disposition()
	}
	return out, nil
}

// Eligible decides whether an item may be considered again. Unknown items are
// eligible. Drafted, done and deleted items are not. Skipped items become
// eligible once now reaches the expiry, or immediately if no expiry was set.
func Eligible(d *model.Disposition, now time.Time) bool {
	if d == nil {
		return true
	}
	if d.State != model.StateSkip {
		return false
	}
	if d.SkipExpiresAt == nil {
		return true
	}
	return !now.Before(*d.SkipExpiresAt)
}

// Seen tracks fingerprints within one cycle.
type Seen map[string]struct{}

// Add returns false if fp was already present.
func (s Seen) Add(fp string) bool {
	if _, ok := s[fp]; ok {
		return false
	}
	s[fp] = struct{}{}
	return true
}
