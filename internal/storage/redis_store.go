package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"redditfrost/internal/model"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrConflict is returned when an optimistic update kept losing races.
var ErrConflict = errors.New("storage: concurrent update conflict")

const (
	maxTxRetries  = 5
	runHistoryCap = 50
)

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func itemKey(persona, sourceID string) string {
	return fmt.Sprintf("hunt:item:%s:%s", persona, model.NormalizeSourceID(sourceID))
}

func itemIndexKey(persona string) string {
	return fmt.Sprintf("hunt:items:%s", persona)
}

func campaignKey(id string) string {
	return fmt.Sprintf("hunt:campaign:%s", id)
}

const campaignIndexKey = "hunt:campaigns"

const globalFingerprintsKey = "hunt:fingerprints"

func personaFingerprintsKey(persona string) string {
	return fmt.Sprintf("hunt:persona:%s:fingerprints", persona)
}

func runsKey(campaignID string) string {
	return fmt.Sprintf("hunt:runs:%s", campaignID)
}

// GetItem loads one processed item.
func (s *RedisStore) GetItem(ctx context.Context, persona, sourceID string) (model.ProcessedItem, error) {
	var it model.ProcessedItem
	b, err := s.rdb.Get(ctx, itemKey(persona, sourceID)).Bytes()
	if err == redis.Nil {
		return it, ErrNotFound
	}
	if err != nil {
		return it, err
	}
	if err := json.Unmarshal(b, &it); err != nil {
		return it, fmt.Errorf("decode item %s/%s: %w", persona, sourceID, err)
	}
	return it, nil
}

// GetItems loads the existing items among sourceIDs in one round trip. Missing ids are absent from the map.
func (s *RedisStore) GetItems(ctx context.Context, persona string, sourceIDs []string) (map[string]model.ProcessedItem, error) {
	out := make(map[string]model.ProcessedItem, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(sourceIDs))
	for i, id := range sourceIDs {
		keys[i] = itemKey(persona, id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var it model.ProcessedItem
		if err := json.Unmarshal([]byte(str), &it); err != nil {
			return nil, fmt.Errorf("decode item %s/%s: %w", persona, sourceIDs[i], err)
		}
		out[sourceIDs[i]] = it
	}
	return out, nil
}

// PutItem stores an item unconditionally and indexes it by last update time.
// Cycles and operator actions go through UpdateItem; PutItem seeds state for
// imports and tests.
func (s *RedisStore) PutItem(ctx context.Context, it model.ProcessedItem) error {
	it.SourceID = model.NormalizeSourceID(it.SourceID)
	b, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(it.PersonaID, it.SourceID), b, 0)
		pipe.ZAdd(ctx, itemIndexKey(it.PersonaID), redis.Z{Score: float64(it.UpdatedAt.Unix()), Member: it.SourceID})
		return nil
	})
	return err
}

// UpdateItem applies fn to the current item under WATCH so concurrent writers cannot
// interleave. exists reports whether cur was loaded from storage.
func (s *RedisStore) UpdateItem(ctx context.Context, persona, sourceID string, fn func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error)) (model.ProcessedItem, error) {
	sourceID = model.NormalizeSourceID(sourceID)
	key := itemKey(persona, sourceID)
	var result model.ProcessedItem
	txf := func(tx *redis.Tx) error {
		var cur model.ProcessedItem
		exists := true
		b, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
			exists = false
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(b, &cur); err != nil {
				return fmt.Errorf("decode item %s/%s: %w", persona, sourceID, err)
			}
		}
		next, err := fn(cur, exists)
		if err != nil {
			return err
		}
		next.PersonaID = persona
		next.SourceID = sourceID
		nb, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, 0)
			pipe.ZAdd(ctx, itemIndexKey(persona), redis.Z{Score: float64(next.UpdatedAt.Unix()), Member: sourceID})
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return model.ProcessedItem{}, err
	}
	return model.ProcessedItem{}, ErrConflict
}

// ListItems returns a persona's items, most recently updated first, optionally filtered by state.
func (s *RedisStore) ListItems(ctx context.Context, persona string, states ...model.State) ([]model.ProcessedItem, error) {
	ids, err := s.rdb.ZRevRange(ctx, itemIndexKey(persona), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	byID, err := s.GetItems(ctx, persona, ids)
	if err != nil {
		return nil, err
	}
	want := make(map[model.State]bool, len(states))
	for _, st := range states {
		want[st] = true
	}
	out := make([]model.ProcessedItem, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			continue
		}
		if len(want) > 0 && !want[it.State] {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// GetCampaign loads a campaign by id.
func (s *RedisStore) GetCampaign(ctx context.Context, id string) (model.Campaign, error) {
	var c model.Campaign
	b, err := s.rdb.Get(ctx, campaignKey(id)).Bytes()
	if err == redis.Nil {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("decode campaign %s: %w", id, err)
	}
	return c, nil
}

// PutCampaign stores a campaign unconditionally, overwriting runtime counters.
// Campaigns are normally seeded with CreateCampaign and changed with
// UpdateCampaign; PutCampaign is for imports and tests.
func (s *RedisStore) PutCampaign(ctx context.Context, c model.Campaign) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, campaignKey(c.ID), b, 0)
		pipe.SAdd(ctx, campaignIndexKey, c.ID)
		return nil
	})
	return err
}

// CreateCampaign stores c only if no campaign with that id exists yet.
func (s *RedisStore) CreateCampaign(ctx context.Context, c model.Campaign) (bool, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return false, err
	}
	created, err := s.rdb.SetNX(ctx, campaignKey(c.ID), b, 0).Result()
	if err != nil {
		return false, err
	}
	if created {
		if err := s.rdb.SAdd(ctx, campaignIndexKey, c.ID).Err(); err != nil {
			return true, err
		}
	}
	return created, nil
}

// UpdateCampaign applies fn to the stored campaign atomically. fn returning an error aborts the write.
func (s *RedisStore) UpdateCampaign(ctx context.Context, id string, fn func(c *model.Campaign) error) (model.Campaign, error) {
	key := campaignKey(id)
	var result model.Campaign
	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var c model.Campaign
		if err := json.Unmarshal(b, &c); err != nil {
			return fmt.Errorf("decode campaign %s: %w", id, err)
		}
		if err := fn(&c); err != nil {
			return err
		}
		nb, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, nb, 0)
			return nil
		})
		if err == nil {
			result = c
		}
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return model.Campaign{}, err
	}
	return model.Campaign{}, ErrConflict
}

// ListCampaigns returns all stored campaigns in no particular order.
func (s *RedisStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	ids, err := s.rdb.SMembers(ctx, campaignIndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Campaign, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetCampaign(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// HasFingerprint reports whether any persona has already processed the fingerprint.
func (s *RedisStore) HasFingerprint(ctx context.Context, fp string) (bool, error) {
	return s.rdb.SIsMember(ctx, globalFingerprintsKey, fp).Result()
}

// HasPersonaFingerprint reports whether the persona has already processed the fingerprint.
func (s *RedisStore) HasPersonaFingerprint(ctx context.Context, persona, fp string) (bool, error) {
	return s.rdb.SIsMember(ctx, personaFingerprintsKey(persona), fp).Result()
}

// AddFingerprint records the fingerprint globally and for the persona. Idempotent.
func (s *RedisStore) AddFingerprint(ctx context.Context, persona, fp string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, globalFingerprintsKey, fp)
		pipe.SAdd(ctx, personaFingerprintsKey(persona), fp)
		return nil
	})
	return err
}

// AppendRun pushes a cycle summary onto the campaign's capped history.
func (s *RedisStore) AppendRun(ctx context.Context, run model.RunSummary) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, runsKey(run.CampaignID), b)
		pipe.LTrim(ctx, runsKey(run.CampaignID), 0, runHistoryCap-1)
		return nil
	})
	return err
}

// ListRuns returns up to n most recent summaries, newest first.
func (s *RedisStore) ListRuns(ctx context.Context, campaignID string, n int) ([]model.RunSummary, error) {
	if n <= 0 || n > runHistoryCap {
		n = runHistoryCap
	}
	vals, err := s.rdb.LRange(ctx, runsKey(campaignID), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.RunSummary, 0, len(vals))
	for _, v := range vals {
		var r model.RunSummary
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

