package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"redditfrost/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb)
}

func TestItemRoundTripAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.GetItem(ctx, "p1", "abc")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutItem(ctx, model.ProcessedItem{PersonaID: "p1", SourceID: "a", State: model.StateDrafted, UpdatedAt: base}))
	require.NoError(t, s.PutItem(ctx, model.ProcessedItem{PersonaID: "p1", SourceID: "b", State: model.StateDone, UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.PutItem(ctx, model.ProcessedItem{PersonaID: "p2", SourceID: "a", State: model.StateSkip, UpdatedAt: base}))

	it, err := s.GetItem(ctx, "p1", "a")
	require.NoError(t, err)
	assert.Equal(t, model.StateDrafted, it.State)

	all, err := s.ListItems(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].SourceID, "newest first")

	drafted, err := s.ListItems(ctx, "p1", model.StateDrafted)
	require.NoError(t, err)
	require.Len(t, drafted, 1)
	assert.Equal(t, "a", drafted[0].SourceID)

	got, err := s.GetItems(ctx, "p1", []string{"a", "missing", "b"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	_, ok := got["missing"]
	assert.False(t, ok)
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	created, err := s.UpdateItem(ctx, "p1", "x", func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error) {
		assert.False(t, exists)
		cur.State = model.StateSkip
		cur.UpdatedAt = now
		return cur, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", created.PersonaID)
	assert.Equal(t, "x", created.SourceID)

	sentinel := errors.New("reject")
	_, err = s.UpdateItem(ctx, "p1", "x", func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error) {
		assert.True(t, exists)
		return cur, sentinel
	})
	require.ErrorIs(t, err, sentinel)

	it, err := s.GetItem(ctx, "p1", "x")
	require.NoError(t, err)
	assert.Equal(t, model.StateSkip, it.State, "aborted update must not write")
}

func TestCampaignUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpdateCampaign(ctx, "c1", func(c *model.Campaign) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutCampaign(ctx, model.Campaign{ID: "c1", PersonaID: "p1", DailyPostCap: 2}))
	updated, err := s.UpdateCampaign(ctx, "c1", func(c *model.Campaign) error {
		c.CurrentDailyCount++
		c.IsActive = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentDailyCount)

	loaded, err := s.GetCampaign(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, loaded.IsActive)

	created, err := s.CreateCampaign(ctx, model.Campaign{ID: "c1", PersonaID: "other"})
	require.NoError(t, err)
	assert.False(t, created, "existing campaign must not be overwritten")
	created, err = s.CreateCampaign(ctx, model.Campaign{ID: "c2", PersonaID: "p2"})
	require.NoError(t, err)
	assert.True(t, created)

	list, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[string]model.Campaign{}
	for _, c := range list {
		byID[c.ID] = c
	}
	assert.Equal(t, "p1", byID["c1"].PersonaID)
}

func TestFingerprints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.HasFingerprint(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AddFingerprint(ctx, "p1", "fp1"))
	require.NoError(t, s.AddFingerprint(ctx, "p1", "fp1"))

	ok, err = s.HasFingerprint(ctx, "fp1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasPersonaFingerprint(ctx, "p1", "fp1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasPersonaFingerprint(ctx, "p2", "fp1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunHistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < runHistoryCap+5; i++ {
		require.NoError(t, s.AppendRun(ctx, model.RunSummary{CampaignID: "c1", Pages: i}))
	}
	runs, err := s.ListRuns(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, runs, runHistoryCap)
	assert.Equal(t, runHistoryCap+4, runs[0].Pages, "newest first")

	few, err := s.ListRuns(ctx, "c1", 3)
	require.NoError(t, err)
	assert.Len(t, few, 3)
}

func TestItemKeysUseBareSourceID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.UpdateItem(ctx, "p1", "t3_k1", func(cur model.ProcessedItem, exists bool) (model.ProcessedItem, error) {
		cur.State = model.StateDone
		cur.UpdatedAt = now
		return cur, nil
	})
	require.NoError(t, err)

	for _, id := range []string{"k1", "t3_k1", " K1 "} {
		it, err := s.GetItem(ctx, "p1", id)
		require.NoError(t, err, id)
		assert.Equal(t, "k1", it.SourceID)
	}
	got, err := s.GetItems(ctx, "p1", []string{"T3_K1"})
	require.NoError(t, err)
	assert.Contains(t, got, "T3_K1", "results are keyed by the id the caller asked for")

	list, err := s.ListItems(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
