package service

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtcwstats/internal/notify"
	"rtcwstats/internal/repository"
	"rtcwstats/internal/store"
)

var groupNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestGroupService(st *store.MemoryStore) (*GroupService, *notify.RecordingNotifier) {
	log := zerolog.Nop()
	notifier := &notify.RecordingNotifier{}
	s := NewGroupService(
		repository.NewMatchRepository(st, log),
		st,
		store.NewBatcher(st, log, store.WithBaseBackoff(time.Microsecond)),
		notifier,
		log,
	)
	s.now = func() time.Time { return groupNow }
	return s, notifier
}

func seedMatchRound(t *testing.T, st *store.MemoryStore, regionType string, played time.Time) {
	t.Helper()
	id := strconv.FormatInt(played.Unix(), 10)
	require.NoError(t, st.Put(context.Background(), store.Record{
		PK:      "match",
		SK:      id + "1",
		LSIPK:   regionType + "#" + id + "1",
		Data:    json.RawMessage(`{}`),
		MatchID: id,
	}))
}

func TestGroupPeriod_CreatesMonthlyGroupOnce(t *testing.T) {
	st := store.NewMemoryStore()
	s, notifier := newTestGroupService(st)
	ctx := context.Background()

	seedMatchRound(t, st, "na#3", groupNow.AddDate(0, 0, -3))
	seedMatchRound(t, st, "na#3", groupNow.AddDate(0, 0, -10))
	// outside the window
	seedMatchRound(t, st, "na#3", groupNow.AddDate(0, 0, -60))
	// different bucket
	seedMatchRound(t, st, "eu#6", groupNow.AddDate(0, 0, -3))

	require.NoError(t, s.GroupPeriod(ctx, "na#3"))

	rec, err := st.Get(ctx, "group", "2026-08#na#3")
	require.NoError(t, err)
	var group struct {
		Matches []string `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Data, &group))
	assert.Len(t, group.Matches, 2)

	require.Len(t, notifier.Events, 1)
	assert.Equal(t, notify.KindNewGroup, notifier.Events[0].NotificationType)

	// a second run announces nothing new
	require.NoError(t, s.GroupPeriod(ctx, "na#3"))
	assert.Len(t, notifier.Events, 1)
}

func TestGroupPeriod_NoMatchesNoGroup(t *testing.T) {
	st := store.NewMemoryStore()
	s, notifier := newTestGroupService(st)

	require.NoError(t, s.GroupPeriod(context.Background(), "na#3"))

	_, err := st.Get(context.Background(), "group", "2026-08#na#3")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, notifier.Events)
}
