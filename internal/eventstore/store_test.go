package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/margin/internal/build"
	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func lifecycle(id string, at time.Time, final build.EventType) []build.Event {
	return []build.Event{
		{BuildID: id, Type: build.EventStarted, Epoch: build.Epoch(at.UnixNano()), At: at},
		{BuildID: id, Type: final, Epoch: build.Epoch(at.UnixNano()), Version: 1, Duration: 40 * time.Millisecond, At: at.Add(40 * time.Millisecond)},
	}
}

func TestSQLiteStore_AppendAndByBuild(t *testing.T) {
	store := openMemory(t)
	ctx := t.Context()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, ev := range lifecycle("b1", at, build.EventSucceeded) {
		require.NoError(t, store.Append(ctx, ev))
	}
	require.NoError(t, store.Append(ctx, build.Event{BuildID: "other", Type: build.EventStarted, At: at}))

	events, err := store.ByBuild(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, build.EventStarted, events[0].Type)
	assert.Equal(t, build.EventSucceeded, events[1].Type)
	assert.Equal(t, 40*time.Millisecond, events[1].Duration)
	assert.True(t, at.Equal(events[0].At))
}

func TestSQLiteStore_RecentLimitsBuilds(t *testing.T) {
	store := openMemory(t)
	ctx := t.Context()
	base := time.Now()

	for i, id := range []string{"a", "b", "c"} {
		for _, ev := range lifecycle(id, base.Add(time.Duration(i)*time.Second), build.EventSucceeded) {
			store.OnBuildEvent(ctx, ev)
		}
	}

	events, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "b", events[0].BuildID)
	assert.Equal(t, "c", events[3].BuildID)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), build.Event{BuildID: "x", Type: build.EventFailed, Error: "boom", At: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.ByBuild(t.Context(), "x")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "boom", events[0].Error)
}

func TestSQLiteStore_ObserverSurvivesClosedDB(t *testing.T) {
	store, err := Open(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.NotPanics(t, func() {
		store.OnBuildEvent(t.Context(), build.Event{BuildID: "late", Type: build.EventStarted})
	})
	err = store.Append(t.Context(), build.Event{BuildID: "late"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEventStore))
}

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var events []build.Event
	events = append(events, lifecycle("first", base, build.EventSuperseded)...)
	events = append(events, lifecycle("second", base.Add(time.Second), build.EventSucceeded)...)
	events = append(events, build.Event{BuildID: "third", Type: build.EventStarted, At: base.Add(2 * time.Second)})
	events = append(events, build.Event{BuildID: "third", Type: build.EventFailed, Error: "render failed", At: base.Add(3 * time.Second)})
	events = append(events, build.Event{BuildID: "", Type: build.EventStarted})

	got := Summarize(events)
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].BuildID)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "render failed", got[0].Error)
	assert.Equal(t, StatusSucceeded, got[1].Status)
	assert.Equal(t, uint64(1), got[1].Version)
	assert.Equal(t, StatusSuperseded, got[2].Status)
	assert.True(t, base.Equal(got[2].StartedAt))
}

func TestSummarize_Running(t *testing.T) {
	got := Summarize([]build.Event{{BuildID: "r", Type: build.EventStarted, Revision: "abc"}})
	require.Len(t, got, 1)
	assert.Equal(t, StatusRunning, got[0].Status)
	assert.Equal(t, "abc", got[0].Revision)
}
