package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/margin/internal/build"
)

type countingRebuilder struct {
	runs atomic.Int32
	err  error
}

func (c *countingRebuilder) Run(context.Context) (build.Outcome, error) {
	c.runs.Add(1)
	if c.err != nil {
		return build.OutcomeFailed, c.err
	}
	return build.OutcomeBuilt, nil
}

func TestScheduler_ScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleEvery("test", 10*time.Second, func(context.Context) {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery("test", 0, func(context.Context) {})
		require.Error(t, err)
	})
}

func TestScheduler_PeriodicBuildRuns(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	rb := &countingRebuilder{}
	_, err = s.SchedulePeriodicBuild(20*time.Millisecond, rb)
	require.NoError(t, err)
	s.Start(t.Context())

	require.Eventually(t, func() bool { return rb.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_FailedBuildKeepsSchedule(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	rb := &countingRebuilder{err: errors.New("broken content")}
	_, err = s.SchedulePeriodicBuild(20*time.Millisecond, rb)
	require.NoError(t, err)
	s.Start(t.Context())

	require.Eventually(t, func() bool { return rb.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_JobsReceiveStartContext(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	type key struct{}
	seen := make(chan any, 1)
	_, err = s.ScheduleEvery("ctx", 20*time.Millisecond, func(ctx context.Context) {
		select {
		case seen <- ctx.Value(key{}):
		default:
		}
	})
	require.NoError(t, err)
	s.Start(context.WithValue(t.Context(), key{}, "marker"))

	select {
	case v := <-seen:
		require.Equal(t, "marker", v)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}
