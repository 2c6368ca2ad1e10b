package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	return New(loc, zerolog.New(io.Discard))
}

func TestSchedulerRunNow(t *testing.T) {
	s := newTestScheduler(t)
	var runs atomic.Int32

	require.NoError(t, s.Register(Job{Name: "test_ok", Spec: "10 9 * * *", Run: func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		runs.Add(1)
		return nil
	}}))
	boom := errors.New("boom")
	require.NoError(t, s.Register(Job{Name: "test_fail", Spec: "0 12 * * *", Run: func(context.Context) error { return boom }}))

	require.NoError(t, s.RunNow(context.Background(), "test_ok"))
	require.Equal(t, int32(1), runs.Load())

	require.ErrorIs(t, s.RunNow(context.Background(), "test_fail"), boom)
	require.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrUnknownJob)
}

func TestSchedulerRegisterRejects(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	require.Error(t, s.Register(Job{Name: "bad", Spec: "not a spec", Run: noop}))
	require.Error(t, s.Register(Job{Spec: "0 9 * * *", Run: noop}))
	require.NoError(t, s.Register(Job{Name: JobAbsenceCheck, Spec: "10 9 * * *", Run: noop}))
	require.Error(t, s.Register(Job{Name: JobAbsenceCheck, Spec: "10 9 * * *", Run: noop}))
}

func TestSchedulerNextRunInLocation(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Register(Job{Name: JobKitchenSnapshot, Spec: "30 10 * * *", Run: func(context.Context) error { return nil }}))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	defer func() { require.NoError(t, s.Stop(ctx)) }()

	entries := s.Entries()
	require.Len(t, entries, 1)
	next := entries[0].Next
	require.False(t, next.IsZero())
	require.Equal(t, "Europe/Madrid", next.Location().String())
	require.Equal(t, 10, next.Hour())
	require.Equal(t, 30, next.Minute())
}
