package notification

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail map[string]bool
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type outcome struct {
	intent Intent
	sent   bool
}

type recordingRecorder struct {
	ch chan outcome
}

func (r *recordingRecorder) RecordOutcome(ctx context.Context, intent Intent, sent bool, at time.Time) error {
	r.ch <- outcome{intent: intent, sent: sent}
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestDispatcherDeliversAndRecordsOutcome(t *testing.T) {
	queue := NewMemoryQueue(8)
	m := &recordingMailer{fail: map[string]bool{"broken@example.com": true}}
	recorder := &recordingRecorder{ch: make(chan outcome, 4)}
	dispatcher := NewDispatcher(queue, m, recorder, DispatcherConfig{Workers: 2, SendTimeout: time.Second, MaxAttempts: 2, RetryBackoff: time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = dispatcher.Run(ctx)
	}()

	now := time.Now()
	require.True(t, dispatcher.Enqueue(ctx, NewIntent(KindCheckin, 11, mailer.Message{To: "parent@example.com", Subject: "in"}, now)))
	require.True(t, dispatcher.Enqueue(ctx, NewIntent(KindCheckout, 12, mailer.Message{To: "broken@example.com", Subject: "out"}, now)))

	results := map[uint]bool{}
	for i := 0; i < 2; i++ {
		select {
		case o := <-recorder.ch:
			results[o.intent.RefID] = o.sent
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery outcome")
		}
	}
	require.True(t, results[11])
	require.False(t, results[12])

	cancel()
	<-done
	require.Len(t, m.sent, 1)
}

func TestDispatcherEnqueueReportsFullQueue(t *testing.T) {
	queue := NewMemoryQueue(1)
	dispatcher := NewDispatcher(queue, &recordingMailer{}, nil, DispatcherConfig{EnqueueTimeout: 20 * time.Millisecond}, testLogger())

	ctx := context.Background()
	require.True(t, dispatcher.Enqueue(ctx, NewIntent(KindCheckin, 1, mailer.Message{To: "a@example.com"}, time.Now())))
	require.False(t, dispatcher.Enqueue(ctx, NewIntent(KindCheckin, 2, mailer.Message{To: "b@example.com"}, time.Now())))
	require.Equal(t, 1, queue.Len())
}

func TestDispatcherEnqueueSurvivesCancelledCaller(t *testing.T) {
	queue := NewMemoryQueue(1)
	dispatcher := NewDispatcher(queue, &recordingMailer{}, nil, DispatcherConfig{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, dispatcher.Enqueue(ctx, NewIntent(KindCheckin, 1, mailer.Message{To: "a@example.com"}, time.Now())))
}

func TestDispatcherSkipsIntentWithoutRecipient(t *testing.T) {
	queue := NewMemoryQueue(1)
	dispatcher := NewDispatcher(queue, &recordingMailer{}, nil, DispatcherConfig{}, testLogger())

	require.False(t, dispatcher.Enqueue(context.Background(), NewIntent(KindAbsenceSchool, 0, mailer.Message{}, time.Now())))
	require.Zero(t, queue.Len())
}

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	attempts int
}

func (m *flakyMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.attempts <= m.failures {
		return errors.New("temporary smtp failure")
	}
	return nil
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	cases := []struct {
		name     string
		failures int
		sent     bool
		attempts int
	}{
		{name: "recovers on third attempt", failures: 2, sent: true, attempts: 3},
		{name: "gives up after max attempts", failures: 5, sent: false, attempts: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &flakyMailer{failures: tc.failures}
			recorder := &recordingRecorder{ch: make(chan outcome, 1)}
			dispatcher := NewDispatcher(NewMemoryQueue(1), m, recorder, DispatcherConfig{
				SendTimeout:  time.Second,
				MaxAttempts:  3,
				RetryBackoff: time.Millisecond,
			}, testLogger())

			dispatcher.deliver(context.Background(), NewIntent(KindCheckin, 5, mailer.Message{To: "parent@example.com"}, time.Now()))

			o := <-recorder.ch
			require.Equal(t, tc.sent, o.sent)
			require.Equal(t, tc.attempts, m.attempts)
		})
	}
}

func TestDispatcherStopsRetryingOnShutdown(t *testing.T) {
	m := &flakyMailer{failures: 10}
	recorder := &recordingRecorder{ch: make(chan outcome, 1)}
	dispatcher := NewDispatcher(NewMemoryQueue(1), m, recorder, DispatcherConfig{
		SendTimeout:  time.Second,
		MaxAttempts:  5,
		RetryBackoff: time.Hour,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dispatcher.deliver(ctx, NewIntent(KindCheckin, 5, mailer.Message{To: "parent@example.com"}, time.Now()))

	o := <-recorder.ch
	require.False(t, o.sent)
	require.Equal(t, 1, m.attempts)
}
