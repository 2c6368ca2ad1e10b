package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/observability"
	"github.com/noah-isme/arrivapp-go-api/pkg/mailer"
)

const (
	defaultWorkers        = 4
	defaultSendTimeout    = 10 * time.Second
	defaultEnqueueTimeout = 2 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryBackoff   = 500 * time.Millisecond
)

// Enqueuer accepts intents for asynchronous delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, intent Intent) bool
}

// OutcomeRecorder persists the delivery result of an intent.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, intent Intent, sent bool, at time.Time) error
}

// DispatcherConfig tunes the worker pool.
type DispatcherConfig struct {
	Workers        int
	SendTimeout    time.Duration
	EnqueueTimeout time.Duration
	// MaxAttempts bounds sends per intent, the first included.
	MaxAttempts int
	// RetryBackoff is the pause before the second attempt; it doubles after.
	RetryBackoff time.Duration
}

// Dispatcher moves intents through the queue and delivers them with a pool of
// workers. A failed send is retried with backoff up to MaxAttempts; the final
// result is recorded once.
type Dispatcher struct {
	queue    Queue
	mailer   mailer.Mailer
	recorder OutcomeRecorder
	cfg      DispatcherConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDispatcher constructs a dispatcher. recorder may be nil.
func NewDispatcher(queue Queue, m mailer.Mailer, recorder OutcomeRecorder, cfg DispatcherConfig, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = defaultEnqueueTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}

	return &Dispatcher{
		queue:    queue,
		mailer:   m,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.With().Str("component", "notification_dispatcher").Logger(),
		now:      time.Now,
	}
}

// Enqueue hands the intent to the queue and reports whether it was accepted.
// The caller's cancellation does not abort the hand-off; the enqueue timeout
// bounds it instead.
func (d *Dispatcher) Enqueue(ctx context.Context, intent Intent) bool {
	if intent.Message.To == "" {
		return false
	}

	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.EnqueueTimeout)
	defer cancel()

	if err := d.queue.Publish(enqueueCtx, intent); err != nil {
		observability.QueueEnqueueFailures().WithLabelValues(string(intent.Kind)).Inc()
		d.logger.Warn().
			Err(err).
			Str("intent_id", intent.ID).
			Str("kind", string(intent.Kind)).
			Msg("failed to enqueue notification")
		return false
	}
	return true
}

// Run consumes the queue with the configured number of workers until ctx is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	intents, err := d.queue.Consume(ctx)
	if err != nil {
		return err
	}

	d.logger.Info().Int("workers", d.cfg.Workers).Msg("notification dispatcher started")

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for intent := range intents {
				d.deliver(ctx, intent)
			}
		}()
	}
	wg.Wait()

	d.logger.Info().Msg("notification dispatcher stopped")
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, intent Intent) {
	err := d.send(ctx, intent)

	sent := err == nil
	status := "sent"
	if !sent {
		status = "failed"
		d.logger.Warn().
			Err(err).
			Str("intent_id", intent.ID).
			Str("kind", string(intent.Kind)).
			Str("to", mailer.MaskAddress(intent.Message.To)).
			Msg("notification delivery failed")
	}
	observability.NotificationsTotal().WithLabelValues(string(intent.Kind), status).Inc()

	if d.recorder == nil {
		return
	}
	recordCtx, cancelRecord := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.SendTimeout)
	defer cancelRecord()
	if err := d.recorder.RecordOutcome(recordCtx, intent, sent, d.now()); err != nil {
		d.logger.Error().
			Err(err).
			Str("intent_id", intent.ID).
			Uint("ref_id", intent.RefID).
			Msg("failed to record notification outcome")
	}
}

// send tries the mailer up to MaxAttempts times. Shutdown stops the backoff
// wait but never interrupts an attempt in flight.
func (d *Dispatcher) send(ctx context.Context, intent Intent) error {
	backoff := d.cfg.RetryBackoff
	var err error
	for attempt := 1; ; attempt++ {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.SendTimeout)
		err = d.mailer.Send(sendCtx, intent.Message)
		cancel()
		if err == nil || attempt >= d.cfg.MaxAttempts {
			return err
		}

		d.logger.Debug().
			Err(err).
			Str("intent_id", intent.ID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("retrying notification delivery")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		backoff *= 2
	}
}
