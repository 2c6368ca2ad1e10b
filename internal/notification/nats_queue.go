package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const natsQueueGroup = "arrivapp-notification-workers"

// ErrQueueDisconnected is returned when the broker connection is down at
// publish time.
var ErrQueueDisconnected = errors.New("notification queue disconnected")

// NATSQueue publishes intents on a subject consumed by a queue group, so each
// intent reaches at most one subscribed worker. Core NATS keeps nothing for
// absent subscribers; an accepted publish only means the server received it.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSQueue builds a queue on subject.
func NewNATSQueue(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSQueue {
	if subject == "" {
		subject = "arrivapp.notifications.queue"
	}
	return &NATSQueue{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_queue").Logger(),
	}
}

// Publish sends the JSON-encoded intent and waits for the server to
// acknowledge the flush, bounded by ctx.
func (q *NATSQueue) Publish(ctx context.Context, intent Intent) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return ErrQueueDisconnected
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	if err := q.conn.Publish(q.subject, payload); err != nil {
		return fmt.Errorf("publish intent: %w", err)
	}
	if err := q.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush intent: %w", err)
	}
	return nil
}

// Consume joins the worker queue group. Messages wait in the subscription's
// pending buffer until the worker pulls them.
func (q *NATSQueue) Consume(ctx context.Context) (<-chan Intent, error) {
	if q.conn == nil || !q.conn.IsConnected() {
		return nil, ErrQueueDisconnected
	}
	sub, err := q.conn.QueueSubscribeSync(q.subject, natsQueueGroup)
	if err != nil {
		return nil, err
	}

	out := make(chan Intent)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				q.logger.Warn().Err(err).Msg("failed to unsubscribe from nats queue")
			}
		}()
		for {
			msg, err := sub.NextMsgWithContext(ctx)
			if err != nil {
				if ctx.Err() == nil {
					q.logger.Warn().Err(err).Msg("nats queue subscription ended")
				}
				return
			}
			intent, ok := q.decode(msg.Data)
			if !ok {
				continue
			}
			select {
			case out <- intent:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (q *NATSQueue) decode(data []byte) (Intent, bool) {
	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		q.logger.Warn().Err(err).Msg("discarding malformed notification intent")
		return Intent{}, false
	}
	if intent.ID == "" {
		q.logger.Warn().Msg("discarding notification intent without id")
		return Intent{}, false
	}
	return intent, true
}
