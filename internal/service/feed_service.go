package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/observability"
)

const feedBufferSize = 32

// AllSchools subscribes to the events of every school.
const AllSchools uint = 0

// FeedService fans scan events out to live dashboard subscribers, across
// processes when redis or NATS is configured.
type FeedService interface {
	FeedPublisher
	Subscribe(schoolID uint) (<-chan dto.FeedEvent, func())
	Start(ctx context.Context)
}

type feedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *feedBroker
	nodeID       string
}

type feedEnvelope struct {
	Source string        `json:"source"`
	Event  dto.FeedEvent `json:"event"`
	SentAt time.Time     `json:"sent_at"`
}

type feedBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.FeedEvent]struct{}
}

// NewFeedService constructs the live feed. redisClient and natsConn may be nil.
func NewFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) FeedService {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":feed"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".feed"
	}

	return &feedService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "feed_service").Logger(),
		broker:       &feedBroker{subscribers: make(map[uint]map[chan dto.FeedEvent]struct{})},
		nodeID:       uuid.NewString(),
	}
}

func (s *feedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		s.consumeNATS(ctx)
	}
}

// Publish delivers locally first, then relays to other nodes. Relay failures
// are logged only.
func (s *feedService) Publish(ctx context.Context, event dto.FeedEvent) {
	s.broker.broadcast(event)

	payload, err := json.Marshal(feedEnvelope{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode feed event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to relay feed event to redis")
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to relay feed event to nats")
		}
	}
}

func (s *feedService) Subscribe(schoolID uint) (<-chan dto.FeedEvent, func()) {
	channel := make(chan dto.FeedEvent, feedBufferSize)

	s.broker.subscribe(schoolID, channel)
	observability.FeedClientsActive().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(schoolID, channel)
			observability.FeedClientsActive().Dec()
		})
	}

	return channel, cleanup
}

func (s *feedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("feed redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

// consumeNATS uses a plain subscription: every node must see every event.
func (s *feedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain feed nats subscription")
		}
	}()
}

func (s *feedService) handleEnvelope(payload []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid feed event payload")
		return
	}
	if envelope.Source == s.nodeID {
		return
	}
	s.broker.broadcast(envelope.Event)
}

func (b *feedBroker) subscribe(schoolID uint, ch chan dto.FeedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[schoolID]; !exists {
		b.subscribers[schoolID] = make(map[chan dto.FeedEvent]struct{})
	}
	b.subscribers[schoolID][ch] = struct{}{}
}

func (b *feedBroker) unsubscribe(schoolID uint, ch chan dto.FeedEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[schoolID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, schoolID)
		}
	}
}

// broadcast drops the event for subscribers whose buffer is full.
func (b *feedBroker) broadcast(event dto.FeedEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range []uint{event.SchoolID, AllSchools} {
		for ch := range b.subscribers[key] {
			select {
			case ch <- event:
			default:
			}
		}
		if event.SchoolID == AllSchools {
			break
		}
	}
}
