package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/noah-isme/arrivapp-go-api/internal/dto"
	"github.com/noah-isme/arrivapp-go-api/internal/service"
)

const (
	defaultFeedKeepAlive = 20 * time.Second
	feedSchoolLocal      = "feed_school_id"
)

// FeedSubscriber is the part of the live feed the handler needs.
type FeedSubscriber interface {
	Subscribe(schoolID uint) (<-chan dto.FeedEvent, func())
}

// FeedHandler streams scan events to dashboards over SSE or websocket.
type FeedHandler struct {
	feed      FeedSubscriber
	keepAlive time.Duration
	logger    zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewFeedHandler constructs a feed handler. keepAlive defaults to 20s.
func NewFeedHandler(feed FeedSubscriber, keepAlive time.Duration, logger zerolog.Logger) *FeedHandler {
	if keepAlive <= 0 {
		keepAlive = defaultFeedKeepAlive
	}
	return &FeedHandler{
		feed:      feed,
		keepAlive: keepAlive,
		logger:    logger.With().Str("component", "feed_handler").Logger(),
		done:      make(chan struct{}),
	}
}

// Register wires the SSE stream and the websocket upgrade.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Get("/feed", h.stream)
	router.Use("/feed/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		schoolID, ok, err := schoolFromQuery(c, true)
		if !ok {
			return err
		}
		c.Locals(feedSchoolLocal, schoolID)
		return c.Next()
	})
	router.Get("/feed/ws", websocket.New(h.handleConnection))
}

// Close ends every open stream. Called before the server shuts down.
func (h *FeedHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *FeedHandler) stream(c *fiber.Ctx) error {
	schoolID, ok, err := schoolFromQuery(c, true)
	if !ok {
		return err
	}

	events, cancel := h.feed.Subscribe(schoolID)
	logger := requestLogger(h.logger, c).With().Uint("school_id", schoolID).Logger()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		logger.Debug().Msg("feed stream opened")
		defer logger.Debug().Msg("feed stream closed")

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		if _, err := w.WriteString(": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case <-h.done:
				return
			case event, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					logger.Warn().Err(err).Msg("failed to encode feed event")
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Action, payload); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func (h *FeedHandler) handleConnection(conn *websocket.Conn) {
	schoolID, _ := conn.Locals(feedSchoolLocal).(uint)
	events, cancel := h.feed.Subscribe(schoolID)
	defer cancel()
	defer func() { _ = conn.Close() }()

	logger := h.logger.With().Uint("school_id", schoolID).Logger()
	logger.Info().Msg("feed websocket connected")
	defer logger.Info().Msg("feed websocket disconnected")

	// Reads only detect the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-gone:
			return
		case event, open := <-events:
			if !open {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("feed websocket write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ FeedSubscriber = (service.FeedService)(nil)
