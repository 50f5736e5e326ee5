package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/droppoint-backend/pkg/redis"
)

const defaultSessionBuffer = 16

// RedisRelay publishes committed order changes on a shared channel so every
// API instance's Hub sees them.
type RedisRelay struct {
	publisher redis.Publisher
	channel   string
}

// NewRedisRelay builds a relay publishing to channel.
func NewRedisRelay(publisher redis.Publisher, channel string) (*RedisRelay, error) {
	if publisher == nil {
		return nil, errors.New("redis publisher required")
	}
	if channel == "" {
		return nil, errors.New("live channel required")
	}
	return &RedisRelay{publisher: publisher, channel: channel}, nil
}

// Publish implements orders.LiveNotifier.
func (r *RedisRelay) Publish(ctx context.Context, event payloads.OrderChangedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, r.channel, payload)
}

// Session is one connected viewer.
type Session struct {
	id     uuid.UUID
	userID uuid.UUID
	role   enums.ActorRole
	events chan payloads.OrderChangedEvent
}

// Events yields the order changes this viewer may see.
func (s *Session) Events() <-chan payloads.OrderChangedEvent {
	return s.events
}

func (s *Session) canSee(event payloads.OrderChangedEvent) bool {
	if s.role.IsOperator() {
		return true
	}
	return event.Order.CustomerID == s.userID
}

// Hub fans live order changes out to the SSE sessions of this instance.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	buffer   int
	logg     *logger.Logger
}

// NewHub builds an empty hub. buffer bounds each session's backlog.
func NewHub(buffer int, logg *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultSessionBuffer
	}
	return &Hub{
		sessions: make(map[uuid.UUID]*Session),
		buffer:   buffer,
		logg:     logg,
	}
}

// Subscribe registers a viewer. The returned func unregisters it and must be called.
func (h *Hub) Subscribe(userID uuid.UUID, role enums.ActorRole) (*Session, func()) {
	session := &Session{
		id:     uuid.New(),
		userID: userID,
		role:   role,
		events: make(chan payloads.OrderChangedEvent, h.buffer),
	}
	h.mu.Lock()
	h.sessions[session.id] = session
	h.mu.Unlock()

	var once sync.Once
	return session, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.sessions, session.id)
			h.mu.Unlock()
			close(session.events)
		})
	}
}

// Size returns the number of connected sessions.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Dispatch delivers event to every session allowed to see it. A session whose
// backlog is full misses the event; polling reconciles it.
func (h *Hub) Dispatch(ctx context.Context, event payloads.OrderChangedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, session := range h.sessions {
		if !session.canSee(event) {
			continue
		}
		select {
		case session.events <- event:
		default:
			if h.logg != nil {
				logCtx := h.logg.WithFields(ctx, map[string]any{
					"session_id": session.id.String(),
					"order_id":   event.Order.ID.String(),
				})
				h.logg.Warn(logCtx, "live session backlog full, event dropped")
			}
		}
	}
}

// Run relays messages from the live channel subscription until ctx ends.
func (h *Hub) Run(ctx context.Context, sub redis.Subscription) error {
	if sub == nil {
		return errors.New("live subscription required")
	}
	defer func() { _ = sub.Close() }()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event payloads.OrderChangedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				if h.logg != nil {
					h.logg.Error(ctx, "decode live order event", err)
				}
				continue
			}
			h.Dispatch(ctx, event)
		}
	}
}
