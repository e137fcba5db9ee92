package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"notes-console/internal/domain"
)

// IdentityEvent es una notificacion de cambio de sesion.
// Identity nil significa que la sesion cerro.
type IdentityEvent struct {
	SessionID string           `json:"session_id"`
	Identity  *domain.Identity `json:"identity"`
}

// IdentityFeed entrega los eventos de identidad a los suscriptores.
type IdentityFeed interface {
	Publish(ctx context.Context, event IdentityEvent) error
	// Subscribe devuelve el canal de eventos y la funcion que cancela la suscripcion.
	Subscribe(ctx context.Context) (<-chan IdentityEvent, func(), error)
}

const (
	identityChannel      = "auth:identity"
	subscriberBufferSize = 64
)

var ErrInvalidEvent = errors.New("invalid identity event")

func validateEvent(event IdentityEvent) error {
	if strings.TrimSpace(event.SessionID) == "" {
		return ErrInvalidEvent
	}
	if event.Identity != nil && strings.TrimSpace(event.Identity.ID) == "" {
		return ErrInvalidEvent
	}
	return nil
}

type memoryIdentityFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan IdentityEvent
}

// NewMemoryIdentityFeed reparte eventos entre suscriptores del mismo proceso.
func NewMemoryIdentityFeed() IdentityFeed {
	return &memoryIdentityFeed{subs: make(map[int]chan IdentityEvent)}
}

func (f *memoryIdentityFeed) Publish(ctx context.Context, event IdentityEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *memoryIdentityFeed) Subscribe(_ context.Context) (<-chan IdentityEvent, func(), error) {
	ch := make(chan IdentityEvent, subscriberBufferSize)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// redisPubSubClient es la parte de *redis.Client que usa el feed.
type redisPubSubClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type redisIdentityFeed struct {
	client  redisPubSubClient
	channel string
	logger  *zap.Logger
}

// NewRedisIdentityFeed publica los eventos en Redis Pub/Sub para que todas las replicas los vean.
func NewRedisIdentityFeed(client *redis.Client, logger *zap.Logger) IdentityFeed {
	if client == nil {
		return NewMemoryIdentityFeed()
	}
	return newRedisIdentityFeed(client, logger)
}

func newRedisIdentityFeed(client redisPubSubClient, logger *zap.Logger) *redisIdentityFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisIdentityFeed{client: client, channel: identityChannel, logger: logger}
}

func (f *redisIdentityFeed) Publish(ctx context.Context, event IdentityEvent) error {
	payload, err := encodeIdentityEvent(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

func (f *redisIdentityFeed) Subscribe(ctx context.Context) (<-chan IdentityEvent, func(), error) {
	pubsub := f.client.Subscribe(ctx, f.channel)
	// Esperar la confirmacion para no perder eventos publicados justo despues.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan IdentityEvent, subscriberBufferSize)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := decodeIdentityEvent(msg.Payload)
				if err != nil {
					f.logger.Warn("identity feed payload discarded", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

func encodeIdentityEvent(event IdentityEvent) ([]byte, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	return json.Marshal(event)
}

func decodeIdentityEvent(payload string) (IdentityEvent, error) {
	var event IdentityEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return IdentityEvent{}, err
	}
	if err := validateEvent(event); err != nil {
		return IdentityEvent{}, err
	}
	return event, nil
}
