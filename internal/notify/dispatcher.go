package notify

import (
	"context"
	"encoding/json"
	"sync"
	"tender-marketplace-api/internal/logger"
	"tender-marketplace-api/internal/repo"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Event is the message published on the notification channel.
type Event struct {
	Id        uuid.UUID       `json:"id"`
	UserId    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

type Dispatcher struct {
	repo      repo.Notification
	publisher Publisher
	channel   string
	wg        sync.WaitGroup
	log       zerolog.Logger
}

// NewDispatcher builds a dispatcher. A nil publisher only persists.
func NewDispatcher(notifications repo.Notification, publisher Publisher, channel string) *Dispatcher {
	return &Dispatcher{
		repo:      notifications,
		publisher: publisher,
		channel:   channel,
		log:       logger.Get().With().Str("component", "notify").Logger(),
	}
}

// Notify delivers in the background and never reports failures to the caller.
func (d *Dispatcher) Notify(ctx context.Context, userId uuid.UUID, kind string, payload map[string]any) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ctx, userId, kind, payload)
	}()
}

// Wait blocks until every pending delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, userId uuid.UUID, kind string, payload map[string]any) {
	log := d.log.With().Str("user_id", userId.String()).Str("kind", kind).Logger()

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode notification")
		return
	}

	id, err := d.repo.CreateNotification(ctx, userId, kind, data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist notification")
		return
	}

	if d.publisher == nil {
		return
	}

	event, err := json.Marshal(Event{
		Id:        id,
		UserId:    userId,
		Kind:      kind,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode notification event")
		return
	}

	if err := d.publisher.Publish(ctx, d.channel, event).Err(); err != nil {
		log.Error().Err(err).Str("channel", d.channel).Msg("Failed to publish notification")
		return
	}

	log.Debug().Str("notification_id", id.String()).Msg("Notification dispatched")
}
