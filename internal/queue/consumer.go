package queue

import (
	"context"
	"encoding/json"
	"errors"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/logger"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const pollTimeout = 5 * time.Second

type Consumer struct {
	client redis.Cmdable
	queue  string
	dlq    string
	log    zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(client redis.Cmdable, queueName string, dlqSuffix string) *Consumer {
	return &Consumer{
		client: client,
		queue:  queueName,
		dlq:    queueName + dlqSuffix,
		log:    logger.Get().With().Str("queue", queueName).Logger(),
	}
}

// Consume blocks until ctx is done. Messages the handler rejects are moved to
// the dead letter queue.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, pollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("Failed to consume message")
			time.Sleep(time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		message := []byte(result[1])
		if err := handler(ctx, message); err != nil {
			c.log.Error().Err(err).Msg("Failed to process message")
			c.deadLetter(ctx, message)
		}
	}
}

// DeadLetter parks a job that exhausted its attempts.
func (c *Consumer) DeadLetter(ctx context.Context, job entity.ExtractionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return c.client.LPush(ctx, c.dlq, data).Err()
}

func (c *Consumer) deadLetter(ctx context.Context, message []byte) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pollTimeout)
	defer cancel()

	if err := c.client.LPush(ctx, c.dlq, message).Err(); err != nil {
		c.log.Error().Err(err).Str("dlq", c.dlq).Msg("Failed to move message to DLQ")
	}
}
