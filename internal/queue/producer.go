package queue

import (
	"context"
	"encoding/json"
	"tender-marketplace-api/internal/entity"

	"github.com/redis/go-redis/v9"
)

type Producer struct {
	client redis.Cmdable
	queue  string
}

func NewProducer(client redis.Cmdable, queueName string) *Producer {
	return &Producer{
		client: client,
		queue:  queueName,
	}
}

func (p *Producer) EnqueueExtraction(ctx context.Context, job entity.ExtractionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	return p.client.LPush(ctx, p.queue, data).Err()
}

// Backlog reports how many jobs wait in the queue.
func (p *Producer) Backlog(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queue).Result()
}

// ExtractionQueue is the producer and the consumer of one extraction list.
type ExtractionQueue struct {
	*Producer
	*Consumer
}

func NewExtractionQueue(client redis.Cmdable, queueName string, dlqSuffix string) *ExtractionQueue {
	return &ExtractionQueue{
		Producer: NewProducer(client, queueName),
		Consumer: NewConsumer(client, queueName, dlqSuffix),
	}
}
