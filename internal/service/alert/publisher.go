package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/corebank/ledger/internal/domain"
)

const DefaultQueue = "ledger:alerts"

type alertMessage struct {
	ID            string           `json:"id"`
	AccountID     string           `json:"account_id"`
	TransactionID string           `json:"transaction_id,omitempty"`
	Type          domain.AlertType `json:"type"`
	Message       string           `json:"message"`
	CreatedAt     string           `json:"created_at"`
}

func encodeAlert(a domain.Alert) ([]byte, error) {
	msg := alertMessage{
		ID:        a.ID.String(),
		AccountID: a.AccountID.String(),
		Type:      a.Type,
		Message:   a.Message,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if a.TransactionID != nil && *a.TransactionID != uuid.Nil {
		msg.TransactionID = a.TransactionID.String()
	}
	return json.Marshal(msg)
}

// RedisPublisher appends alerts as JSON to a Redis list.
type RedisPublisher struct {
	client *redis.Client
	queue  string
}

func NewRedisPublisher(client *redis.Client, queue string) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisPublisher{client: client, queue: queue}
}

func (p *RedisPublisher) Publish(ctx context.Context, a domain.Alert) error {
	data, err := encodeAlert(a)
	if err != nil {
		return fmt.Errorf("Publish: encode: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, string(data)).Err(); err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	return nil
}
