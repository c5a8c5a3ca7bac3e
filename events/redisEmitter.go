package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Channel carries every issue event; the realtime layer fans out to
// connected dashboards from there.
const Channel = "civicdesk:events"

type redisEmitter struct {
	client *redis.Client
}

// NewRedisEmitter publishes events as JSON on the shared Redis channel.
func NewRedisEmitter(client *redis.Client) Emitter {
	return &redisEmitter{client: client}
}

func (e *redisEmitter) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event %s marshal failed: %v", event.Type, err)
		return
	}
	if err := e.client.Publish(ctx, Channel, payload).Err(); err != nil {
		log.Printf("event %s publish failed: %v", event.Type, err)
	}
}
