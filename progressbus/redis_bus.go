package progressbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const userChannelFmt = "leadgrid:progress:%s"

// envelope is the wire shape published to a user's channel: the event type
// tag plus the caller's raw payload, so a single subscriber can distinguish
// job_update/job_progress/job_deleted/active_jobs_status without a second
// round trip.
type envelope struct {
	Type    UpdateType  `json:"type"`
	Payload interface{} `json:"payload"`
}

// RedisBus publishes to a per-user Redis Pub/Sub channel. Grounded on the
// go-redis/v9 client already wired for jobqueue.RedisQueue; the HTTP
// layer's SUBSCRIBE side is outside this module's scope (spec.md §1).
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps an already-connected client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) EmitJobUpdate(ctx context.Context, userID string, updateType UpdateType, payload interface{}) error {
	raw, err := encode(envelope{Type: updateType, Payload: payload})
	if err != nil {
		return fmt.Errorf("progressbus: encode event: %w", err)
	}
	if err := b.client.Publish(ctx, fmt.Sprintf(userChannelFmt, userID), raw).Err(); err != nil {
		return fmt.Errorf("progressbus: publish: %w", err)
	}
	return nil
}
