package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"audubonwatch/internal/listing"
	"audubonwatch/pkg/errors"
)

// streamMaxLength caps the stream so consumers that fall behind do not make
// the server grow without bound.
const streamMaxLength = 500

// RedisPublisher implements Publisher using a Redis stream
type RedisPublisher struct {
	client *redis.Client
	ctx    context.Context
	stream string
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, stream string) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client: client,
		ctx:    ctx,
		stream: stream,
	}
}

// PublishNew publishes each new listing as one stream entry.
// The listing JSON is base64 encoded before publishing.
func (p *RedisPublisher) PublishNew(listings []listing.Listing) error {
	for _, l := range listings {
		if !l.IsNew {
			continue
		}

		payload, err := json.Marshal(l)
		if err != nil {
			return errors.NewPublisher(l.SourceKey, "failed to marshal listing", err)
		}

		encoded := base64.StdEncoding.EncodeToString(payload)

		err = p.client.XAdd(p.ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: streamMaxLength,
			Approx: true,
			Values: map[string]interface{}{
				"b64_listing": encoded,
			},
		}).Err()
		if err != nil {
			return errors.NewPublisher(l.SourceKey, "failed to publish listing", err)
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
