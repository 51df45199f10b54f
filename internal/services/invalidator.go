// internal/services/invalidator.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const InvalidationChannel = "catalog:invalidate"

// Invalidator tells the storefront that catalog paths changed.
type Invalidator interface {
	Invalidate(ctx context.Context, paths ...string) error
}

type invalidationMessage struct {
	Paths     []string `json:"paths"`
	Timestamp int64    `json:"timestamp"`
}

// RedisInvalidator publishes paths on a pub/sub channel.
type RedisInvalidator struct {
	client  *redis.Client
	channel string
}

func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client, channel: InvalidationChannel}
}

func (i *RedisInvalidator) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	data, err := json.Marshal(invalidationMessage{Paths: paths, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	logrus.WithFields(logrus.Fields{"channel": i.channel, "paths": paths}).Debug("Published catalog invalidation")
	return nil
}

// LogInvalidator only logs; used when Redis is disabled.
type LogInvalidator struct{}

func (LogInvalidator) Invalidate(ctx context.Context, paths ...string) error {
	logrus.WithField("paths", paths).Info("Catalog paths changed")
	return nil
}
