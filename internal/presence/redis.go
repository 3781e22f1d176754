// internal/presence/redis.go

package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Mirror receives write-through copies of presence changes so other
// instances can read them.
type Mirror interface {
	SetTyping(ctx context.Context, circleID, userID string, ttl time.Duration) error
	ClearTyping(ctx context.Context, circleID, userID string) error
	SetOnline(ctx context.Context, circleID, userID string, online bool) error
}

// RedisMirror stores typing signals as expiring keys and online users as a
// set per circle.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

func NewRedisMirror(client *redis.Client, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = "circles"
	}
	return &RedisMirror{client: client, prefix: prefix}
}

func (m *RedisMirror) typingKey(circleID, userID string) string {
	return fmt.Sprintf("%s:typing:%s:%s", m.prefix, circleID, userID)
}

func (m *RedisMirror) onlineKey(circleID string) string {
	return fmt.Sprintf("%s:online:%s", m.prefix, circleID)
}

func (m *RedisMirror) SetTyping(ctx context.Context, circleID, userID string, ttl time.Duration) error {
	return m.client.Set(ctx, m.typingKey(circleID, userID), time.Now().Unix(), ttl).Err()
}

func (m *RedisMirror) ClearTyping(ctx context.Context, circleID, userID string) error {
	return m.client.Del(ctx, m.typingKey(circleID, userID)).Err()
}

func (m *RedisMirror) SetOnline(ctx context.Context, circleID, userID string, online bool) error {
	if online {
		return m.client.SAdd(ctx, m.onlineKey(circleID), userID).Err()
	}

	pipe := m.client.TxPipeline()
	pipe.SRem(ctx, m.onlineKey(circleID), userID)
	pipe.Del(ctx, m.typingKey(circleID, userID))
	_, err := pipe.Exec(ctx)
	return err
}
