package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"misskey-comments/internal/domain"
	"misskey-comments/pkg/log"
)

// RedisCache shares fetched notes between service replicas. Entries are
// stored as JSON under prefix + NormalizedKey. Redis errors are logged and
// reported as a miss; the instance is then asked directly.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to the server at redisURL
// (redis://[:password@]host:port/db) and checks it with a ping.
func NewRedisCache(redisURL, prefix string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *RedisCache) key(kind, host, noteID string) string {
	return r.prefix + NormalizedKey(kind, host, noteID)
}

// GetNote retrieves a note from Redis.
func (r *RedisCache) GetNote(ctx context.Context, host, noteID string) (*domain.Note, bool) {
	var note domain.Note
	if !r.get(ctx, r.key("note", host, noteID), &note) {
		return nil, false
	}
	return &note, true
}

// SetNote stores a note in Redis with the configured TTL.
func (r *RedisCache) SetNote(ctx context.Context, host, noteID string, note *domain.Note) {
	r.set(ctx, r.key("note", host, noteID), note)
}

// GetReplies retrieves the reply list of a note from Redis.
func (r *RedisCache) GetReplies(ctx context.Context, host, noteID string) ([]domain.Note, bool) {
	var replies []domain.Note
	if !r.get(ctx, r.key("replies", host, noteID), &replies) {
		return nil, false
	}
	return replies, true
}

// SetReplies stores the reply list of a note in Redis.
func (r *RedisCache) SetReplies(ctx context.Context, host, noteID string, replies []domain.Note) {
	if replies == nil {
		replies = []domain.Note{}
	}
	r.set(ctx, r.key("replies", host, noteID), replies)
}

// Close closes the connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) get(ctx context.Context, key string, out any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		log.GlobalWarnCtx(ctx, "redis get failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.GlobalWarnCtx(ctx, "redis entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// set stores value for the TTL. Redis keeps keys without a TTL forever,
// so a TTL of zero or less stores nothing, as in MemoryCache.
func (r *RedisCache) set(ctx context.Context, key string, value any) {
	if r.ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.GlobalErrorCtx(ctx, "redis encode failed", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		log.GlobalWarnCtx(ctx, "redis set failed", "key", key, "error", err)
	}
}
