// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"madlen/internal/chat"
)

// ErrMiss is returned when no fresh entry exists for a key
var ErrMiss = errors.New("cache miss")

// Cache holds model lists keyed by name
type Cache interface {
	GetModels(ctx context.Context, key string) ([]chat.Model, error)
	SetModels(ctx context.Context, key string, models []chat.Model, ttl time.Duration) error
	Close() error
}

type entry struct {
	models  []chat.Model
	expires time.Time
}

// Memory is an in-process TTL cache
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *Memory) GetModels(_ context.Context, key string) ([]chat.Model, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expires) {
		return nil, ErrMiss
	}
	return append([]chat.Model(nil), e.models...), nil
}

func (m *Memory) SetModels(_ context.Context, key string, models []chat.Model, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{
		models:  append([]chat.Model(nil), models...),
		expires: m.now().Add(ttl),
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Redis stores model lists as JSON so several gateways can share them
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to redisURL and pings it before returning
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewRedisWithClient(client), nil
}

func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "madlen:"}
}

func (r *Redis) GetModels(ctx context.Context, key string) ([]chat.Model, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var models []chat.Model
	if err := json.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("decode cached models: %w", err)
	}
	return models, nil
}

func (r *Redis) SetModels(ctx context.Context, key string, models []chat.Model, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("encode models: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = (*Redis)(nil)
)
