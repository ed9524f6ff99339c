// Package cache stores computed device summaries in Redis so repeated
// dashboard polls do not recompute them until a new reading arrives.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/luki/co2dash/internal/alert"
	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/stats"
)

var ErrMiss = errors.New("cache miss")

const DefaultPrefix = "co2dash:device:"

// Summary is what the detail views need per device: the latest readings
// (newest first) and what was computed from them.
type Summary struct {
	Readings []sensor.Reading `json:"readings"`
	Stats    stats.Stats      `json:"stats"`
	Alerts   []alert.Alert    `json:"alerts"`
}

type RedisCache struct {
	c      *redis.Client
	prefix string
	ttl    time.Duration
}

// NewClient builds a Redis client from connection settings.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{c: c, prefix: DefaultPrefix, ttl: ttl}
}

func (r *RedisCache) key(deviceID string) string {
	return r.prefix + deviceID + ":summary"
}

func (r *RedisCache) Get(ctx context.Context, deviceID string) (Summary, error) {
	val, err := r.c.Get(ctx, r.key(deviceID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Summary{}, ErrMiss
		}
		return Summary{}, err
	}
	var s Summary
	if err := json.Unmarshal(val, &s); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return s, nil
}

func (r *RedisCache) Set(ctx context.Context, deviceID string, s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.c.Set(ctx, r.key(deviceID), data, r.ttl).Err()
}

func (r *RedisCache) Invalidate(ctx context.Context, deviceID string) error {
	return r.c.Del(ctx, r.key(deviceID)).Err()
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

// Nop is used when no Redis address is configured. Every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) (Summary, error) { return Summary{}, ErrMiss }
func (Nop) Set(context.Context, string, Summary) error   { return nil }
func (Nop) Invalidate(context.Context, string) error     { return nil }
