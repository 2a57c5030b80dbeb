package config

// This file defines an optional Redis client constructor. Redis backs the
// shared variant of the handoff store (kiosk deployments where several
// client processes serve one physical terminal). When no address is
// configured or the server is unreachable the function returns nil and
// callers fall back to the in-memory store.

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from the loaded Config. The
// connection is verified with a short ping; on failure a nil client is
// returned so the caller can degrade to in-process storage.
func NewRedisClient(cfg Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("config: redis unreachable at %s: %v; using in-memory handoff store", cfg.RedisAddr, err)
		_ = client.Close()
		return nil
	}
	return client
}
