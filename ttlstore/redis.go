// ttlstore/redis.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package ttlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store over a Redis server with keyspace notifications
// enabled for expired-key events (notify-keyspace-events "Ex"). Arm uses a
// real Redis TTL (SET ... EX) on the sentinel key; the expired-key event
// Redis fires when that TTL lapses is what feeds SubscribeExpiries.
type Redis struct {
	client *redis.Client
	db     int
}

// NewRedis dials addr (a redis:// URL) and returns a Store. It does not
// itself enable keyspace notifications -- operators are expected to set
// notify-keyspace-events Ex server-side (or via config), since enabling it
// from a client is a global, cross-tenant setting this package should not
// silently flip for its caller.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("ttlstore: parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ttlstore: ping redis: %w", err)
	}

	return &Redis{client: client, db: opts.DB}, nil
}

func (r *Redis) Put(ctx context.Context, key string, value any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, 0).Err()
}

func (r *Redis) Get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ttlstore: get %s: %w", key, err)
	}
	return decode(data, dst)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *Redis) Scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("ttlstore: scan %s: %w", prefix, err)
	}
	return keys, nil
}

// Arm associates an expiry sentinel with key. The sentinel carries a
// one-byte marker value -- only its existence and its TTL matter, never
// its contents.
func (r *Redis) Arm(ctx context.Context, key string, ttlSeconds int) error {
	return r.client.Set(ctx, key, "1", time.Duration(ttlSeconds)*time.Second).Err()
}

// SubscribeExpiries opens a dedicated pub/sub connection -- per spec.md
// §5, the store's blocking subscribe cannot share a connection with
// issuing commands -- and delivers every expired-key event to callback
// until ctx is cancelled.
func (r *Redis) SubscribeExpiries(ctx context.Context, callback func(key string)) error {
	channel := fmt.Sprintf("__keyevent@%d__:expired", r.db)
	sub := r.client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("ttlstore: subscribe %s: %w", channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if strings.TrimSpace(msg.Payload) == "" {
				continue
			}
			callback(msg.Payload)
		}
	}
}

// Ping reports whether the underlying Redis connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
