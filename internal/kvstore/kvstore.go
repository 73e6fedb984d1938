// Package kvstore provides the gzip-compressed JSON blob store shared by
// the session store (G) and the ticket store (H): a thin Redis wrapper with
// sliding/absolute TTL semantics and swallowed transient errors.
package kvstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"reelix/internal/config"
	"reelix/internal/observability"
)

// Store is a namespaced, gzip-JSON, TTL'd Redis blob store.
type Store struct {
	client redis.UniversalClient
}

// New connects to the Redis-compatible backend described by cfg.
func New(cfg config.RedisConfig) (*Store, error) {
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	if cfg.TLSInsecureSkipVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func compress(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte, out any) error {
	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return err
	}
	defer gr.Close()
	raw, err := io.ReadAll(gr)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Put overwrites the value at key with the given TTL.
func (s *Store) Put(ctx context.Context, key string, v any, ttl time.Duration) error {
	blob, err := compress(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, blob, ttl).Err()
}

// Get decodes the value at key into out, refreshing the sliding TTL on hit
// when touch is true. Returns (found=false, nil) on miss, decode failure
// (deleting the corrupt key), or any transient backend error.
func (s *Store) Get(ctx context.Context, key string, out any, touch bool, slidingTTL time.Duration) (bool, error) {
	blob, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("kvstore_get_transient_error")
		return false, nil
	}
	if err := decompress(blob, out); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("kvstore_decode_failed")
		_ = s.client.Del(ctx, key).Err()
		return false, nil
	}
	if touch {
		_ = s.client.Expire(ctx, key, slidingTTL).Err()
	}
	return true, nil
}

// Touch refreshes a key's sliding TTL without reading its value.
func (s *Store) Touch(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("key", key).Msg("kvstore_touch_transient_error")
		return false
	}
	return ok
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// TTL reports the remaining TTL for a key, or 0 if it doesn't exist.
func (s *Store) TTL(ctx context.Context, key string) time.Duration {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil || d < 0 {
		return 0
	}
	return d
}
