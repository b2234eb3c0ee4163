package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sarathi-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sarathi:session:"

// RedisStore keeps sessions as JSON values with a TTL. Writes go
// through WATCH so two concurrent turns on the same session cannot
// both commit against the same read.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = &RedisStore{}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*store.Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s store.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *store.Session) error {
	key := keyPrefix + s.ID

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		// A fresh session (version 0) must not find an existing record;
		// an existing one must still carry the version we read.
		if errors.Is(err, redis.Nil) {
			if s.Version != 0 {
				return ErrVersionConflict
			}
		} else {
			var current store.Session
			if err := json.Unmarshal([]byte(raw), &current); err != nil {
				return fmt.Errorf("unmarshal current session: %w", err)
			}
			if current.Version != s.Version {
				return ErrVersionConflict
			}
		}

		next := *s
		next.Version = s.Version + 1
		next.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		s.Version = next.Version
		s.UpdatedAt = next.UpdatedAt
		return nil
	}

	err := r.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}
