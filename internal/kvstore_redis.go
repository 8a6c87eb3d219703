package internal

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// redisStore implements KVStore on plain redis string keys
type redisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

func newRedisStore(client *redis.Client, prefix string, owned bool) *redisStore {
	return &redisStore{client: client, prefix: prefix, owned: owned}
}

func (s *redisStore) key(k string) string {
	return s.prefix + k
}

// Get implements KVStore.
func (s *redisStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, &StorageError{Op: "get", Err: errors.Wrap(err, "redis mget failed")}
	}

	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out, nil
}

// Set implements KVStore.
func (s *redisStore) Set(ctx context.Context, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range encoded {
			pipe.Set(ctx, s.key(k), string(v), 0)
		}
		return nil
	})
	if err != nil {
		return &StorageError{Op: "set", Err: errors.Wrap(err, "redis pipeline failed")}
	}
	return nil
}

// Close implements KVStore. Clients passed in by the caller are left open.
func (s *redisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
