package internal

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Storage keys
const (
	KeyMessages = "messages"
	KeyEnabled  = "enabled"
	KeyMode     = "manslaterMode"
)

// KVStore is the persistent key-value store backing history and flags.
// Values are JSON documents; missing keys are absent from Get's result.
type KVStore interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string]any) error
	Close() error
}

// StoreType selects a KVStore driver
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeSQLite StoreType = "sqlite"
	StoreTypeRedis  StoreType = "redis"
)

// StoreOption is a functional option for configuring a store
type StoreOption func(*storeConfig)

type storeConfig struct {
	path          string
	redisClient   *redis.Client
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
}

// WithPath sets the database file for the sqlite store
func WithPath(path string) StoreOption {
	return func(c *storeConfig) {
		c.path = path
	}
}

// WithRedisClient sets the client for the redis store
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisAddr makes the redis store dial its own client
func WithRedisAddr(addr, password string, db int) StoreOption {
	return func(c *storeConfig) {
		c.redisAddr = addr
		c.redisPassword = password
		c.redisDB = db
	}
}

// WithRedisPrefix namespaces every key in redis
func WithRedisPrefix(prefix string) StoreOption {
	return func(c *storeConfig) {
		c.redisPrefix = prefix
	}
}

// NewStore creates a KVStore of the given type
func NewStore(storeType StoreType, opts ...StoreOption) (KVStore, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeSQLite:
		if config.path == "" {
			return nil, errors.Wrap(ErrInvalidConfig, "sqlite store requires a path")
		}
		return OpenSQLiteStore(config.path)

	case StoreTypeRedis:
		client := config.redisClient
		owned := false
		if client == nil {
			if config.redisAddr == "" {
				return nil, errors.Wrap(ErrInvalidConfig, "redis store requires a client or address")
			}
			client = redis.NewClient(&redis.Options{
				Addr:     config.redisAddr,
				Password: config.redisPassword,
				DB:       config.redisDB,
			})
			owned = true
		}
		return newRedisStore(client, config.redisPrefix, owned), nil

	default:
		return nil, errors.Wrapf(ErrInvalidStoreType, "%q", storeType)
	}
}

// encodeValues marshals every value to JSON
func encodeValues(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		if raw, ok := v.(json.RawMessage); ok {
			out[k] = raw
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &StorageError{Key: k, Op: "set", Err: errors.Wrap(err, "failed to encode value")}
		}
		out[k] = b
	}
	return out, nil
}

// ReadFlag reads a boolean flag, defaulting to false when unset
func ReadFlag(ctx context.Context, store KVStore, key string) (bool, error) {
	vals, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	v, err := ParseBool(vals[key])
	if err != nil {
		return false, &ParseError{Source: "kv", Key: key, Err: err}
	}
	return v, nil
}

// WriteFlag stores a boolean flag
func WriteFlag(ctx context.Context, store KVStore, key string, value bool) error {
	return store.Set(ctx, map[string]any{key: value})
}
