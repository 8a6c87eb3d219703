package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StoreConfig selects and locates the key-value store
type StoreConfig struct {
	Type          StoreType `yaml:"type"`
	Path          string    `yaml:"path"`
	RedisAddr     string    `yaml:"redis_addr"`
	RedisPassword string    `yaml:"redis_password"`
	RedisDB       int       `yaml:"redis_db"`
	RedisPrefix   string    `yaml:"redis_prefix"`
}

// SuggestConfig configures the suggestion service client
type SuggestConfig struct {
	ReplyEndpoint   string        `yaml:"reply_endpoint"`
	GeneralEndpoint string        `yaml:"general_endpoint"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheCapacity   int           `yaml:"cache_capacity"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	Retry           RetryPolicy   `yaml:"retry"`
}

// CaptureConfig holds the capture engine's limits and delays
type CaptureConfig struct {
	HistoryLimit       int           `yaml:"history_limit"`
	RecentLimit        int           `yaml:"recent_limit"`
	SettleDelay        time.Duration `yaml:"settle_delay"`
	EnableDelay        time.Duration `yaml:"enable_delay"`
	ScanRetryDelay     time.Duration `yaml:"scan_retry_delay"`
	ChatChangeDebounce time.Duration `yaml:"chat_change_debounce"`
	SuggestDebounce    time.Duration `yaml:"suggest_debounce"`
	RateLimit          time.Duration `yaml:"rate_limit"`
}

// BridgeConfig configures the relay websocket server
type BridgeConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// Config holds all application configuration
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Suggest SuggestConfig `yaml:"suggest"`
	Capture CaptureConfig `yaml:"capture"`
	Profile Profile       `yaml:"profile"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	engine := DefaultEngineConfig()
	coord := DefaultCoordinatorConfig()

	return &Config{
		Store: StoreConfig{
			Type: StoreTypeSQLite,
			Path: filepath.Join(dataDir(), "msghelp.db"),
		},
		Suggest: SuggestConfig{
			ReplyEndpoint:   DefaultReplyEndpoint,
			GeneralEndpoint: DefaultGeneralEndpoint,
			CacheTTL:        coord.CacheTTL,
			CacheCapacity:   coord.CacheCapacity,
			SweepInterval:   coord.SweepInterval,
			Retry:           DefaultRetryPolicy(),
		},
		Capture: CaptureConfig{
			HistoryLimit:       engine.HistoryLimit,
			RecentLimit:        engine.RecentLimit,
			SettleDelay:        engine.SettleDelay,
			EnableDelay:        engine.EnableDelay,
			ScanRetryDelay:     engine.ScanRetryDelay,
			ChatChangeDebounce: engine.ChatChangeDebounce,
			SuggestDebounce:    engine.SuggestDebounce,
			RateLimit:          engine.RateLimit,
		},
		Profile: WhatsAppProfile(),
		Bridge: BridgeConfig{
			Listen: "127.0.0.1:8765",
			Path:   "/relay",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreTypeMemory:
	case StoreTypeSQLite:
		if c.Store.Path == "" {
			return errors.Wrap(ErrInvalidConfig, "store path cannot be empty")
		}
	case StoreTypeRedis:
		if c.Store.RedisAddr == "" {
			return errors.Wrap(ErrInvalidConfig, "redis address cannot be empty")
		}
	default:
		return errors.Wrapf(ErrInvalidStoreType, "%q", c.Store.Type)
	}

	if c.Suggest.ReplyEndpoint == "" || c.Suggest.GeneralEndpoint == "" {
		return errors.Wrap(ErrInvalidConfig, "suggestion endpoints cannot be empty")
	}
	if c.Suggest.CacheCapacity < 1 {
		return errors.Wrap(ErrInvalidConfig, "cache capacity must be at least 1")
	}
	if c.Suggest.Retry.MaxAttempts < 1 {
		return errors.Wrap(ErrInvalidConfig, "retry max attempts must be at least 1")
	}
	if c.Capture.HistoryLimit < 1 {
		return errors.Wrap(ErrInvalidConfig, "history limit must be at least 1")
	}
	if c.Capture.RecentLimit < 1 {
		return errors.Wrap(ErrInvalidConfig, "recent limit must be at least 1")
	}
	if c.Bridge.Listen == "" {
		return errors.Wrap(ErrInvalidConfig, "bridge listen address cannot be empty")
	}
	return nil
}

// LoadConfig reads a YAML file over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(expandHome(path))
	if os.IsNotExist(err) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ParseError{Source: "config", Key: path, Err: err}
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Profile = cfg.Profile.withDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/msghelp/config.yaml or its platform equivalent
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "msghelp.yaml")
	}
	return filepath.Join(dir, "msghelp", "config.yaml")
}

// OpenStore opens the configured KVStore
func (c *Config) OpenStore() (KVStore, error) {
	switch c.Store.Type {
	case StoreTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(c.Store.Path), 0o755); err != nil {
			return nil, &StorageError{Key: c.Store.Path, Op: "open", Err: err}
		}
		return NewStore(StoreTypeSQLite, WithPath(c.Store.Path))
	case StoreTypeRedis:
		return NewStore(StoreTypeRedis,
			WithRedisAddr(c.Store.RedisAddr, c.Store.RedisPassword, c.Store.RedisDB),
			WithRedisPrefix(c.Store.RedisPrefix))
	default:
		return NewStore(c.Store.Type)
	}
}

// EngineConfig returns the engine settings
func (c *Config) EngineConfig() EngineConfig {
	return EngineConfig{
		Profile:            c.Profile,
		HistoryLimit:       c.Capture.HistoryLimit,
		RecentLimit:        c.Capture.RecentLimit,
		SettleDelay:        c.Capture.SettleDelay,
		EnableDelay:        c.Capture.EnableDelay,
		ScanRetryDelay:     c.Capture.ScanRetryDelay,
		ChatChangeDebounce: c.Capture.ChatChangeDebounce,
		SuggestDebounce:    c.Capture.SuggestDebounce,
		RateLimit:          c.Capture.RateLimit,
		ReplyEndpoint:      c.Suggest.ReplyEndpoint,
		GeneralEndpoint:    c.Suggest.GeneralEndpoint,
	}
}

// CoordinatorConfig returns the suggestion cache settings
func (c *Config) CoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		CacheTTL:        c.Suggest.CacheTTL,
		CacheCapacity:   c.Suggest.CacheCapacity,
		SweepInterval:   c.Suggest.SweepInterval,
		DefaultEndpoint: c.Suggest.GeneralEndpoint,
	}
}

// dataDir is where the default sqlite database lives
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".msghelp")
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home + path[1:]
	}
	return path
}
