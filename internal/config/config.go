package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. TICKORA_API_BASE_URL.
	EnvPrefix = "TICKORA"
	// FileName is the config file name searched for when no explicit path is given.
	FileName = "tickora"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config represents the client configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Polling PollingConfig `mapstructure:"polling"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	UserAgent  string        `mapstructure:"user_agent"`
	Debug      bool          `mapstructure:"debug"`
}

type AuthConfig struct {
	// Store selects where tokens persist: "file" or "redis".
	Store         string        `mapstructure:"store"`
	TokenPath     string        `mapstructure:"token_path"`
	RefreshLeeway time.Duration `mapstructure:"refresh_leeway"`
	Redis         RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type PollingConfig struct {
	AttendanceInterval time.Duration `mapstructure:"attendance_interval"`
	LeaveInterval      time.Duration `mapstructure:"leave_interval"`
	TickerInterval     time.Duration `mapstructure:"ticker_interval"`
}

type CacheConfig struct {
	TicketTTL       time.Duration `mapstructure:"ticket_ttl"`
	MaxSize         int           `mapstructure:"max_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type LoggingConfig struct {
	Prefix string `mapstructure:"prefix"`
	Debug  bool   `mapstructure:"debug"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	// Listen is the address promhttp serves on during watch commands.
	Listen string `mapstructure:"listen"`
}

// Defaults returns the configuration used when no file or environment override is present
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:8000/api",
			Timeout:    30 * time.Second,
			RetryCount: 2,
			UserAgent:  "tickora",
		},
		Auth: AuthConfig{
			Store:         "file",
			TokenPath:     "~/.config/tickora/session.yaml",
			RefreshLeeway: time.Minute,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "tickora:tokens",
			},
		},
		Polling: PollingConfig{
			AttendanceInterval: 30 * time.Second,
			LeaveInterval:      60 * time.Second,
			TickerInterval:     time.Second,
		},
		Cache: CacheConfig{
			TicketTTL:       30 * time.Second,
			MaxSize:         500,
			CleanupInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Prefix: "tickora: ",
		},
		Metrics: MetricsConfig{
			Namespace: "tickora",
			Listen:    "127.0.0.1:9464",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.retry_count", d.API.RetryCount)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.debug", d.API.Debug)

	v.SetDefault("auth.store", d.Auth.Store)
	v.SetDefault("auth.token_path", d.Auth.TokenPath)
	v.SetDefault("auth.refresh_leeway", d.Auth.RefreshLeeway)
	v.SetDefault("auth.redis.addr", d.Auth.Redis.Addr)
	v.SetDefault("auth.redis.password", d.Auth.Redis.Password)
	v.SetDefault("auth.redis.db", d.Auth.Redis.DB)
	v.SetDefault("auth.redis.key_prefix", d.Auth.Redis.KeyPrefix)

	v.SetDefault("polling.attendance_interval", d.Polling.AttendanceInterval)
	v.SetDefault("polling.leave_interval", d.Polling.LeaveInterval)
	v.SetDefault("polling.ticker_interval", d.Polling.TickerInterval)

	v.SetDefault("cache.ticket_ttl", d.Cache.TicketTTL)
	v.SetDefault("cache.max_size", d.Cache.MaxSize)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)

	v.SetDefault("logging.prefix", d.Logging.Prefix)
	v.SetDefault("logging.debug", d.Logging.Debug)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load initializes the configuration with hot reload support. configFile may name an
// explicit file; when empty, tickora.yaml is searched in $HOME/.config/tickora and the
// working directory, and a missing file leaves the defaults in place.
func Load(configFile string) error {
	var err error
	once.Do(func() {
		v := newViper()

		if configFile != "" {
			v.SetConfigFile(configFile)
		} else {
			v.SetConfigName(FileName)
			if home, herr := os.UserHomeDir(); herr == nil {
				v.AddConfigPath(filepath.Join(home, ".config", "tickora"))
			}
			v.AddConfigPath(".")
		}

		found := true
		if err = v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if configFile != "" || !errors.As(err, &notFound) {
				err = fmt.Errorf("failed to read config: %w", err)
				return
			}
			// It's OK if no tickora.yaml exists
			found = false
			err = nil
		}

		loaded := &Config{}
		if err = v.Unmarshal(loaded); err != nil {
			err = fmt.Errorf("failed to unmarshal config: %w", err)
			return
		}
		if err = loaded.Validate(); err != nil {
			return
		}

		mu.Lock()
		cfg = loaded
		mu.Unlock()

		if !found {
			return
		}

		// Watch for config changes
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Printf("config file changed: %s", e.Name)

			// Create new config instance
			newCfg := &Config{}
			if err := v.Unmarshal(newCfg); err != nil {
				log.Printf("failed to reload config: %v", err)
				return
			}
			if err := newCfg.Validate(); err != nil {
				log.Printf("ignoring invalid config: %v", err)
				return
			}

			// Atomic swap
			mu.Lock()
			cfg = newCfg
			mu.Unlock()
			log.Println("configuration reloaded")
		})
		v.WatchConfig()
	})

	return err
}

// Get returns the current configuration (thread-safe). Before Load it returns the defaults.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if cfg == nil {
		return Defaults()
	}
	return cfg
}

// LoadFromFile loads configuration from a specific file without watching it (useful for
// testing). Environment overrides still apply.
func LoadFromFile(configFile string) error {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = loaded
	return nil
}

// MustLoad loads configuration and panics on error
func MustLoad(configFile string) {
	if err := Load(configFile); err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
}

// UsesRedis reports whether tokens are kept in redis instead of a local file
func (c *AuthConfig) UsesRedis() bool {
	return strings.EqualFold(c.Store, "redis")
}
