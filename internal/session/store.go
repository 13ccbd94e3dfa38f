package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// ErrNoTokens is returned by a TokenStore that holds nothing.
var ErrNoTokens = errors.New("no stored tokens")

// TokenStore persists tokens between runs.
type TokenStore interface {
	Load(ctx context.Context) (*Tokens, error)
	Save(ctx context.Context, tokens *Tokens) error
	Clear(ctx context.Context) error
}

// FileStore keeps tokens in a YAML file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. A leading "~/" expands to the home directory.
func NewFileStore(path string) *FileStore {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return &FileStore{path: path}
}

// Path returns the file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the token file.
func (f *FileStore) Load(_ context.Context) (*Tokens, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoTokens
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tokens Tokens
	if err := yaml.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", f.path, err)
	}
	if !tokens.Valid() {
		return nil, ErrNoTokens
	}
	return &tokens, nil
}

// Save writes the token file, creating its directory if needed.
func (f *FileStore) Save(_ context.Context, tokens *Tokens) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := yaml.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// redisClient is the subset of redis.Cmdable the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps tokens under a single key so several machines can share a login.
type RedisStore struct {
	client redisClient
	key    string
}

// RedisConfig describes the shared token store connection.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Profile   string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return newRedisStore(client, cfg.KeyPrefix, cfg.Profile), nil
}

func newRedisStore(client redisClient, prefix, profile string) *RedisStore {
	if prefix == "" {
		prefix = "tickora:"
	}
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: prefix + "tokens:" + profile}
}

// Key returns the Redis key holding the tokens.
func (r *RedisStore) Key() string {
	return r.key
}

// Load fetches the tokens.
func (r *RedisStore) Load(ctx context.Context) (*Tokens, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoTokens
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	var tokens Tokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	if !tokens.Valid() {
		return nil, ErrNoTokens
	}
	return &tokens, nil
}

// Save stores the tokens without expiry; the refresh token's own lifetime governs reuse.
func (r *RedisStore) Save(ctx context.Context, tokens *Tokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

// Clear deletes the key.
func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}

// MemoryStore keeps tokens in process. It is used when persistence is disabled.
type MemoryStore struct {
	mu     sync.Mutex
	tokens *Tokens
}

// Load returns the held tokens.
func (m *MemoryStore) Load(_ context.Context) (*Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tokens.Valid() {
		return nil, ErrNoTokens
	}
	cp := *m.tokens
	return &cp, nil
}

// Save replaces the held tokens.
func (m *MemoryStore) Save(_ context.Context, tokens *Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tokens
	m.tokens = &cp
	return nil
}

// Clear drops the held tokens.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}
