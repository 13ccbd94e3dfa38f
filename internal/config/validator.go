package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validator checks a loaded configuration and collects every problem before failing
type Validator struct {
	config   *Config
	errors   []string
	warnings []string
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{
		config:   cfg,
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate reports all errors at once. Warnings never fail validation.
func (v *Validator) Validate() error {
	v.validateAPI()
	v.validateAuth()
	v.validatePolling()
	v.validateCache()
	v.validateMetrics()

	if len(v.errors) > 0 {
		return fmt.Errorf("config validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// Warnings returns the non-fatal findings of the last Validate call
func (v *Validator) Warnings() []string {
	return v.warnings
}

// Validate checks the configuration
func (c *Config) Validate() error {
	return NewValidator(c).Validate()
}

func (v *Validator) validateAPI() {
	api := v.config.API
	if api.BaseURL == "" {
		v.addError("api.base_url is not set")
		return
	}

	u, err := url.Parse(api.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		v.addError(fmt.Sprintf("api.base_url %q must be an absolute http(s) URL", api.BaseURL))
		return
	}

	// Tokens travel in the Authorization header
	if u.Scheme == "http" && !isLoopback(u.Hostname()) {
		v.addWarning(fmt.Sprintf("api.base_url %q sends credentials without TLS", api.BaseURL))
	}

	if api.Timeout <= 0 {
		v.addError("api.timeout must be positive")
	}
	if api.RetryCount < 0 {
		v.addError("api.retry_count must not be negative")
	}
}

func (v *Validator) validateAuth() {
	auth := v.config.Auth
	switch strings.ToLower(auth.Store) {
	case "file":
		if auth.TokenPath == "" {
			v.addError("auth.token_path is required when auth.store is file")
		}
	case "redis":
		if auth.Redis.Addr == "" {
			v.addError("auth.redis.addr is required when auth.store is redis")
		}
		if auth.Redis.Password == "" {
			v.addWarning("auth.redis.password is empty; tokens are readable by anyone reaching the server")
		}
	default:
		v.addError(fmt.Sprintf("auth.store %q must be file or redis", auth.Store))
	}

	if auth.RefreshLeeway < 0 {
		v.addError("auth.refresh_leeway must not be negative")
	}
}

func (v *Validator) validatePolling() {
	p := v.config.Polling
	v.requirePositive("polling.attendance_interval", p.AttendanceInterval)
	v.requirePositive("polling.leave_interval", p.LeaveInterval)
	v.requirePositive("polling.ticker_interval", p.TickerInterval)

	if p.TickerInterval > 0 && p.TickerInterval < 100*time.Millisecond {
		v.addWarning("polling.ticker_interval below 100ms redraws more often than it can be read")
	}
}

func (v *Validator) validateCache() {
	c := v.config.Cache
	if c.TicketTTL < 0 {
		v.addError("cache.ticket_ttl must not be negative")
	}
	if c.MaxSize < 0 {
		v.addError("cache.max_size must not be negative")
	}
	if c.TicketTTL > 0 {
		v.requirePositive("cache.cleanup_interval", c.CleanupInterval)
	}
}

func (v *Validator) validateMetrics() {
	m := v.config.Metrics
	if !m.Enabled {
		return
	}
	if m.Namespace == "" {
		v.addError("metrics.namespace is required when metrics are enabled")
	}
	if _, _, err := net.SplitHostPort(m.Listen); err != nil {
		v.addError(fmt.Sprintf("metrics.listen %q is not a host:port address", m.Listen))
	}
}

func (v *Validator) requirePositive(key string, d time.Duration) {
	if d <= 0 {
		v.addError(key + " must be positive")
	}
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *Validator) addWarning(msg string) {
	v.warnings = append(v.warnings, msg)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
