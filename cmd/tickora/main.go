package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/cache"
	"github.com/tickora-io/tickora/internal/client"
	"github.com/tickora-io/tickora/internal/config"
	"github.com/tickora-io/tickora/internal/lifecycle"
	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/session"
	"github.com/tickora-io/tickora/internal/types"
	"github.com/tickora-io/tickora/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tickora",
	Short: "tickora - ticket lifecycle client",
	Long: `tickora talks to the tickora REST backend.

It moves tickets through their workflow (new, in progress, QA, closed, reopened),
shows the running work timer, and covers the surrounding HR tools: attendance,
leave requests, todos, the shared calendar and spreadsheet reports.`,
	Version:           version.String(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

var (
	cfgFileFlag string
	baseURLFlag string
	debugFlag   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFileFlag, "config", "", "Config file (default $HOME/.config/tickora/tickora.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "API base URL, overrides api.base_url")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log requests and background activity to stderr")
}

// app is the per-invocation wiring shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	session  *session.Session
	api      *client.Client
	tickets  *lifecycle.TicketCache
	ctl      *lifecycle.Controller
}

var current *app

func setup(cmd *cobra.Command, _ []string) error {
	if err := config.Load(cfgFileFlag); err != nil {
		return err
	}
	cfg := *config.Get()
	if baseURLFlag != "" {
		cfg.API.BaseURL = baseURLFlag
	}
	debug := debugFlag || cfg.Logging.Debug

	out := io.Discard
	if debug {
		out = cmd.ErrOrStderr()
	}
	logger := log.New(out, cfg.Logging.Prefix, log.LstdFlags)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := tokenStore(ctx, &cfg)
	if err != nil {
		return err
	}
	sess := session.New(store,
		session.WithLogger(logger),
		session.WithRefreshLeeway(cfg.Auth.RefreshLeeway),
	)
	if _, err := sess.Restore(ctx); err != nil {
		logger.Printf("ignoring saved session: %v", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry, cfg.Metrics.Namespace)

	api := client.New(&client.Config{
		BaseURL:    cfg.API.BaseURL,
		Session:    sess,
		Metrics:    m,
		Logger:     logger,
		UserAgent:  cfg.API.UserAgent + "/" + version.Short(),
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.RetryCount,
		Debug:      debug && cfg.API.Debug,
	})

	opts := []lifecycle.Option{
		lifecycle.WithLogger(logger),
		lifecycle.WithMetrics(m),
		lifecycle.WithActivity(api.Activity),
		lifecycle.WithTickInterval(cfg.Polling.TickerInterval),
	}
	var tickets *lifecycle.TicketCache
	if cfg.Cache.TicketTTL > 0 {
		tickets = cache.NewLocalCache[int, types.Ticket](cache.LocalCacheConfig{
			MaxSize:         cfg.Cache.MaxSize,
			DefaultTTL:      cfg.Cache.TicketTTL,
			CleanupInterval: cfg.Cache.CleanupInterval,
			OnLookup:        m.CacheLookup,
		})
		opts = append(opts, lifecycle.WithCache(tickets))
	}

	current = &app{
		cfg:      &cfg,
		logger:   logger,
		registry: registry,
		metrics:  m,
		session:  sess,
		api:      api,
		tickets:  tickets,
		ctl:      lifecycle.NewController(lifecycle.NewStore(api), sess, opts...),
	}
	return nil
}

func teardown(*cobra.Command, []string) {
	if current != nil && current.tickets != nil {
		current.tickets.Stop()
	}
}

func tokenStore(ctx context.Context, cfg *config.Config) (session.TokenStore, error) {
	if !cfg.Auth.UsesRedis() {
		return session.NewFileStore(cfg.Auth.TokenPath), nil
	}
	store, err := session.NewRedisStore(ctx, session.RedisConfig{
		Addr:      cfg.Auth.Redis.Addr,
		Password:  cfg.Auth.Redis.Password,
		DB:        cfg.Auth.Redis.DB,
		KeyPrefix: cfg.Auth.Redis.KeyPrefix,
		Profile:   os.Getenv("USER"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect token store: %w", err)
	}
	return store, nil
}

// requireLogin fails early for commands that need a session.
func requireLogin() error {
	if current.session.State() == session.StateAnonymous {
		return fmt.Errorf("not logged in; run 'tickora login' first")
	}
	return nil
}

// ensureProfile completes a restored session so role checks can run locally.
func ensureProfile(ctx context.Context) error {
	if err := requireLogin(); err != nil {
		return err
	}
	if current.session.State() == session.StateRestored {
		if _, err := current.api.Auth.Profile(ctx); err != nil {
			return err
		}
	}
	return nil
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

// errorMessage is the line printed for a failed command.
func errorMessage(err error) string {
	if errors.Is(err, lifecycle.ErrBusy) {
		return "A status change for this ticket is already in progress."
	}
	return apierrors.UserMessage(err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorMessage(err))
		os.Exit(1)
	}
}
