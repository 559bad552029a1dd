// Package app wires configuration, infrastructure and handlers into a
// runnable bot.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	coreconfig "landingbot/core/config"
	coredatabase "landingbot/core/database"
	"landingbot/core/logger"
	tg "landingbot/core/telegram"
	"landingbot/core/telegram/middleware"
	"landingbot/internal/bot"
	"landingbot/internal/convstate"
	"landingbot/internal/repository"
	"landingbot/internal/subscription"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config combines the core bot configuration with the database section.
type Config struct {
	coreconfig.Config `yaml:",inline"`
	Database          coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads the YAML file and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// App holds the bootstrapped components of the landing bot.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	handlers *bot.Handlers
	registry *tg.Registry
}

// Bootstrap initializes the logger, connects to Postgres, applies
// migrations and builds the handler set.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	if err := logger.InitLogger(&cfg.Config); err != nil {
		return nil, fmt.Errorf("app: logger init failed: %w", err)
	}

	db, err := coredatabase.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app: database initialization failed: %w", err)
	}
	if err := coredatabase.RunMigrations(cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("app: migrations failed: %w", err)
	}

	repo := repository.NewPostgres(db)
	subs := subscription.NewService(repo, cfg.Payments.TrialDays)
	handlers := bot.New(cfg.Payments, repo, subs, convstate.NewStore())

	registry := tg.NewRegistry()
	handlers.RegisterCommands(registry, cfg.Payments.EnableTestCommand)
	handlers.RegisterCallbacks(registry)

	return &App{
		cfg:      cfg,
		db:       db,
		handlers: handlers,
		registry: registry,
	}, nil
}

// TelegramRunOptions assembles the bot runtime configuration.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	admin := middleware.AdminOptions{AdminID: a.cfg.Telegram.AdminID}

	middlewares := []tg.Middleware{
		{Name: "rate_limit", Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval: time.Duration(a.cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:  excludeSet(a.cfg.RateLimit.ExcludeUpdates),
		})},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}

	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: middlewares,
		Routes:      a.handlers.Routes(a.registry, admin),
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			return a.Close()
		},
	}, nil
}

// Close releases infrastructure resources.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func excludeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
