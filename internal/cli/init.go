// Package cli provides common initialization shared by cmd/fintrack,
// cmd/fintrack-worker and cmd/fintrack-import.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/ai"
	"fintrack/internal/backend"
	"fintrack/internal/categorize"
	"fintrack/internal/config"
	"fintrack/internal/format"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// SetupLogger initializes structured logging at level (debug, info, warn,
// error) and sets it as the default logger.
func SetupLogger(level string) *slog.Logger {
	logger := applog.New(applog.Config{
		Level:  applog.ParseLevel(level),
		Output: os.Stdout,
	})
	applog.SetDefault(logger)
	return logger.Logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// App bundles the services every binary needs.
type App struct {
	Store     storage.Store
	Ingestion *services.IngestionService
	Budgets   *services.BudgetService
	Summaries *services.SummaryService
	Chat      *services.ChatService

	cleanup []func() error
}

// Close releases the analyzer, the publisher and the store.
func (a *App) Close() error {
	var first error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// InitApp builds the storage backend and wires the services on top of it.
func InitApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	classifier, err := NewClassifier(cfg.CategoryRulesFile, logger)
	if err != nil {
		res.Cleanup()
		return nil, err
	}

	analyzer, closeAnalyzer := ai.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	cur := format.NewCurrency(cfg.SummaryLocale, cfg.CurrencySymbol)

	return &App{
		Store:     res.Store,
		Ingestion: services.NewIngestionService(res.Store, classifier, res.Publisher, cfg.DuplicateLookupWorkers),
		Budgets:   services.NewBudgetService(res.Store, res.Store, res.Publisher),
		Summaries: services.NewSummaryService(res.Store, res.Store, analyzer, cur, cfg.AITimeout, res.Publisher),
		Chat:      services.NewChatService(res.Store, analyzer, cur, cfg.AITimeout),
		cleanup:   []func() error{res.Cleanup, closeAnalyzer},
	}, nil
}

// NewClassifier returns the default classifier, extended by the YAML rules
// file when path is set.
func NewClassifier(path string, logger *slog.Logger) (*categorize.Classifier, error) {
	if path == "" {
		return categorize.NewDefault(), nil
	}
	rules, err := categorize.LoadRules(path)
	if err != nil {
		return nil, err
	}
	c := categorize.New(rules)
	keywords := 0
	for _, r := range c.Rules() {
		keywords += len(r.Keywords)
	}
	logger.Info("Loaded category rules", "file", path, "categories", len(c.Rules()), "keywords", keywords)
	return c, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		cancel()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
