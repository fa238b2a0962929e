package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"aafeed/internal/aa"
	"aafeed/internal/config"
	"aafeed/internal/domain"
	"aafeed/internal/infrastructure/enrich"
	"aafeed/internal/infrastructure/scheduler"
	"aafeed/internal/infrastructure/storage"
	"aafeed/internal/infrastructure/telegram"
	"aafeed/internal/logging"
	"aafeed/internal/ports"
	"aafeed/internal/taxonomy"
	"aafeed/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	client    *aa.Client
	repo      *storage.PostgresRepository
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewPostgresRepository(db)

	limiter := aa.NewLimiter(cfg.API.MinRequestInterval())
	client := aa.NewClient(
		cfg.API.BaseURL,
		cfg.API.Username,
		cfg.API.Password,
		cfg.API.Timeout(),
		limiter,
		baseLogger.With("component", "aa"),
	)

	var enricher ports.Enricher
	if cfg.OpenAI.APIKey != "" {
		enricher = enrich.NewOpenAIEnricher(cfg.OpenAI)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	normalizer := taxonomy.New(cfg.Taxonomy.Keywords, baseLogger.With("component", "taxonomy"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     client,
		Repository: repo,
		Normalizer: normalizer,
		Enricher:   enricher,
		Notifier:   notifier,
		Feeds:      toFeeds(cfg.Feeds),
		Logger:     baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		client:    client,
		repo:      repo,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline),
	}, nil
}

// Run prepares the store, logs the subscription snapshot, and either runs a
// single batch (once) or blocks on the cron schedule until ctx ends.
func (a *Application) Run(ctx context.Context, once bool) error {
	if err := a.repo.EnsureSchema(ctx); err != nil {
		return err
	}

	a.logEntitlement(ctx)

	if once {
		summary, err := a.pipeline.Run(ctx, time.Now().In(a.cfg.Scheduler.Location()))
		a.logger.Info("run finished",
			"found", summary.Found,
			"new", summary.New,
			"processed", summary.Processed,
			"errors", summary.Errors)
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// logEntitlement surfaces quota and vocabulary info at startup. Both calls
// are degraded-OK: a warning, never an abort.
func (a *Application) logEntitlement(ctx context.Context) {
	if sub, err := a.client.Subscription(ctx); err != nil {
		a.logger.Warn("subscription lookup failed", "error", err)
	} else {
		a.logger.Info("subscription",
			"package", sub.Package,
			"archive_days", sub.ArchiveDays,
			"download_limit", sub.DownloadLimit)
	}

	if vocab, err := a.client.Discover(ctx, taxonomy.DefaultLanguage); err != nil {
		a.logger.Warn("discover lookup failed", "error", err)
	} else {
		a.logger.Debug("discover vocabularies", "count", len(vocab))
	}
}

func toFeeds(cfgs []config.FeedConfig) []usecase.Feed {
	feeds := make([]usecase.Feed, 0, len(cfgs))
	for _, fc := range cfgs {
		status := domain.StatusDraft
		if fc.Publish {
			status = domain.StatusPublished
		}
		feeds = append(feeds, usecase.Feed{
			Name: fc.Name,
			Filter: domain.SearchFilter{
				Categories: fc.Categories,
				Types:      fc.Types,
				Priorities: fc.Priorities,
				Languages:  fc.Languages,
				Limit:      fc.Limit,
			},
			Window: fc.Window(),
			Status: status,
		})
	}
	return feeds
}
