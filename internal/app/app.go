package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pressure-alerts/internal/alerting"
	"pressure-alerts/internal/config"
	"pressure-alerts/internal/feed"
	"pressure-alerts/internal/scheduler"
	"pressure-alerts/internal/service"
	"pressure-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeed() feed.MatchFeed {
	return feed.NewClient(feed.Options{
		BaseURL:           a.Config.Feed.BaseURL,
		APIKey:            a.Config.Feed.APIKey,
		Timeout:           a.Config.Feed.RequestTimeout,
		RequestsPerMinute: a.Config.Feed.RequestsPerMinute,
		UserAgent:         a.Config.Feed.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newVerifier(matchFeed feed.MatchFeed, ledger storage.AlertLedger) *service.Verifier {
	return service.NewVerifier(matchFeed, ledger, service.VerifierOptions{
		ObservationWindow: a.Config.Verifier.ObservationWindow,
		BatchSize:         a.Config.Verifier.BatchSize,
		FetchDelay:        a.Config.Verifier.FetchDelay,
	}, a.Logger)
}

// Run executes the long-running monitoring service: the monitoring scheduler
// and the daily adjuster scheduler share one process and one store.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to run the monitoring service")
	}
	if closeStore != nil {
		defer closeStore()
	}

	matchFeed := a.newFeed()
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("no notification channel configured; alerts will only be recorded")
	}

	verifier := a.newVerifier(matchFeed, store)
	svc := service.New(a.Config, matchFeed, store, store, store, notifier, verifier, a.Logger)
	adjuster := service.NewAdjuster(store, store, a.Config.Adjuster.TrailingWindow, a.Logger)

	monitorSched := scheduler.New(scheduler.Options{
		Name:         "monitor_scheduler",
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	adjusterSched := scheduler.New(scheduler.Options{
		Name:         "adjuster_scheduler",
		Interval:     a.Config.Adjuster.Interval,
		AlignToStart: true,
	}, a.Logger)

	a.Logger.Info().Msg("starting monitoring service")

	errCh := make(chan error, 2)
	go func() {
		errCh <- monitorSched.Run(ctx, svc.ProcessCycle)
	}()
	go func() {
		errCh <- adjusterSched.Run(ctx, func(tickCtx context.Context, _ time.Time) error {
			_, adjErr := adjuster.Run(tickCtx, false)
			return adjErr
		})
	}()

	err = <-errCh
	cancel()
	<-errCh

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting pressure sample history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// AdjustOptions configure a one-shot adjustment run.
type AdjustOptions struct {
	DryRun bool
}
