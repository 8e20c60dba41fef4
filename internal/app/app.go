package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-go/internal/auth"
	"github.com/driftchat/driftchat-go/internal/client"
	"github.com/driftchat/driftchat-go/internal/config"
	"github.com/driftchat/driftchat-go/internal/journal"
	"github.com/driftchat/driftchat-go/internal/metrics"
	"github.com/driftchat/driftchat-go/internal/model"
	"github.com/driftchat/driftchat-go/internal/repository"
	"github.com/driftchat/driftchat-go/internal/repository/sqlite"
	"github.com/driftchat/driftchat-go/internal/socket"
	"github.com/driftchat/driftchat-go/internal/sync"
)

// App wires one chat session: cache, journal, event pipeline, background
// sync and the socket.
type App struct {
	cfg      config.Config
	repo     repository.Repository
	journal  *journal.Journal
	state    *sync.GlobalState
	registry *sync.ObserverRegistry
	handler  *sync.EventHandler
	manager  *sync.SyncManager
	api      client.ChatApi
	socket   *socket.Client
	metrics  *metrics.Metrics
	promReg  *prometheus.Registry
	log      *zerolog.Logger
}

// New constructs the session from configuration. The token determines the
// session user; the socket's Connected event later confirms it.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	token, err := auth.Inspect(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("inspect token: %w", err)
	}
	if token.Expired(time.Minute) {
		return nil, fmt.Errorf("token for user %s is expired", token.UserID)
	}

	repo, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("cache initialized")

	jnl, err := journal.Open(cfg.JournalPath, logger)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	state := sync.NewGlobalState(&model.User{ID: token.UserID})
	registry := sync.NewObserverRegistry()
	api := client.NewHTTPClient(cfg.ApiURL, cfg.Token, logger)

	manager := sync.NewSyncManager(repo, api, state, jnl, cfg.RetriesPerSecond, m, logger)
	handler := sync.NewEventHandler(repo, state, registry, manager, jnl, cfg.RecoveryEnabled, m, logger)
	manager.BindHandler(handler)

	return &App{
		cfg:      *cfg,
		repo:     repo,
		journal:  jnl,
		state:    state,
		registry: registry,
		handler:  handler,
		manager:  manager,
		api:      api,
		socket:   socket.New(cfg.SocketURL, cfg.Token, handler, logger),
		metrics:  m,
		promReg:  promReg,
		log:      logger,
	}, nil
}

// Handler exposes the event pipeline for replay tooling.
func (a *App) Handler() *sync.EventHandler { return a.handler }

// Manager exposes background sync for manual retry tooling.
func (a *App) Manager() *sync.SyncManager { return a.manager }

// Repo exposes the cache for inspection tooling.
func (a *App) Repo() repository.Repository { return a.repo }

// State exposes the session state.
func (a *App) State() *sync.GlobalState { return a.state }

// Run starts the pipeline, the socket and the sync schedule, and blocks
// until ctx is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.handler.Start(runCtx)

	errCh := make(chan error, 3)
	go func() { errCh <- a.socket.Run(runCtx) }()
	go func() { errCh <- a.manager.RunSchedule(runCtx, a.cfg.SyncSchedule) }()

	var metricsServer *stdhttp.Server
	if a.cfg.MetricsAddr != "" {
		mux := stdhttp.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))
		metricsServer = &stdhttp.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.log.Info().Str("addr", a.cfg.MetricsAddr).Msg("metrics endpoint listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}
	case <-ctx.Done():
	}
	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	a.handler.Stop()
	a.cleanup()
	return runErr
}

// cleanup closes the journal and the cache.
func (a *App) cleanup() {
	if err := a.journal.Close(); err != nil && err != journal.ErrClosed {
		a.log.Warn().Err(err).Msg("failed to close journal")
	}
	if err := a.repo.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close cache")
	} else {
		a.log.Info().Msg("cache closed")
	}
}
