// ABOUTME: Server wires the polis components together and owns their lifecycle
// ABOUTME: Store, telemetry, reasoning, city, scheduler and the dashboard HTTP server

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/builtins"
	"github.com/2389/polis/internal/config"
	"github.com/2389/polis/internal/dashboard"
	"github.com/2389/polis/internal/dedupe"
	"github.com/2389/polis/internal/feed"
	"github.com/2389/polis/internal/items"
	"github.com/2389/polis/internal/orchestrator"
	"github.com/2389/polis/internal/polis"
	"github.com/2389/polis/internal/reasoning"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/telemetry"
	"github.com/2389/polis/internal/toolset"
)

const (
	shutdownTimeout = 10 * time.Second

	nonceTTL      = 10 * time.Minute
	nonceCapacity = 10_000
)

// Option configures a Server.
type Option func(*options)

type options struct {
	completer reasoning.Completer
	version   string
}

// WithCompleter replaces the configured reasoning provider.
func WithCompleter(c reasoning.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithVersion sets the version reported to telemetry.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Server owns every long-lived polis component.
type Server struct {
	config     *config.Config
	store      *store.SQLiteStore
	city       *polis.Polis
	scheduler  *orchestrator.Scheduler
	dashboard  *dashboard.Dashboard
	nonces     *dedupe.Cache
	feed       *feed.Broadcaster
	httpServer *http.Server
	logger     *slog.Logger

	shutdownTelemetry telemetry.ShutdownFunc

	// schedulerDone closes when the scheduler loop has returned.
	schedulerDone chan struct{}
}

// New builds the server: opens the store, restores and seeds rooms, and
// registers the configured actors. Nothing runs until Run.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	s := &Server{
		config:            cfg,
		store:             st,
		logger:            logger.With("component", "server"),
		shutdownTelemetry: func(context.Context) error { return nil },
	}
	if err := s.init(ctx, o, logger); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) init(ctx context.Context, o options, logger *slog.Logger) error {
	cfg := s.config

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(cfg.Telemetry.ServiceName, o.version, telemetry.Config{
			Exporter:       cfg.Telemetry.Exporter,
			MetricInterval: cfg.Telemetry.MetricInterval,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		s.shutdownTelemetry = shutdown
	}
	metrics, err := telemetry.NewPassMetrics(nil, nil)
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	completer := o.completer
	if completer == nil {
		completer, err = reasoning.New(reasoningSettings(cfg.Reasoning), logger)
		if err != nil {
			return fmt.Errorf("creating reasoning provider: %w", err)
		}
	}

	city, err := polis.New(
		polis.WithStore(s.store),
		polis.WithSimulator(items.NewSimulator(completer, cfg.Reasoning.Model, logger)),
		polis.WithSharedToolsets(builtins.Identity()),
		polis.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating polis: %w", err)
	}
	s.city = city

	if cfg.Polis.RestoreEnabled() {
		if err := city.Restore(ctx); err != nil {
			s.logger.Warn("failed to restore rooms", "error", err)
		}
	}
	for _, name := range cfg.Polis.SeedRooms {
		if _, _, err := city.GetOrCreateRoom(ctx, name, false); err != nil {
			return fmt.Errorf("seeding room %q: %w", name, err)
		}
	}

	s.feed = feed.New(logger)
	sched, err := orchestrator.New(schedulerConfig(cfg), completer, city.DirectoryMenu(),
		orchestrator.WithStore(s.store),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithLogger(logger),
		orchestrator.WithPassHook(s.publishPass),
	)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	s.scheduler = sched

	for i, a := range cfg.Agents {
		if _, err := sched.AddActor(agent.Params{
			ID:           a.ID,
			Handle:       a.Handle,
			Model:        a.Model,
			SystemPrompt: a.SystemPrompt,
		}, a.Instructions); err != nil {
			return fmt.Errorf("agents[%d]: %w", i, err)
		}
	}

	s.nonces = dedupe.New(nonceTTL, nonceCapacity)
	dash, err := dashboard.New(s.store, city,
		dashboard.WithRoster(sched),
		dashboard.WithDedupe(s.nonces),
		dashboard.WithFeed(s.feed),
		dashboard.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("creating dashboard: %w", err)
	}
	s.dashboard = dash

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           dash.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the dashboard handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// City returns the live polis.
func (s *Server) City() *polis.Polis { return s.city }

// Scheduler returns the pass scheduler.
func (s *Server) Scheduler() *orchestrator.Scheduler { return s.scheduler }

// Run listens on the configured address and blocks until ctx is cancelled
// or the HTTP server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the dashboard on ln and the scheduler loop until ctx is
// cancelled, then shuts everything down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := s.startServers(runCtx, ln)
	serverErr := s.waitForShutdownSignal(runCtx, errCh)
	cancel()

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// startServers starts the HTTP server and the scheduler in goroutines.
func (s *Server) startServers(ctx context.Context, ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	s.schedulerDone = make(chan struct{})
	go func() {
		defer close(s.schedulerDone)
		_ = s.scheduler.Run(ctx)
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown uses a fresh context since the run context is already cancelled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server, waits for an in-flight pass, and closes
// the store and telemetry exporters.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down polis")

	// Closing the feed ends open event streams so HTTP shutdown can drain.
	s.feed.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	if s.schedulerDone != nil {
		select {
		case <-s.schedulerDone:
		case <-ctx.Done():
			s.logger.Warn("pass still running at shutdown deadline")
		}
	}

	s.dashboard.Close()
	s.nonces.Close()
	errs = appendCloseError(errs, "telemetry shutdown", s.shutdownTelemetry(ctx))
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}

// publishPass forwards a completed pass to live subscribers.
func (s *Server) publishPass(res *orchestrator.PassResult) {
	ev := feed.Event{
		PassID:    res.ID,
		ActorID:   res.ActorID,
		Handle:    res.Handle,
		Timestamp: res.Timestamp,
		Followup:  res.Followup,
		Tools:     make([]string, 0, len(res.Executions)),
	}
	if res.Decision != nil {
		ev.Intent = res.Decision.Intent
	}
	for _, e := range res.Executions {
		ev.Tools = append(ev.Tools, e.Name)
		if e.Skipped {
			ev.Skipped++
		}
	}
	s.feed.Publish(ev)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

func reasoningSettings(c config.ReasoningConfig) reasoning.Settings {
	return reasoning.Settings{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		Script:      c.Script,
	}
}

func schedulerConfig(cfg *config.Config) orchestrator.Config {
	sc := orchestrator.DefaultConfig()
	if cfg.Scheduler.SystemPrompt != "" {
		sc.SystemPrompt = cfg.Scheduler.SystemPrompt
	}
	sc.DefaultModel = cfg.Reasoning.Model
	sc.LoopInterval = cfg.Scheduler.LoopInterval
	if cfg.Scheduler.HistorySize > 0 {
		sc.HistorySize = cfg.Scheduler.HistorySize
	}
	sc.PreCalls = toCalls(cfg.Scheduler.PreCalls)
	sc.PostCalls = toCalls(cfg.Scheduler.PostCalls)
	sc.LoopGuard = orchestrator.LoopGuardConfig{
		Enabled:       cfg.Scheduler.LoopGuardEnabled(),
		ReadOnlyTools: cfg.Scheduler.LoopGuard.ReadOnlyTools,
	}
	return sc
}

func toCalls(in []config.CallConfig) []toolset.Call {
	out := make([]toolset.Call, len(in))
	for i, c := range in {
		out[i] = toolset.Call{Name: c.Name, Params: c.Parameters}
	}
	return out
}
