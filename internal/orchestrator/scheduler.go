// ABOUTME: Scheduler runs actor passes round-robin on a single goroutine.
// ABOUTME: It owns actor registration, the loop guard, and the pass ticker.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/2389/polis/internal/agent"
	"github.com/2389/polis/internal/reasoning"
	"github.com/2389/polis/internal/store"
	"github.com/2389/polis/internal/telemetry"
	"github.com/2389/polis/internal/toolset"
)

// DefaultLoopInterval is the pause between ticks when none is configured.
const DefaultLoopInterval = 2 * time.Second

// interestCount is how many interests a new actor is seeded with.
const interestCount = 3

// Recorder persists completed passes.
type Recorder interface {
	SavePass(ctx context.Context, rec *store.PassRecord) error
}

// LoopGuardConfig tunes read-only loop avoidance.
type LoopGuardConfig struct {
	Enabled       bool
	ReadOnlyTools []string
}

// Config controls pass assembly and pacing.
type Config struct {
	SystemPrompt string
	DefaultModel string
	LoopInterval time.Duration
	HistorySize  int
	PreCalls     []toolset.Call
	PostCalls    []toolset.Call
	LoopGuard    LoopGuardConfig
}

// DefaultConfig returns the scheduler defaults with the loop guard enabled.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: DefaultSystemPrompt,
		LoopInterval: DefaultLoopInterval,
		HistorySize:  agent.DefaultHistorySize,
		LoopGuard:    LoopGuardConfig{Enabled: true},
	}
}

// PassHook observes every completed pass.
type PassHook func(*PassResult)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStore persists pass records.
func WithStore(r Recorder) Option {
	return func(s *Scheduler) { s.store = r }
}

// WithMetrics records pass and tool-call telemetry.
func WithMetrics(m *telemetry.PassMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides time.Now for pass timestamps and seeded self-state.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPassHook registers a callback fired after each completed pass.
func WithPassHook(h PassHook) Option {
	return func(s *Scheduler) { s.hook = h }
}

// WithRand sets the random source used to seed interests.
func WithRand(r *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = r }
}

// Scheduler drives passes for registered actors.
type Scheduler struct {
	cfg       Config
	completer reasoning.Completer
	directory *toolset.Menu
	actors    *agent.Manager
	guard     *LoopGuard

	store   Recorder
	metrics *telemetry.PassMetrics
	logger  *slog.Logger
	now     func() time.Time
	hook    PassHook

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	index int
}

// New builds a scheduler. directory is the Menu every new actor starts on.
func New(cfg Config, completer reasoning.Completer, directory *toolset.Menu, opts ...Option) (*Scheduler, error) {
	if completer == nil {
		return nil, errors.New("orchestrator: completer is required")
	}
	if directory == nil {
		return nil, errors.New("orchestrator: directory menu is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = DefaultLoopInterval
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = agent.DefaultHistorySize
	}

	s := &Scheduler{
		cfg:       cfg,
		completer: completer,
		directory: directory,
		guard:     NewLoopGuard(cfg.LoopGuard.Enabled, cfg.LoopGuard.ReadOnlyTools),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.logger = s.logger.With("component", "scheduler")
	s.actors = agent.NewManager(s.logger)
	return s, nil
}

// AddActor registers an actor on the directory Menu and seeds its self-state.
// Empty fields of p fall back to the scheduler config.
func (s *Scheduler) AddActor(p agent.Params, instructions string) (*agent.Actor, error) {
	if p.SystemPrompt == "" {
		p.SystemPrompt = s.cfg.SystemPrompt
	}
	if p.Model == "" {
		p.Model = s.cfg.DefaultModel
	}
	if p.HistorySize <= 0 {
		p.HistorySize = s.cfg.HistorySize
	}
	if p.Menu == nil {
		p.Menu = s.directory
	}

	a := agent.New(p)
	a.SetSelfField("goal", "live and interact")
	a.SetSelfField("createdAt", s.now().UTC().Format(time.RFC3339))

	s.rngMu.Lock()
	interests := pickInterests(s.rng, interestCount)
	s.rngMu.Unlock()
	a.SetSelfField("interests", strings.Join(interests, ", "))

	if strings.TrimSpace(instructions) == "" {
		instructions = DefaultInstructions
	}
	a.SetInstructions(instructions)

	if err := s.actors.Register(a); err != nil {
		return nil, fmt.Errorf("register actor %s: %w", a.ID(), err)
	}
	return a, nil
}

// RemoveActor leaves the actor's current chat and unregisters it.
func (s *Scheduler) RemoveActor(ctx context.Context, id string) error {
	a, ok := s.actors.Get(id)
	if !ok {
		return agent.ErrAgentNotFound
	}
	if menu := a.Menu(); menu != nil && menu.Has("leave") {
		res := s.invoke(ctx, a, menu, toolset.Call{Name: "leave"})
		s.logger.Debug("actor left chat on removal", "agent_id", id, "result", res)
	}
	if _, err := s.actors.Unregister(id); err != nil {
		return err
	}
	s.guard.Forget(id)
	return nil
}

// Actor returns a registered actor.
func (s *Scheduler) Actor(id string) (*agent.Actor, bool) {
	return s.actors.Get(id)
}

// Actors lists actors in registration order.
func (s *Scheduler) Actors() []*agent.Actor {
	return s.actors.List()
}

// Tick runs one pass for the next actor in round-robin order.
// It returns nil without doing anything when no actors are registered.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.mu.Lock()
	idx := s.index
	s.index++
	s.mu.Unlock()

	a, ok := s.actors.At(idx)
	if !ok {
		return nil
	}

	// The pass finishes even if ctx is cancelled mid-flight.
	if _, err := s.RunPass(context.WithoutCancel(ctx), a); err != nil {
		s.logger.Error("pass failed", "actor_id", a.ID(), "error", err)
		return err
	}
	return nil
}

// Run ticks immediately and then every LoopInterval until ctx is cancelled.
// Ticks never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.cfg.LoopInterval,
		"actors", s.actors.Len(),
		"loop_guard", s.cfg.LoopGuard.Enabled,
	)
	if ctx.Err() != nil {
		return nil
	}
	_ = s.Tick(ctx)

	ticker := time.NewTicker(s.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			_ = s.Tick(ctx)
		}
	}
}
