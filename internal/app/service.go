// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/okian/topboard/internal/adapters/repository"
	"github.com/okian/topboard/internal/domain/entry"
	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/logger"
	"github.com/okian/topboard/pkg/metrics"
)

// Store backends Start knows how to build.
const (
	BackendMemory = "memory"
	BackendREST   = "rest"
	BackendRedis  = "redis"
)

// statsTimeout bounds the store reads behind GetStats.
const statsTimeout = 2 * time.Second

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  ranking.Store
	engine *ranking.Engine

	// Configuration
	backend      string
	restURL      string
	restToken    string
	redis        repository.Config
	storeTimeout time.Duration
	boardSize    int
	modes        []string
	injected     ranking.Store

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBackend selects the store backend: memory, rest or redis.
func WithBackend(backend string) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

// WithRESTEndpoint sets the command endpoint and bearer token of the rest
// backend.
func WithRESTEndpoint(url, token string) Option {
	return func(s *Service) {
		s.restURL = url
		s.restToken = token
	}
}

// WithRedis sets the address, password and database of the redis backend.
func WithRedis(addr, password string, db int) Option {
	return func(s *Service) {
		if addr != "" {
			s.redis.Addr = addr
		}
		s.redis.Password = password
		s.redis.DB = db
	}
}

// WithStoreTimeout bounds every remote store command.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithBoardSize sets how many entries each board keeps.
func WithBoardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.boardSize = n
		}
	}
}

// WithModes sets the modes ResetAll clears and GetStats reports.
func WithModes(modes []string) Option {
	return func(s *Service) {
		if len(modes) > 0 {
			s.modes = slices.Clone(modes)
		}
	}
}

// WithStore makes Start use store instead of building one. The service
// does not close an injected store.
func WithStore(store ranking.Store) Option {
	return func(s *Service) {
		s.injected = store
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend:      BackendMemory,
		redis:        repository.DefaultConfig(),
		storeTimeout: 5 * time.Second,
		boardSize:    ranking.DefaultBoardSize,
		modes:        slices.Clone(ranking.DefaultModes),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the store and the ranking engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...", logger.String("backend", s.backend))

	store, err := s.buildStore(ctx)
	if err != nil {
		return err
	}
	s.store = store
	s.engine = ranking.NewEngine(store,
		ranking.WithBoardSize(s.boardSize),
		ranking.WithModes(s.modes),
		ranking.WithLogger(s.logger.Named("ranking")),
	)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ranking service started",
		logger.String("backend", s.backend),
		logger.Int("boardSize", s.boardSize),
		logger.Any("modes", s.modes),
	)

	return nil
}

func (s *Service) buildStore(ctx context.Context) (ranking.Store, error) {
	if s.injected != nil {
		return s.injected, nil
	}
	switch s.backend {
	case BackendMemory:
		return repository.NewTreapStore(ctx), nil
	case BackendREST:
		if s.restURL == "" {
			return nil, fmt.Errorf("service.start: rest backend needs an endpoint: %w", ErrUnknownBackend)
		}
		return repository.NewRESTStore(s.restURL, s.restToken, s.storeTimeout,
			repository.WithRESTLogger(s.logger.Named("store.rest"))), nil
	case BackendRedis:
		cfg := s.redis
		cfg.ReadTimeout = s.storeTimeout
		cfg.WriteTimeout = s.storeTimeout
		store, err := repository.NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("service.start: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("service.start: %w: %q", ErrUnknownBackend, s.backend)
	}
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping ranking service...")

	if s.injected == nil {
		if closer, ok := s.store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
			}
		}
	}

	s.store = nil
	s.engine = nil
	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

// running returns the engine, or ErrNotStarted.
func (s *Service) running() (*ranking.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

// Rankings returns a mode's board, best first.
func (s *Service) Rankings(ctx context.Context, mode string) ([]entry.Entry, error) {
	e, err := s.running()
	if err != nil {
		return nil, err
	}
	return e.Rankings(ctx, mode)
}

// Submit records a score if it improves the player's best.
func (s *Service) Submit(ctx context.Context, mode, name string, score, accuracy, efficiency any) (ranking.SubmitResult, error) {
	e, err := s.running()
	if err != nil {
		return ranking.SubmitResult{}, err
	}
	return e.Submit(ctx, mode, name, score, accuracy, efficiency)
}

// Delete removes an entry by name and efficiency.
func (s *Service) Delete(ctx context.Context, mode, name string, efficiency any) error {
	e, err := s.running()
	if err != nil {
		return err
	}
	return e.Delete(ctx, mode, name, efficiency)
}

// Edit replaces an entry.
func (s *Service) Edit(ctx context.Context, req ranking.EditRequest) error {
	e, err := s.running()
	if err != nil {
		return err
	}
	return e.Edit(ctx, req)
}

// ResetAll clears every known mode's board.
func (s *Service) ResetAll(ctx context.Context) ([]string, error) {
	e, err := s.running()
	if err != nil {
		return nil, err
	}
	return e.ResetAll(ctx)
}

// Ping checks the store answers.
func (s *Service) Ping(ctx context.Context) error {
	e, err := s.running()
	if err != nil {
		return err
	}
	return e.Ping(ctx)
}

// GetStats returns service statistics for monitoring. Store reads happen
// outside the lock so a slow store cannot hold up Stop.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	engine, started, startedAt, l := s.engine, s.started, s.startedAt, s.logger
	modes := slices.Clone(s.modes)
	stats := map[string]interface{}{
		"started":   started,
		"backend":   s.backend,
		"boardSize": s.boardSize,
		"modes":     slices.Clone(modes),
	}
	s.mu.RUnlock()

	if !started {
		return stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	boards := make(map[string]int64, len(modes))
	for _, mode := range modes {
		n, err := engine.Size(ctx, mode)
		if err != nil {
			l.Warn(ctx, "stats read failed", logger.String("mode", mode), logger.Error(err))
			stats["storeError"] = "unavailable"
			break
		}
		boards[mode] = n
		metrics.UpdateBoardSize(mode, int(n))
	}
	stats["boards"] = boards
	stats["uptimeSeconds"] = int64(time.Since(startedAt).Seconds())

	return stats
}
