package service

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/cache"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
)

// StatisticsCache is the read-through store for statistics snapshots.
type StatisticsCache interface {
	Get(ctx context.Context) (*domain.Statistics, error)
	Set(ctx context.Context, stats *domain.Statistics) error
	Invalidate(ctx context.Context) error
}

// StatisticsService serves the admin statistics snapshot.
type StatisticsService struct {
	stats  repository.StatisticsRepository
	cache  StatisticsCache
	logger *zap.Logger

	// generation advances on every invalidation. A snapshot loaded across an
	// invalidation is served but not cached.
	generation atomic.Uint64
}

// NewStatisticsService builds the service. A nil cache always reads the database.
func NewStatisticsService(stats repository.StatisticsRepository, statsCache StatisticsCache, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{stats: stats, cache: statsCache, logger: logger}
}

// Get returns the cached snapshot, or aggregates and caches a fresh one.
func (s *StatisticsService) Get(ctx context.Context) (*domain.Statistics, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("statistics cache read failed", zap.Error(err))
		}
	}

	generation := s.generation.Load()
	fresh, err := s.stats.Load(ctx, domain.StatisticsTopN)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.generation.Load() == generation {
		if err := s.cache.Set(ctx, fresh); err != nil {
			s.logger.Warn("statistics cache write failed", zap.Error(err))
		}
	}
	return fresh, nil
}

// RegisterHandlers drops the cached snapshot whenever the catalog or loans change.
func (s *StatisticsService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	for _, eventType := range events.CatalogEvents {
		dispatcher.Subscribe(eventType, s.handleCatalogChanged)
	}
}

func (s *StatisticsService) handleCatalogChanged(ctx context.Context, event events.Event) error {
	s.generation.Add(1)
	if err := s.cache.Invalidate(ctx); err != nil {
		return err
	}
	s.logger.Debug("statistics cache invalidated", zap.String("event_type", string(event.Type)))
	return nil
}
