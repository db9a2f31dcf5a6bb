package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

const (
	statsCachePrefix  = "registry:stats"
	statsCachePattern = statsCachePrefix + ":*"
)

type registryAggregator interface {
	AggregateByCategory(ctx context.Context, filter models.RegistryFilter) ([]models.CategoryStats, error)
}

// StatisticsService groups registry totals by vehicle category.
type StatisticsService struct {
	repo   registryAggregator
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatisticsService constructs the statistics service. cache may be nil.
func NewStatisticsService(repo registryAggregator, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// ByCategory returns per-category totals, served from cache when possible.
func (s *StatisticsService) ByCategory(ctx context.Context, filter models.RegistryFilter) ([]models.CategoryStats, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown vehicle category")
	}

	scope := "all"
	if filter.Category != nil {
		scope = string(*filter.Category)
	}
	key := Key(statsCachePrefix, scope)

	var cached []models.CategoryStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.AggregateByCategory(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to aggregate registry")
	}
	stats := make([]models.CategoryStats, 0, len(rows))
	for _, row := range rows {
		row.CompletionRate = completionRate(row.CompletedCount, row.StudentCount)
		stats = append(stats, row)
	}

	if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
		s.logger.Debug("stats not cached", zap.String("key", key))
	}
	return stats, nil
}

// completionRate divides by at least one.
func completionRate(completed, count int) float64 {
	if count < 1 {
		count = 1
	}
	return float64(completed) / float64(count)
}
