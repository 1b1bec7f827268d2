package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Service serves clinic reports through a redis read-through cache. The
// report worker refreshes the same keys in the background, so most dashboard
// reads never touch Postgres.
type Service struct {
	repo     Repository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewService(repo Repository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func statsKey(clinicID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("stats:%s:%s", clinicID, date.Format("2006-01-02"))
}

// DailyStats returns the cached counters for one day, falling back to a
// fresh aggregation when the cache misses. Cache failures degrade to a
// direct query.
func (s *Service) DailyStats(ctx context.Context, clinicID uuid.UUID, date time.Time) (*DailyStats, error) {
	key := statsKey(clinicID, date)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var stats DailyStats
			if jsonErr := json.Unmarshal(raw, &stats); jsonErr == nil {
				return &stats, nil
			}
			s.logger.Warn("dropping malformed cached stats", zap.String("key", key))
		} else if err != redis.Nil {
			s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	return s.RefreshDailyStats(ctx, clinicID, date)
}

// RefreshDailyStats recomputes one day's counters and writes them back to
// the cache. Used by both the cache-miss path and the report worker.
func (s *Service) RefreshDailyStats(ctx context.Context, clinicID uuid.UUID, date time.Time) (*DailyStats, error) {
	stats, err := s.repo.DailyStats(ctx, clinicID, date)
	if err != nil {
		return nil, fmt.Errorf("compute daily stats: %w", err)
	}

	if s.cache != nil {
		raw, err := json.Marshal(stats)
		if err == nil {
			if err := s.cache.Set(ctx, statsKey(clinicID, date), raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}

	return stats, nil
}

func (s *Service) DoctorReports(ctx context.Context, clinicID uuid.UUID) ([]DoctorReport, error) {
	return s.repo.DoctorReports(ctx, clinicID)
}

func (s *Service) ClinicName(ctx context.Context, clinicID uuid.UUID) (string, error) {
	return s.repo.ClinicName(ctx, clinicID)
}

func (s *Service) ListClinicIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.repo.ListClinicIDs(ctx)
}
