package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Suppressor is the "freeze auto refresh" switch: while an admin is editing
// a form the background recompute loop must not reload views underneath it.
// Suppression is per clinic and shared across processes.
type Suppressor interface {
	Set(ctx context.Context, clinicID uuid.UUID, suppressed bool) error
	Suppressed(ctx context.Context, clinicID uuid.UUID) bool
}

type redisSuppressor struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSuppressor stores the switch in Redis so the report worker sees
// flags set through the API. The TTL keeps a forgotten freeze from sticking
// forever.
func NewRedisSuppressor(client *redis.Client, ttl time.Duration, logger *zap.Logger) Suppressor {
	return &redisSuppressor{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func suppressKey(clinicID uuid.UUID) string {
	return fmt.Sprintf("feed:suppressed:%s", clinicID)
}

func (s *redisSuppressor) Set(ctx context.Context, clinicID uuid.UUID, suppressed bool) error {
	if suppressed {
		return s.client.Set(ctx, suppressKey(clinicID), "1", s.ttl).Err()
	}
	return s.client.Del(ctx, suppressKey(clinicID)).Err()
}

// Suppressed fails open: if Redis is unreachable the refresh loop keeps
// running rather than freezing every clinic.
func (s *redisSuppressor) Suppressed(ctx context.Context, clinicID uuid.UUID) bool {
	n, err := s.client.Exists(ctx, suppressKey(clinicID)).Result()
	if err != nil {
		s.logger.Warn("suppressor check failed", zap.Error(err))
		return false
	}
	return n > 0
}

// MemSuppressor is a process-local Suppressor for tests.
type MemSuppressor struct {
	mu    sync.Mutex
	flags map[uuid.UUID]bool
}

func (m *MemSuppressor) Set(_ context.Context, clinicID uuid.UUID, suppressed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flags == nil {
		m.flags = make(map[uuid.UUID]bool)
	}
	m.flags[clinicID] = suppressed
	return nil
}

func (m *MemSuppressor) Suppressed(_ context.Context, clinicID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[clinicID]
}
