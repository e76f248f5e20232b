package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"github.com/xela07ax/teamspace-action-engine/internal/infra"
)

// RedisRollbackStore — распределенная реализация RollbackStore для
// мультиинстансного развертывания: откат может прилететь не на тот инстанс,
// который исполнял действие. Окно удержания — нативный TTL Redis.
type RedisRollbackStore struct {
	rdb *redis.Client
	// Страховочный TTL для планов в фазе «до dispatch»: упавший процесс
	// оставляет план для разбора, но не навсегда
	pendingTTL time.Duration
}

func NewRedisRollbackStore(rdb *redis.Client) *RedisRollbackStore {
	return &RedisRollbackStore{rdb: rdb, pendingTTL: 24 * time.Hour}
}

func (s *RedisRollbackStore) Put(ctx context.Context, plan *domain.RollbackPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("rollback store: marshal plan: %w", err)
	}
	return s.rdb.Set(ctx, infra.RollbackPlanKey(plan.ActionID), data, s.pendingTTL).Err()
}

func (s *RedisRollbackStore) Retain(ctx context.Context, plan *domain.RollbackPlan, ttl time.Duration) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("rollback store: marshal plan: %w", err)
	}
	return s.rdb.Set(ctx, infra.RollbackPlanKey(plan.ActionID), data, ttl).Err()
}

func (s *RedisRollbackStore) Take(ctx context.Context, actionID string) (*domain.RollbackPlan, error) {
	// GETDEL: забрать и удалить атомарно, откат исполняется ровно один раз
	data, err := s.rdb.GetDel(ctx, infra.RollbackPlanKey(actionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoRollbackPlan
		}
		return nil, fmt.Errorf("rollback store: redis get: %w", err)
	}

	var plan domain.RollbackPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("rollback store: unmarshal plan: %w", err)
	}
	return &plan, nil
}

func (s *RedisRollbackStore) Discard(ctx context.Context, actionID string) error {
	return s.rdb.Del(ctx, infra.RollbackPlanKey(actionID)).Err()
}
