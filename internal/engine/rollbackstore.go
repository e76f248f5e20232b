package engine

import (
	"context"
	"sync"
	"time"

	"github.com/xela07ax/teamspace-action-engine/internal/domain"
)

// RollbackStore — явный, инжектируемый компонент хранения планов.
// Контракт конкурентности: ключ — actionID, два запроса никогда не делят
// один ключ, но живых ключей много; Put/Take/Discard атомарны по ключу.
// Реализации: in-memory (один инстанс) и Redis (см. redisstore.go).
type RollbackStore interface {
	// Put сохраняет план ДО dispatch, без дедлайна удержания.
	// Упавший посреди исполнения процесс оставит план для ручного разбора.
	Put(ctx context.Context, plan *domain.RollbackPlan) error
	// Retain перезаписывает план (уже обогащенный post-state данными)
	// и взводит окно удержания. Вызывается только после успеха.
	Retain(ctx context.Context, plan *domain.RollbackPlan, ttl time.Duration) error
	// Take атомарно забирает план и удаляет его: откат исполняется ровно
	// один раз. Нет плана или окно истекло — domain.ErrNoRollbackPlan.
	Take(ctx context.Context, actionID string) (*domain.RollbackPlan, error)
	// Discard удаляет план (неуспешное исполнение — нечего откатывать)
	Discard(ctx context.Context, actionID string) error
}

type planEntry struct {
	plan     *domain.RollbackPlan
	deadline time.Time // Нулевое значение = дедлайн еще не взведен (pending dispatch)
}

// MemoryRollbackStore — потокобезопасная in-memory реализация.
// Истечение окна проверяется лениво при Take, фонового sweeper'а нет.
type MemoryRollbackStore struct {
	mu    sync.RWMutex
	plans map[string]planEntry
}

func NewMemoryRollbackStore() *MemoryRollbackStore {
	return &MemoryRollbackStore{plans: make(map[string]planEntry)}
}

func (s *MemoryRollbackStore) Put(ctx context.Context, plan *domain.RollbackPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ActionID] = planEntry{plan: plan}
	return nil
}

func (s *MemoryRollbackStore) Retain(ctx context.Context, plan *domain.RollbackPlan, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ActionID] = planEntry{plan: plan, deadline: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryRollbackStore) Take(ctx context.Context, actionID string) (*domain.RollbackPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.plans[actionID]
	if !ok {
		return nil, domain.ErrNoRollbackPlan
	}
	// Ленивая проверка окна удержания
	if !entry.deadline.IsZero() && time.Now().After(entry.deadline) {
		delete(s.plans, actionID)
		return nil, domain.ErrNoRollbackPlan
	}

	delete(s.plans, actionID) // Consumed: повторный Take не перезапустит компенсации
	return entry.plan, nil
}

func (s *MemoryRollbackStore) Discard(ctx context.Context, actionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, actionID)
	return nil
}
