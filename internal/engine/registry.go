package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// Executor — стратегия исполнения операции против своего модуля.
// Возвращает сырой пэйлоад модуля; единую форму ExecutionResult
// собирает уже реестр/оркестратор.
type Executor interface {
	Execute(ctx context.Context, action domain.Action, user domain.UserContext) (map[string]interface{}, error)
}

// Registry резолвит исполнителя по ключу модуля.
// Порядок резолва: динамически зарегистрированный (сторонний модуль)
// всегда перекрывает встроенный — аддоны подменяют поведение ядра
// без его модификации. Нет ни того, ни другого — NoExecutorFound,
// молчаливого no-op не бывает.
type Registry struct {
	mu      sync.RWMutex
	builtin map[string]Executor
	dynamic map[string]Executor
	logger  *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		builtin: make(map[string]Executor),
		dynamic: make(map[string]Executor),
		logger:  logger.Named("registry"),
	}
}

// RegisterBuiltin добавляет встроенный исполнитель. Вызывается при старте.
func (r *Registry) RegisterBuiltin(module string, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtin[module] = exec
}

// Register регистрирует сторонний исполнитель поверх встроенного.
// Обычно один раз при установке модуля, но мьютекс обязателен:
// рантайм-регистрация не должна гоняться с конкурентным Resolve.
func (r *Registry) Register(module string, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamic[module] = exec
	r.logger.Info("dynamic executor registered", zap.String("module", module))
}

// Resolve возвращает исполнителя для модуля или ErrNoExecutorFound
func (r *Registry) Resolve(module string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if exec, ok := r.dynamic[module]; ok {
		return exec, nil
	}
	if exec, ok := r.builtin[module]; ok {
		return exec, nil
	}
	return nil, fmt.Errorf("%w for module: %s", domain.ErrNoExecutorFound, module)
}

// Execute резолвит и исполняет. Паника внутри исполнителя гасится здесь,
// на границе реестра: одно сломанное действие не должно ронять соседей по batch.
func (r *Registry) Execute(ctx context.Context, action domain.Action, user domain.UserContext) (result map[string]interface{}, err error) {
	exec, err := r.Resolve(action.Module)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("executor panic recovered",
				zap.String("module", action.Module),
				zap.String("operation", action.Operation),
				zap.Any("panic", rec),
			)
			result = nil
			err = fmt.Errorf("executor panic in %s.%s: %v", action.Module, action.Operation, rec)
		}
	}()

	return exec.Execute(ctx, action, user)
}
