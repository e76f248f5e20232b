package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/teamspace-action-engine/internal/audit"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// Orchestrator — центральный координатор: гейт -> план -> реестр -> аудит.
// Собственной долгоживущей механики нет: каждый вызов живет в рамках
// запроса и доводится до конца (success или failure).
type Orchestrator struct {
	gate      *Gate
	registry  *Registry
	planner   *Planner
	plans     RollbackStore
	auditor   audit.Auditor
	metrics   *Metrics
	retention time.Duration
	logger    *zap.Logger
}

func NewOrchestrator(
	gate *Gate,
	registry *Registry,
	planner *Planner,
	plans RollbackStore,
	auditor audit.Auditor,
	metrics *Metrics,
	retention time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if retention <= 0 {
		retention = domain.DefaultRollbackRetention
	}
	return &Orchestrator{
		gate:      gate,
		registry:  registry,
		planner:   planner,
		plans:     plans,
		auditor:   auditor,
		metrics:   metrics,
		retention: retention,
		logger:    logger.Named("orchestrator"),
	}
}

// ExecuteActions исполняет batch строго последовательно, в поданном порядке:
// поздние действия могут зависеть от side effects ранних («создай папку,
// перенеси туда файлы»). Отказ одного действия изолируется в его результат
// и НЕ останавливает остальных — batch никогда не all-or-nothing.
func (o *Orchestrator) ExecuteActions(ctx context.Context, actions []domain.Action, user domain.UserContext) ([]*domain.ExecutionResult, error) {
	results := make([]*domain.ExecutionResult, 0, len(actions))
	for _, action := range actions {
		res, err := o.ExecuteAction(ctx, action, user)
		if err != nil {
			// Сюда попадают только ошибки программиста (битый Action),
			// они валят весь вызов целиком
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// ExecuteAction проводит одно действие через полный пайплайн.
// Ошибку возвращает только на малформированном Action; все остальные
// отказы упакованы в ExecutionResult.
func (o *Orchestrator) ExecuteAction(ctx context.Context, action domain.Action, user domain.UserContext) (*domain.ExecutionResult, error) {
	if action.ID == "" || action.Module == "" || action.Operation == "" {
		return nil, fmt.Errorf("malformed action: id, module and operation are required")
	}

	o.metrics.TotalActions.WithLabelValues(action.Module, action.Operation).Inc()
	start := time.Now()

	// 1. Approval Gate
	decision, err := o.gate.Evaluate(ctx, action, user)
	if err != nil {
		// Недоступное хранилище заявок — отказ этого действия, не всего batch
		return o.finish(action, user, start, nil, fmt.Errorf("approval gate failed: %w", err)), nil
	}
	if !decision.Proceed {
		o.metrics.ErrorTotal.WithLabelValues("needs_approval").Inc()
		res := domain.FailedResult(action, errors.New(decision.Reason))
		res.Metadata.ExecutionTimeMs = time.Since(start).Milliseconds()
		if decision.Created {
			// Первая подача: фиксируем сам факт создания заявки
			o.logAttempt(audit.KindApprovalRequest, action, user, res, "PENDING_APPROVAL")
		}
		o.logAttempt(audit.KindExecute, action, user, res, "PENDING_APPROVAL")
		o.observe(action, "pending_approval", start)
		return res, nil
	}
	action = decision.Action // С вмерженными modify-поправками, если было резюме

	// 2. План компенсаций строится и сохраняется ДО dispatch: если процесс
	// упадет посреди исполнения, план останется для ручного разбора
	plan := o.planner.Plan(action, user)
	if err := o.plans.Put(ctx, plan); err != nil {
		o.logger.Warn("failed to stage rollback plan", zap.String("action_id", action.ID), zap.Error(err))
	}

	// 3. Резолв и исполнение через реестр
	payload, execErr := o.registry.Execute(ctx, action, user)

	// 4-5. Финализация: метаданные, удержание/сброс плана, аудит
	if execErr != nil {
		// Неуспех — удалять нечего, план сбрасываем сразу
		if derr := o.plans.Discard(ctx, action.ID); derr != nil {
			o.logger.Warn("failed to discard rollback plan", zap.String("action_id", action.ID), zap.Error(derr))
		}
		return o.finish(action, user, start, nil, execErr), nil
	}

	// Дотягиваем в план pre-state, захваченный модулем (например, прежний parent_id)
	plan.Enrich(payload)
	// rollbackAvailable обещает клиенту удержанный план: не удержали — не обещаем
	retained := false
	if err := o.plans.Retain(ctx, plan, o.retention); err != nil {
		o.logger.Warn("failed to retain rollback plan", zap.String("action_id", action.ID), zap.Error(err))
	} else {
		o.metrics.RetainedPlans.Inc()
		retained = true
	}

	res := &domain.ExecutionResult{
		ActionID: action.ID,
		Success:  true,
		Result:   payload,
		Metadata: domain.ResultMetadata{
			ExecutionTimeMs:   time.Since(start).Milliseconds(),
			Module:            action.Module,
			Operation:         action.Operation,
			AffectedUsers:     action.AffectedUsers,
			RollbackAvailable: retained,
		},
	}
	o.logAttempt(audit.KindExecute, action, user, res, "SUCCESS")
	o.observe(action, "success", start)
	return res, nil
}

// Rollback исполняет удержанный план компенсаций для действия.
// План потребляется ровно один раз: повторный вызов вернет NoRollbackPlanFound,
// а не перезапустит компенсации.
func (o *Orchestrator) Rollback(ctx context.Context, actionID string, user domain.UserContext) *domain.ExecutionResult {
	start := time.Now()

	plan, err := o.plans.Take(ctx, actionID)
	if err != nil {
		o.metrics.ErrorTotal.WithLabelValues("no_rollback_plan").Inc()
		res := &domain.ExecutionResult{
			ActionID: actionID,
			Success:  false,
			Error:    fmt.Errorf("%w for action: %s", domain.ErrNoRollbackPlan, actionID).Error(),
		}
		o.logAttempt(audit.KindRollback, domain.Action{ID: actionID}, user, res, "FAILED")
		return res
	}
	o.metrics.RetainedPlans.Dec()

	// Шаги строго по убыванию Order (обратный порядок исполнения), без
	// параллелизма. Откат не ретраится: план уже изъят из стора.
	var stepErr error
	executed := 0
	for _, step := range plan.StepsReversed() {
		stepAction := domain.Action{
			ID:         uuid.New().String(),
			Type:       domain.ActionTypeMutation,
			Module:     step.Module,
			Operation:  step.Operation,
			Parameters: step.Parameters,
		}
		if _, err := o.registry.Execute(ctx, stepAction, user); err != nil {
			if stepErr == nil {
				stepErr = fmt.Errorf("rollback step %s.%s failed: %w", step.Module, step.Operation, err)
			}
			continue // Остальные компенсации все равно пробуем
		}
		executed++
	}

	res := &domain.ExecutionResult{
		ActionID: actionID,
		Success:  stepErr == nil,
		Result: map[string]interface{}{
			"rolled_back_steps": executed,
			"total_steps":       len(plan.Steps),
		},
		Metadata: domain.ResultMetadata{
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		},
	}
	status := "SUCCESS"
	if stepErr != nil {
		res.Error = stepErr.Error()
		status = "FAILED"
	}
	// План с нулем шагов — валидный откат: фиксируем «откатывать нечего»
	o.logAttempt(audit.KindRollback, domain.Action{ID: actionID}, user, res, status)
	return res
}

// RegisterExecutor прокидывает динамическую регистрацию стороннего модуля
func (o *Orchestrator) RegisterExecutor(module string, exec Executor) {
	o.registry.Register(module, exec)
}

// finish собирает единый неуспешный результат, классифицирует ошибку
// для метрик и пишет аудит
func (o *Orchestrator) finish(action domain.Action, user domain.UserContext, start time.Time, payload map[string]interface{}, execErr error) *domain.ExecutionResult {
	res := domain.FailedResult(action, execErr)
	res.Result = payload
	res.Metadata.ExecutionTimeMs = time.Since(start).Milliseconds()

	o.metrics.ErrorTotal.WithLabelValues(classifyError(execErr)).Inc()
	o.logAttempt(audit.KindExecute, action, user, res, "FAILED")
	o.observe(action, "failed", start)
	return res
}

// logAttempt — обязательный side effect: аудит каждой попытки.
// Auditor неблокирующий, его сбои не доезжают до результата.
func (o *Orchestrator) logAttempt(kind string, action domain.Action, user domain.UserContext, res *domain.ExecutionResult, status string) {
	o.auditor.Log(audit.Event{
		ID:         uuid.New().String(),
		TraceID:    user.TraceID,
		Kind:       kind,
		ActionID:   action.ID,
		UserID:     user.UserID,
		Module:     action.Module,
		Operation:  action.Operation,
		Parameters: action.Parameters,
		Status:     status,
		Response:   res.Result,
		Error:      res.Error,
		DurationMs: res.Metadata.ExecutionTimeMs,
		Timestamp:  time.Now(),
	})
}

func (o *Orchestrator) observe(action domain.Action, status string, start time.Time) {
	o.metrics.ActionDuration.
		WithLabelValues(action.Module, action.Operation, status).
		Observe(time.Since(start).Seconds())
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoExecutorFound):
		return "no_executor"
	case errors.Is(err, domain.ErrMissingParam):
		return "missing_param"
	case errors.Is(err, domain.ErrNoRollbackPlan):
		return "no_rollback_plan"
	default:
		return "execution_failed"
	}
}
