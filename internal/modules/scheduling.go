package modules

import (
	"context"

	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// SchedulingExecutor — встроенный исполнитель модуля задач и смен
type SchedulingExecutor struct {
	endpoint connectors.ModuleEndpoint
	logger   *zap.Logger
}

func NewSchedulingExecutor(endpoint connectors.ModuleEndpoint, logger *zap.Logger) *SchedulingExecutor {
	return &SchedulingExecutor{endpoint: endpoint, logger: logger.Named("scheduling")}
}

func (e *SchedulingExecutor) Execute(ctx context.Context, action domain.Action, user domain.UserContext) (map[string]interface{}, error) {
	switch action.Operation {
	case "create_task":
		if err := requireParams(action.Parameters, "title"); err != nil {
			return nil, err
		}
	case "delete_task":
		if err := requireParams(action.Parameters, "task_id"); err != nil {
			return nil, err
		}
	case "assign_shift", "unassign_shift":
		if err := requireParams(action.Parameters, "shift_id", "employee_id"); err != nil {
			return nil, err
		}
	default:
		return nil, unknownOperation("scheduling", action.Operation)
	}

	return e.endpoint.Invoke(ctx, action.Operation, action.Parameters, user.UserID)
}
