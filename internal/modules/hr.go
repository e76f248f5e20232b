package modules

import (
	"context"

	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// HRExecutor — встроенный исполнитель кадрового модуля
type HRExecutor struct {
	endpoint connectors.ModuleEndpoint
	logger   *zap.Logger
}

func NewHRExecutor(endpoint connectors.ModuleEndpoint, logger *zap.Logger) *HRExecutor {
	return &HRExecutor{endpoint: endpoint, logger: logger.Named("hr")}
}

func (e *HRExecutor) Execute(ctx context.Context, action domain.Action, user domain.UserContext) (map[string]interface{}, error) {
	switch action.Operation {
	case "clock_in", "clock_out":
		if err := requireParams(action.Parameters, "employee_id"); err != nil {
			return nil, err
		}
	case "request_leave":
		if err := requireParams(action.Parameters, "employee_id", "from", "to"); err != nil {
			return nil, err
		}
	case "cancel_leave":
		if err := requireParams(action.Parameters, "leave_id"); err != nil {
			return nil, err
		}
	default:
		return nil, unknownOperation("hr", action.Operation)
	}

	return e.endpoint.Invoke(ctx, action.Operation, action.Parameters, user.UserID)
}
