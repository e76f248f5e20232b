package modules

import (
	"context"

	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// CalendarExecutor — встроенный исполнитель модуля календаря
type CalendarExecutor struct {
	endpoint connectors.ModuleEndpoint
	logger   *zap.Logger
}

func NewCalendarExecutor(endpoint connectors.ModuleEndpoint, logger *zap.Logger) *CalendarExecutor {
	return &CalendarExecutor{endpoint: endpoint, logger: logger.Named("calendar")}
}

func (e *CalendarExecutor) Execute(ctx context.Context, action domain.Action, user domain.UserContext) (map[string]interface{}, error) {
	switch action.Operation {
	case "create_event":
		if err := requireParams(action.Parameters, "title", "start"); err != nil {
			return nil, err
		}
	case "cancel_event":
		if err := requireParams(action.Parameters, "event_id"); err != nil {
			return nil, err
		}
	case "reschedule_event":
		// current_start нужен модулю, чтобы вернуть прежнее время для компенсации
		if err := requireParams(action.Parameters, "event_id", "start", "current_start"); err != nil {
			return nil, err
		}
	default:
		return nil, unknownOperation("calendar", action.Operation)
	}

	return e.endpoint.Invoke(ctx, action.Operation, action.Parameters, user.UserID)
}
