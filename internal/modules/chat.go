package modules

import (
	"context"

	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// ChatExecutor — встроенный исполнитель модуля сообщений
type ChatExecutor struct {
	endpoint connectors.ModuleEndpoint
	logger   *zap.Logger
}

func NewChatExecutor(endpoint connectors.ModuleEndpoint, logger *zap.Logger) *ChatExecutor {
	return &ChatExecutor{endpoint: endpoint, logger: logger.Named("chat")}
}

func (e *ChatExecutor) Execute(ctx context.Context, action domain.Action, user domain.UserContext) (map[string]interface{}, error) {
	switch action.Operation {
	case "send_message":
		if err := requireParams(action.Parameters, "channel", "text"); err != nil {
			return nil, err
		}
	case "create_channel":
		if err := requireParams(action.Parameters, "name"); err != nil {
			return nil, err
		}
	case "archive_channel":
		if err := requireParams(action.Parameters, "channel_id"); err != nil {
			return nil, err
		}
	default:
		return nil, unknownOperation("chat", action.Operation)
	}

	return e.endpoint.Invoke(ctx, action.Operation, action.Parameters, user.UserID)
}
