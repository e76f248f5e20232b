package modules

import (
	"context"

	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// DriveExecutor — встроенный исполнитель модуля файлового хранилища
type DriveExecutor struct {
	endpoint connectors.ModuleEndpoint
	logger   *zap.Logger
}

func NewDriveExecutor(endpoint connectors.ModuleEndpoint, logger *zap.Logger) *DriveExecutor {
	return &DriveExecutor{endpoint: endpoint, logger: logger.Named("drive")}
}

func (e *DriveExecutor) Execute(ctx context.Context, action domain.Action, user domain.UserContext) (map[string]interface{}, error) {
	// Per-module switch: каждая ветка проверяет свои обязательные параметры
	switch action.Operation {
	case "create_folder":
		if err := requireParams(action.Parameters, "name"); err != nil {
			return nil, err
		}
	case "delete_folder":
		if err := requireParams(action.Parameters, "folder_id"); err != nil {
			return nil, err
		}
	case "delete_file", "share_file":
		if err := requireParams(action.Parameters, "file_id"); err != nil {
			return nil, err
		}
	case "move_file":
		if err := requireParams(action.Parameters, "file_id", "parent_id"); err != nil {
			return nil, err
		}
	case "rename_file":
		if err := requireParams(action.Parameters, "file_id", "name"); err != nil {
			return nil, err
		}
	default:
		return nil, unknownOperation("drive", action.Operation)
	}

	return e.endpoint.Invoke(ctx, action.Operation, action.Parameters, user.UserID)
}
