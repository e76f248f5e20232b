package connectors

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// LocalWorkspace — in-process реализация модульных эндпоинтов для локальных
// запусков и демо, когда реальные сервисы модулей не подняты. Состояние
// держим в памяти, чтобы откаты было чем проверять (create -> delete).
type LocalWorkspace struct {
	mu sync.Mutex
	// Мини-модель drive: folder/file id -> parent id
	parents map[string]string
	deleted map[string]bool
}

func NewLocalWorkspace() *LocalWorkspace {
	return &LocalWorkspace{
		parents: make(map[string]string),
		deleted: make(map[string]bool),
	}
}

// Drive возвращает эндпоинт модуля файлового хранилища
func (l *LocalWorkspace) Drive() ModuleEndpoint {
	return EndpointFunc(func(ctx context.Context, op string, params map[string]interface{}, userID string) (map[string]interface{}, error) {
		l.mu.Lock()
		defer l.mu.Unlock()

		switch op {
		case "create_folder":
			id := uuid.New().String()
			parent, _ := params["parent_id"].(string)
			l.parents[id] = parent
			return map[string]interface{}{"folder_id": id, "name": params["name"], "owner": userID}, nil

		case "delete_folder", "delete_file":
			id := strParam(params, "folder_id", "file_id")
			if l.deleted[id] {
				return nil, fmt.Errorf("drive: object %s already deleted", id)
			}
			l.deleted[id] = true
			return map[string]interface{}{"deleted": id}, nil

		case "move_file":
			id, _ := params["file_id"].(string)
			prev := l.parents[id]
			newParent, _ := params["parent_id"].(string)
			l.parents[id] = newParent
			// Прежнего родителя знает только модуль — отдаем его наружу,
			// rollback-план заберет значение через FromResult
			return map[string]interface{}{"file_id": id, "parent_id": newParent, "previous_parent_id": prev}, nil

		case "rename_file":
			prev, _ := params["previous_name"].(string)
			return map[string]interface{}{"file_id": params["file_id"], "name": params["name"], "previous_name": prev}, nil

		default:
			return nil, fmt.Errorf("drive: operation %s not supported", op)
		}
	})
}

// Chat возвращает эндпоинт модуля сообщений. Отправку не откатить,
// поэтому модуль ничего про компенсации не знает.
func (l *LocalWorkspace) Chat() ModuleEndpoint {
	return EndpointFunc(func(ctx context.Context, op string, params map[string]interface{}, userID string) (map[string]interface{}, error) {
		switch op {
		case "send_message":
			return map[string]interface{}{"message_id": uuid.New().String(), "channel": params["channel"], "from": userID}, nil
		case "create_channel":
			return map[string]interface{}{"channel_id": uuid.New().String(), "name": params["name"]}, nil
		case "archive_channel":
			return map[string]interface{}{"channel_id": params["channel_id"], "archived": true}, nil
		default:
			return nil, fmt.Errorf("chat: operation %s not supported", op)
		}
	})
}

// Calendar возвращает эндпоинт модуля календаря
func (l *LocalWorkspace) Calendar() ModuleEndpoint {
	return EndpointFunc(func(ctx context.Context, op string, params map[string]interface{}, userID string) (map[string]interface{}, error) {
		switch op {
		case "create_event":
			return map[string]interface{}{"event_id": uuid.New().String(), "title": params["title"], "organizer": userID}, nil
		case "cancel_event":
			return map[string]interface{}{"event_id": params["event_id"], "cancelled": true}, nil
		case "reschedule_event":
			return map[string]interface{}{
				"event_id":       params["event_id"],
				"start":          params["start"],
				"previous_start": params["current_start"],
			}, nil
		default:
			return nil, fmt.Errorf("calendar: operation %s not supported", op)
		}
	})
}

// HR возвращает эндпоинт кадрового модуля
func (l *LocalWorkspace) HR() ModuleEndpoint {
	return EndpointFunc(func(ctx context.Context, op string, params map[string]interface{}, userID string) (map[string]interface{}, error) {
		switch op {
		case "clock_in":
			return map[string]interface{}{"entry_id": uuid.New().String(), "employee_id": params["employee_id"], "status": "clocked_in"}, nil
		case "clock_out":
			return map[string]interface{}{"employee_id": params["employee_id"], "status": "clocked_out"}, nil
		case "request_leave":
			return map[string]interface{}{"leave_id": uuid.New().String(), "employee_id": params["employee_id"]}, nil
		case "cancel_leave":
			return map[string]interface{}{"leave_id": params["leave_id"], "cancelled": true}, nil
		default:
			return nil, fmt.Errorf("hr: operation %s not supported", op)
		}
	})
}

// Scheduling возвращает эндпоинт модуля задач/смен
func (l *LocalWorkspace) Scheduling() ModuleEndpoint {
	return EndpointFunc(func(ctx context.Context, op string, params map[string]interface{}, userID string) (map[string]interface{}, error) {
		switch op {
		case "create_task":
			return map[string]interface{}{"task_id": uuid.New().String(), "title": params["title"]}, nil
		case "delete_task":
			return map[string]interface{}{"task_id": params["task_id"], "deleted": true}, nil
		case "assign_shift":
			return map[string]interface{}{"shift_id": params["shift_id"], "employee_id": params["employee_id"]}, nil
		case "unassign_shift":
			return map[string]interface{}{"shift_id": params["shift_id"], "unassigned": true}, nil
		default:
			return nil, fmt.Errorf("scheduling: operation %s not supported", op)
		}
	})
}

// strParam достает первый непустой строковый параметр из перечисленных ключей
func strParam(params map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
