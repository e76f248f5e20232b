package engine

import (
	"time"

	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// Planner синтезирует компенсирующий план ДО исполнения действия.
// Для операций без известной инверсии (send_message) план пустой:
// откат тогда — честный no-op с записью «откатывать нечего» в аудит.
type Planner struct {
	retention time.Duration
	logger    *zap.Logger
}

func NewPlanner(retention time.Duration, logger *zap.Logger) *Planner {
	if retention <= 0 {
		retention = domain.DefaultRollbackRetention
	}
	return &Planner{retention: retention, logger: logger.Named("planner")}
}

// Plan строит план компенсаций для действия. Часть параметров инверсии
// известна только модулю после исполнения (прежний parent_id при move_file) —
// такие шаги декларируют FromResult, а значения дотянет Enrich после успеха.
func (p *Planner) Plan(action domain.Action, user domain.UserContext) *domain.RollbackPlan {
	plan := &domain.RollbackPlan{
		ActionID:  action.ID,
		Timeout:   p.retention,
		CreatedAt: time.Now(),
	}

	key := action.Module + "." + action.Operation
	switch key {
	case "drive.create_folder":
		// Удаление папки компенсирует создание, только пока под ней пусто
		plan.Conditions = []string{"drive: folder must still be empty"}
		plan.Steps = []domain.RollbackStep{{
			Module:     "drive",
			Operation:  "delete_folder",
			FromResult: map[string]string{"folder_id": "folder_id"},
			Order:      1,
		}}

	case "drive.move_file":
		plan.Steps = []domain.RollbackStep{{
			Module:     "drive",
			Operation:  "move_file",
			Parameters: map[string]interface{}{"file_id": action.Parameters["file_id"]},
			FromResult: map[string]string{"parent_id": "previous_parent_id"},
			Order:      1,
		}}

	case "drive.rename_file":
		plan.Steps = []domain.RollbackStep{{
			Module:     "drive",
			Operation:  "rename_file",
			Parameters: map[string]interface{}{"file_id": action.Parameters["file_id"]},
			FromResult: map[string]string{"name": "previous_name"},
			Order:      1,
		}}

	case "chat.create_channel":
		plan.Steps = []domain.RollbackStep{{
			Module:     "chat",
			Operation:  "archive_channel",
			FromResult: map[string]string{"channel_id": "channel_id"},
			Order:      1,
		}}

	case "calendar.create_event":
		plan.Steps = []domain.RollbackStep{{
			Module:     "calendar",
			Operation:  "cancel_event",
			FromResult: map[string]string{"event_id": "event_id"},
			Order:      1,
		}}

	case "calendar.reschedule_event":
		plan.Steps = []domain.RollbackStep{{
			Module:     "calendar",
			Operation:  "reschedule_event",
			Parameters: map[string]interface{}{"event_id": action.Parameters["event_id"]},
			FromResult: map[string]string{"start": "previous_start", "current_start": "start"},
			Order:      1,
		}}

	case "hr.clock_in":
		plan.Steps = []domain.RollbackStep{{
			Module:     "hr",
			Operation:  "clock_out",
			Parameters: map[string]interface{}{"employee_id": action.Parameters["employee_id"]},
			Order:      1,
		}}

	case "hr.request_leave":
		plan.Steps = []domain.RollbackStep{{
			Module:     "hr",
			Operation:  "cancel_leave",
			FromResult: map[string]string{"leave_id": "leave_id"},
			Order:      1,
		}}

	case "scheduling.create_task":
		plan.Steps = []domain.RollbackStep{{
			Module:     "scheduling",
			Operation:  "delete_task",
			FromResult: map[string]string{"task_id": "task_id"},
			Order:      1,
		}}

	case "scheduling.assign_shift":
		plan.Steps = []domain.RollbackStep{{
			Module:    "scheduling",
			Operation: "unassign_shift",
			Parameters: map[string]interface{}{
				"shift_id":    action.Parameters["shift_id"],
				"employee_id": action.Parameters["employee_id"],
			},
			Order: 1,
		}}

	default:
		// Известной инверсии нет — валидный план с нулем шагов
		p.logger.Debug("no known inverse, empty rollback plan",
			zap.String("module", action.Module),
			zap.String("operation", action.Operation),
		)
	}

	return plan
}
