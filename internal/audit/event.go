package audit

import "time"

// Вид записи аудита
const (
	KindExecute         = "execute"
	KindRollback        = "rollback"
	KindApprovalRequest = "approval_request"
)

type Event struct {
	ID       string `json:"id"`       // UUID события
	TraceID  string `json:"trace_id"` // Сквозной ID запроса
	Kind     string `json:"kind"`     // execute / rollback / approval_request
	ActionID string `json:"action_id"`
	UserID   string `json:"user_id"` // От чьего имени исполнялось

	Module     string                 `json:"module"`
	Operation  string                 `json:"operation"`
	Parameters map[string]interface{} `json:"parameters"`

	// Результат
	Status     string                 `json:"status"` // "SUCCESS", "FAILED", "PENDING_APPROVAL"
	Response   map[string]interface{} `json:"response"`
	Error      string                 `json:"error"`
	DurationMs int64                  `json:"duration_ms"`
	Timestamp  time.Time              `json:"timestamp"`
}
