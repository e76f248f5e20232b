package domain

import "errors"

// Ошибки ядра (таксономия движка). Executors и Orchestrator оборачивают их
// через fmt.Errorf("%w: ..."), чтобы на границах работал errors.Is.
// Тексты совпадают с тем, что видят клиенты API, поэтому с заглавной.
var (
	ErrNoExecutorFound = errors.New("No executor found")
	ErrMissingParam    = errors.New("missing required parameter")
	ErrNeedsApproval   = errors.New("Action requires approval")
	ErrNoRollbackPlan  = errors.New("No rollback plan found")
)

// ActionType категория действия (пока только мутации, но поле оставляем —
// upstream-слой уже присылает его)
type ActionType string

const (
	ActionTypeMutation ActionType = "mutation"
)

// Action — неизменяемое описание предложенной AI-ассистентом операции.
// Создается reasoning-слоем, в движок попадает уже готовым.
// Сам Action никогда не персистится — только результат его исполнения.
type Action struct {
	ID               string                 `json:"id"`
	Type             ActionType             `json:"type"`
	Module           string                 `json:"module"`    // "drive", "chat", "calendar", "hr", "scheduling"
	Operation        string                 `json:"operation"` // например "create_folder"
	Parameters       map[string]interface{} `json:"parameters"`
	RequiresApproval bool                   `json:"requires_approval"`
	AffectedUsers    []string               `json:"affected_users"`
	Reasoning        string                 `json:"reasoning"` // Объяснение для ревьюера (HITL)
}

// WithParameters возвращает копию Action с подменой параметров.
// Нужен для merge модификаций из ApprovalResponse: исходный Action не трогаем.
func (a Action) WithParameters(overrides map[string]interface{}) Action {
	merged := make(map[string]interface{}, len(a.Parameters)+len(overrides))
	for k, v := range a.Parameters {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	a.Parameters = merged
	return a
}

// UserContext — действующая идентичность. Модули сами решают, что этому
// пользователю можно: движок только прокидывает ID дальше.
type UserContext struct {
	UserID  string `json:"user_id"`
	TraceID string `json:"trace_id,omitempty"`
}

// ResultMetadata — обязательная часть любого ExecutionResult
type ResultMetadata struct {
	ExecutionTimeMs   int64    `json:"execution_time_ms"`
	Module            string   `json:"module"`
	Operation         string   `json:"operation"`
	AffectedUsers     []string `json:"affected_users"`
	RollbackAvailable bool     `json:"rollback_available"`
}

// ExecutionResult — единая форма ответа движка, независимо от модуля.
// Инвариант: ровно один результат на одну попытку исполнения Action.
type ExecutionResult struct {
	ActionID string                 `json:"action_id"`
	Success  bool                   `json:"success"`
	Result   map[string]interface{} `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata ResultMetadata         `json:"metadata"`
}

// FailedResult — хелпер для единообразных отказов (ошибки модулей, panic
// в executor'е, нерезолвящийся модуль). Batch из-за них не прерывается.
func FailedResult(action Action, err error) *ExecutionResult {
	return &ExecutionResult{
		ActionID: action.ID,
		Success:  false,
		Error:    err.Error(),
		Metadata: ResultMetadata{
			Module:        action.Module,
			Operation:     action.Operation,
			AffectedUsers: action.AffectedUsers,
		},
	}
}
