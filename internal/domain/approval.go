package domain

import (
	"errors"
	"time"
)

// Статусы State Machine. Переходы строго односторонние:
// pending -> approved | rejected | expired. Из терминального состояния выхода нет.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

var (
	ErrInvalidTransition = errors.New("invalid approval status transition")
	ErrAlreadyProcessed  = errors.New("approval request already processed")
)

// DefaultApprovalTTL — окно, в течение которого ждем решения людей.
const DefaultApprovalTTL = 24 * time.Hour

// ResponseKind — вердикт одного ревьюера
type ResponseKind string

const (
	ResponseApprove ResponseKind = "approve"
	ResponseReject  ResponseKind = "reject"
	// ResponseModify — неявный approve с поправками к параметрам.
	// Overrides применяются только при финальном переходе в approved.
	ResponseModify ResponseKind = "modify"
)

// ApprovalResponse — ответ одного пользователя. Append-only.
type ApprovalResponse struct {
	UserID        string                 `json:"user_id"`
	Response      ResponseKind           `json:"response"`
	Reasoning     string                 `json:"reasoning,omitempty"`
	Modifications map[string]interface{} `json:"modifications,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// ApprovalRequest — заявка HITL («человек в контуре»).
// Никогда не удаляется, только помечается терминальным статусом (audit retention).
type ApprovalRequest struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"` // Кто инициировал (requester)
	Action        Action             `json:"action"`  // Замороженное действие
	Reasoning     string             `json:"reasoning"`
	AffectedUsers []string           `json:"affected_users"`
	ExpiresAt     time.Time          `json:"expires_at"`
	Status        ApprovalStatus     `json:"status"`
	Responses     []ApprovalResponse `json:"responses"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// CanTransitionTo проверяет правила конечного автомата
func (a *ApprovalRequest) CanTransitionTo(next ApprovalStatus) error {
	if a.Status != ApprovalPending {
		return ErrAlreadyProcessed
	}
	if next == ApprovalPending {
		return ErrInvalidTransition
	}
	return nil
}

// RequiredApprovers возвращает тех, чей approve обязателен.
// Пустой affectedUsers = «действие касается только меня»: достаточно
// одного осознанного подтверждения от самого инициатора.
func (a *ApprovalRequest) RequiredApprovers() []string {
	if len(a.AffectedUsers) == 0 {
		return []string{a.UserID}
	}
	return a.AffectedUsers
}

// Decide вычисляет статус заявки на момент now. Ленивая модель: никакого
// фонового sweeper'а — истечение срока проверяется в точке чтения/решения,
// чтобы не гонять его с конкурентными ответами ревьюеров.
func (a *ApprovalRequest) Decide(now time.Time) ApprovalStatus {
	if a.Status != ApprovalPending {
		return a.Status // Терминальные состояния не пересматриваем
	}
	if now.After(a.ExpiresAt) {
		return ApprovalExpired
	}

	// Достаточно одного reject — заявка отклонена
	votes := make(map[string]ResponseKind, len(a.Responses))
	for _, r := range a.Responses {
		if r.Response == ResponseReject {
			return ApprovalRejected
		}
		votes[r.UserID] = r.Response // modify считается как approve
	}

	// Approved только когда ответили ВСЕ обязательные ревьюеры
	for _, u := range a.RequiredApprovers() {
		if _, ok := votes[u]; !ok {
			return ApprovalPending
		}
	}
	return ApprovalApproved
}

// Overrides собирает поправки из modify-ответов в порядке их поступления.
// Вызывается один раз — при переходе в approved.
func (a *ApprovalRequest) Overrides() map[string]interface{} {
	merged := make(map[string]interface{})
	for _, r := range a.Responses {
		if r.Response != ResponseModify {
			continue
		}
		for k, v := range r.Modifications {
			merged[k] = v
		}
	}
	return merged
}
