package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"github.com/xela07ax/teamspace-action-engine/internal/infra/auth"
)

// ActionOrchestrator Описываем, что нам нужно от движка
type ActionOrchestrator interface {
	ExecuteActions(ctx context.Context, actions []domain.Action, user domain.UserContext) ([]*domain.ExecutionResult, error)
	Rollback(ctx context.Context, actionID string, user domain.UserContext) *domain.ExecutionResult
}

type ActionsHandler struct {
	orchestrator ActionOrchestrator
}

func NewActionsHandler(o ActionOrchestrator) *ActionsHandler {
	return &ActionsHandler{orchestrator: o}
}

type ExecuteRequest struct {
	Actions []domain.Action `json:"actions"`
}

type ExecuteResponse struct {
	Results []*domain.ExecutionResult `json:"results"`
}

// Execute — точка входа для пакета предложенных действий.
// POST /v1/actions/execute
func (h *ActionsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Actions) == 0 {
		http.Error(w, "actions list is empty", http.StatusBadRequest)
		return
	}

	user := userFromRequest(r)
	results, err := h.orchestrator.ExecuteActions(r.Context(), req.Actions, user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExecuteResponse{Results: results})
}

// Rollback откатывает ранее выполненное действие по его ID.
// POST /v1/actions/{id}/rollback
func (h *ActionsHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "id")

	user := userFromRequest(r)
	result := h.orchestrator.Rollback(r.Context(), actionID, user)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case result.Success:
		// 200
	case strings.Contains(result.Error, domain.ErrNoRollbackPlan.Error()):
		// План не найден / истек / уже использован — для клиента это 404
		w.WriteHeader(http.StatusNotFound)
	default:
		// План был, но шаг отката упал — это не "не найдено"
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(result)
}

// userFromRequest собирает контекст исполнителя из авторизации и трассировки
func userFromRequest(r *http.Request) domain.UserContext {
	return domain.UserContext{
		UserID:  auth.UserIDFromContext(r.Context()),
		TraceID: TraceIDFromContext(r.Context()),
	}
}
