package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"github.com/xela07ax/teamspace-action-engine/internal/infra/auth"
)

// ApprovalService Описываем, что нам нужно от сервиса
type ApprovalService interface {
	GetApproval(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	GetApprovals(ctx context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalRequest, error)
	Respond(ctx context.Context, id string, resp domain.ApprovalResponse) (*domain.ApprovalRequest, error)
}

type ApprovalHandler struct {
	service ApprovalService
}

func NewApprovalHandler(s ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: s}
}

func (h *ApprovalHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	approval, err := h.service.GetApproval(r.Context(), id)
	if err != nil || approval == nil {
		http.Error(w, "approval request not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(approval)
}

func (h *ApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status") // Достаем из ?status=...
	if status == "" {
		status = string(domain.ApprovalPending) // Дефолт для очереди решений
	}

	list, err := h.service.GetApprovals(r.Context(), domain.ApprovalStatus(status))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

type RespondRequest struct {
	Response      domain.ResponseKind    `json:"response"` // approve | reject | modify
	Reasoning     string                 `json:"reasoning,omitempty"`
	Modifications map[string]interface{} `json:"modifications,omitempty"`
}

// Respond принимает вердикт одного ревьюера.
// POST /v1/approvals/{id}/respond
func (h *ApprovalHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Response {
	case domain.ResponseApprove, domain.ResponseReject, domain.ResponseModify:
	default:
		http.Error(w, "response must be one of: approve, reject, modify", http.StatusBadRequest)
		return
	}

	// Ревьюер — авторизованный пользователь из токена
	reviewerID := auth.UserIDFromContext(r.Context())
	if reviewerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	approval, err := h.service.Respond(r.Context(), id, domain.ApprovalResponse{
		UserID:        reviewerID,
		Response:      req.Response,
		Reasoning:     req.Reasoning,
		Modifications: req.Modifications,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(approval)
}
