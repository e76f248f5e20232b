package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xela07ax/teamspace-action-engine/internal/audit"
)

// AuditReader — доступ к журналу действий (только чтение)
type AuditReader interface {
	FetchLogs(ctx context.Context, userID, module string) ([]audit.Event, error)
}

type AuditHandler struct {
	reader AuditReader
}

func NewAuditHandler(r AuditReader) *AuditHandler {
	return &AuditHandler{reader: r}
}

// GetLogs возвращает список событий аудита с поддержкой фильтрации
// GET /v1/audit?user_id=...&module=...
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	// Извлекаем фильтры из Query-параметров
	userID := r.URL.Query().Get("user_id")
	module := r.URL.Query().Get("module")

	logs, err := h.reader.FetchLogs(r.Context(), userID, module)
	if err != nil {
		http.Error(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
