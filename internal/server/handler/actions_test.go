package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
)

type stubOrchestrator struct {
	gotActions  []domain.Action
	gotUser     domain.UserContext
	rollbackID  string
	rollbackRes *domain.ExecutionResult
}

func (s *stubOrchestrator) ExecuteActions(_ context.Context, actions []domain.Action, user domain.UserContext) ([]*domain.ExecutionResult, error) {
	s.gotActions = actions
	s.gotUser = user
	results := make([]*domain.ExecutionResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, &domain.ExecutionResult{ActionID: a.ID, Success: true})
	}
	return results, nil
}

func (s *stubOrchestrator) Rollback(_ context.Context, actionID string, user domain.UserContext) *domain.ExecutionResult {
	s.rollbackID = actionID
	s.gotUser = user
	return s.rollbackRes
}

func testRouter(h *ActionsHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TracingMiddleware)
	r.Post("/v1/actions/execute", h.Execute)
	r.Post("/v1/actions/{id}/rollback", h.Rollback)
	return r
}

func TestExecute_BatchPassedThrough(t *testing.T) {
	stub := &stubOrchestrator{}
	router := testRouter(NewActionsHandler(stub))

	body := `{"actions":[
		{"id":"a1","type":"mutation","module":"drive","operation":"create_folder","parameters":{"name":"Q1"}},
		{"id":"a2","type":"mutation","module":"chat","operation":"send_message","parameters":{"channel":"general","text":"hi"}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/actions/execute", strings.NewReader(body))
	req.Header.Set("X-Trace-ID", "trace-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.gotActions, 2)
	assert.Equal(t, "create_folder", stub.gotActions[0].Operation)
	assert.Equal(t, "trace-42", stub.gotUser.TraceID, "trace id from header reaches the engine")
	assert.Contains(t, rec.Body.String(), `"action_id":"a1"`)
}

func TestExecute_EmptyBatchRejected(t *testing.T) {
	router := testRouter(NewActionsHandler(&stubOrchestrator{}))

	req := httptest.NewRequest(http.MethodPost, "/v1/actions/execute", strings.NewReader(`{"actions":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRollback_NotFoundMapsTo404(t *testing.T) {
	stub := &stubOrchestrator{rollbackRes: &domain.ExecutionResult{
		ActionID: "a1", Success: false, Error: "No rollback plan found for action: a1",
	}}
	router := testRouter(NewActionsHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/v1/actions/a1/rollback", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "a1", stub.rollbackID)
	assert.Contains(t, rec.Body.String(), "No rollback plan found")
}

func TestRollback_StepFailureMapsTo500(t *testing.T) {
	// План нашелся, но бэкенд уронил шаг — это не 404
	stub := &stubOrchestrator{rollbackRes: &domain.ExecutionResult{
		ActionID: "a1", Success: false,
		Error: "rollback step drive.delete_folder failed: drive backend is down",
	}}
	router := testRouter(NewActionsHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/v1/actions/a1/rollback", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "drive backend is down")
}

func TestRollback_Success(t *testing.T) {
	stub := &stubOrchestrator{rollbackRes: &domain.ExecutionResult{
		ActionID: "a1", Success: true,
		Result: map[string]interface{}{"rolled_back_steps": 1, "total_steps": 1},
	}}
	router := testRouter(NewActionsHandler(stub))

	req := httptest.NewRequest(http.MethodPost, "/v1/actions/a1/rollback", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rolled_back_steps":1`)
}
