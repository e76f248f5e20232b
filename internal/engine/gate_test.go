package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// fakeApprovalStore — in-memory замена Postgres для тестов гейта
type fakeApprovalStore struct {
	byActionID map[string]*domain.ApprovalRequest
	created    []*domain.ApprovalRequest
}

func newFakeApprovalStore() *fakeApprovalStore {
	return &fakeApprovalStore{byActionID: make(map[string]*domain.ApprovalRequest)}
}

func (s *fakeApprovalStore) CreateApproval(_ context.Context, req *domain.ApprovalRequest) error {
	s.byActionID[req.Action.ID] = req
	s.created = append(s.created, req)
	return nil
}

func (s *fakeApprovalStore) GetApprovalByActionID(_ context.Context, actionID string) (*domain.ApprovalRequest, error) {
	return s.byActionID[actionID], nil
}

func (s *fakeApprovalStore) UpdateApprovalStatus(_ context.Context, id string, status domain.ApprovalStatus) error {
	for _, req := range s.byActionID {
		if req.ID == id {
			req.Status = status
		}
	}
	return nil
}

type fakeNotifier struct {
	requested []*domain.ApprovalRequest
}

func (n *fakeNotifier) NotifyApprovalRequested(_ context.Context, req *domain.ApprovalRequest) {
	n.requested = append(n.requested, req)
}

func TestGate_NoApprovalRequired(t *testing.T) {
	store := newFakeApprovalStore()
	gate := NewGate(store, nil, time.Hour, zap.NewNop())

	dec, err := gate.Evaluate(context.Background(), domain.Action{ID: "a1", Module: "chat", Operation: "send_message"}, domain.UserContext{UserID: "u1"})
	require.NoError(t, err)
	assert.True(t, dec.Proceed)
	assert.Empty(t, store.created, "no approval request for unguarded actions")
}

func TestGate_CreatesRequestOnFirstSight(t *testing.T) {
	store := newFakeApprovalStore()
	notifier := &fakeNotifier{}
	gate := NewGate(store, notifier, time.Hour, zap.NewNop())

	action := domain.Action{
		ID: "a1", Module: "drive", Operation: "delete_folder",
		RequiresApproval: true,
		AffectedUsers:    []string{"alice", "bob"},
		Reasoning:        "cleanup of shared folder",
	}
	dec, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)

	assert.False(t, dec.Proceed)
	assert.Equal(t, "Action requires approval", dec.Reason)
	require.NotNil(t, dec.Request)
	assert.Equal(t, domain.ApprovalPending, dec.Request.Status)
	assert.Equal(t, "cleanup of shared folder", dec.Request.Reasoning)
	assert.Len(t, notifier.requested, 1)
}

func TestGate_ResumeApprovedMergesOverrides(t *testing.T) {
	store := newFakeApprovalStore()
	gate := NewGate(store, nil, time.Hour, zap.NewNop())

	action := domain.Action{
		ID: "a1", Module: "scheduling", Operation: "create_task",
		Parameters:       map[string]interface{}{"title": "draft"},
		RequiresApproval: true,
	}
	// Первая подача создает заявку
	_, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)

	// Ревьюер одобрил с поправкой
	req := store.byActionID["a1"]
	req.Responses = append(req.Responses, domain.ApprovalResponse{
		UserID:        "requester",
		Response:      domain.ResponseModify,
		Modifications: map[string]interface{}{"title": "final"},
	})

	// Повторная подача того же действия — резюме
	dec, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.True(t, dec.Proceed)
	assert.Equal(t, "final", dec.Action.Parameters["title"])
	assert.Equal(t, domain.ApprovalApproved, store.byActionID["a1"].Status, "lazy transition persisted")
}

func TestGate_RejectedBlocksResubmission(t *testing.T) {
	store := newFakeApprovalStore()
	gate := NewGate(store, nil, time.Hour, zap.NewNop())

	action := domain.Action{ID: "a1", Module: "hr", Operation: "cancel_leave", RequiresApproval: true, AffectedUsers: []string{"alice"}}
	_, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)

	store.byActionID["a1"].Responses = []domain.ApprovalResponse{{UserID: "alice", Response: domain.ResponseReject}}

	dec, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.False(t, dec.Proceed)
	assert.Equal(t, "Action approval was rejected", dec.Reason)
}

// countingGauge считает баланс Inc/Dec вместо prometheus
type countingGauge struct {
	value int
}

func (g *countingGauge) Inc() { g.value++ }
func (g *countingGauge) Dec() { g.value-- }

// brokenUpdateStore роняет запись нового статуса, остальное делегирует
type brokenUpdateStore struct {
	*fakeApprovalStore
}

func (s *brokenUpdateStore) UpdateApprovalStatus(context.Context, string, domain.ApprovalStatus) error {
	return errors.New("store is unavailable")
}

// Отдаем копию, как Postgres отдает скан строки: правка в памяти не попадает в стор
func (s *brokenUpdateStore) GetApprovalByActionID(_ context.Context, actionID string) (*domain.ApprovalRequest, error) {
	req := s.byActionID[actionID]
	if req == nil {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func TestGate_PendingGaugeHoldsWhenTransitionNotPersisted(t *testing.T) {
	inner := newFakeApprovalStore()
	store := &brokenUpdateStore{inner}
	gate := NewGate(store, nil, time.Hour, zap.NewNop())
	gauge := &countingGauge{}
	gate.SetPendingGauge(gauge)

	action := domain.Action{ID: "a1", Module: "drive", Operation: "delete_file", RequiresApproval: true}
	_, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.Equal(t, 1, gauge.value)

	// Заявка протухла, но переход не записался — заявка все еще в очереди
	inner.byActionID["a1"].ExpiresAt = time.Now().Add(-time.Minute)
	dec, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.False(t, dec.Proceed)
	assert.Equal(t, 1, gauge.value, "gauge decrements only on persisted transition")
	assert.Equal(t, domain.ApprovalPending, inner.byActionID["a1"].Status)
}

func TestGate_PendingGaugeDropsOnPersistedTransition(t *testing.T) {
	store := newFakeApprovalStore()
	gate := NewGate(store, nil, time.Hour, zap.NewNop())
	gauge := &countingGauge{}
	gate.SetPendingGauge(gauge)

	action := domain.Action{ID: "a1", Module: "drive", Operation: "delete_file", RequiresApproval: true}
	_, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.Equal(t, 1, gauge.value)

	store.byActionID["a1"].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.Equal(t, 0, gauge.value)
}

func TestGate_ExpiredBlocksResubmission(t *testing.T) {
	store := newFakeApprovalStore()
	gate := NewGate(store, nil, time.Hour, zap.NewNop())

	action := domain.Action{ID: "a1", Module: "drive", Operation: "delete_file", RequiresApproval: true}
	_, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)

	// Сдвигаем срок в прошлое: заявка протухла без единого ответа
	store.byActionID["a1"].ExpiresAt = time.Now().Add(-time.Minute)

	dec, err := gate.Evaluate(context.Background(), action, domain.UserContext{UserID: "requester"})
	require.NoError(t, err)
	assert.False(t, dec.Proceed)
	assert.Equal(t, "Action approval has expired", dec.Reason)
	assert.Equal(t, domain.ApprovalExpired, store.byActionID["a1"].Status)
}
