package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

type fakeRepo struct {
	byID map[string]*domain.ApprovalRequest
}

func newFakeRepo(reqs ...*domain.ApprovalRequest) *fakeRepo {
	r := &fakeRepo{byID: make(map[string]*domain.ApprovalRequest)}
	for _, req := range reqs {
		r.byID[req.ID] = req
	}
	return r
}

func (r *fakeRepo) GetApprovalByID(_ context.Context, id string) (*domain.ApprovalRequest, error) {
	return r.byID[id], nil
}

func (r *fakeRepo) FindApprovals(_ context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalRequest, error) {
	var out []*domain.ApprovalRequest
	for _, req := range r.byID {
		if req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeRepo) AppendResponse(_ context.Context, id string, resp domain.ApprovalResponse) error {
	req := r.byID[id]
	if req.Status != domain.ApprovalPending {
		return domain.ErrAlreadyProcessed
	}
	req.Responses = append(req.Responses, resp)
	return nil
}

func (r *fakeRepo) UpdateApprovalStatus(_ context.Context, id string, status domain.ApprovalStatus) error {
	r.byID[id].Status = status
	return nil
}

type fakeDecisions struct {
	decided map[string]domain.ApprovalStatus
}

func (f *fakeDecisions) NotifyDecision(_ context.Context, approvalID string, status domain.ApprovalStatus) {
	if f.decided == nil {
		f.decided = make(map[string]domain.ApprovalStatus)
	}
	f.decided[approvalID] = status
}

func pendingApproval(id string, affected []string) *domain.ApprovalRequest {
	return &domain.ApprovalRequest{
		ID:            id,
		UserID:        "requester",
		Action:        domain.Action{ID: "act-" + id, Module: "drive", Operation: "delete_folder"},
		AffectedUsers: affected,
		ExpiresAt:     time.Now().Add(time.Hour),
		Status:        domain.ApprovalPending,
	}
}

func TestRespond_FinalVoteSettlesAndNotifies(t *testing.T) {
	repo := newFakeRepo(pendingApproval("apr-1", nil))
	decisions := &fakeDecisions{}
	svc := NewApprovalService(repo, decisions, zap.NewNop())

	got, err := svc.Respond(context.Background(), "apr-1", domain.ApprovalResponse{
		UserID: "requester", Response: domain.ResponseApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalApproved, got.Status)
	assert.Equal(t, domain.ApprovalApproved, decisions.decided["apr-1"])
}

func TestRespond_PartialVoteStaysPending(t *testing.T) {
	repo := newFakeRepo(pendingApproval("apr-1", []string{"alice", "bob"}))
	decisions := &fakeDecisions{}
	svc := NewApprovalService(repo, decisions, zap.NewNop())

	got, err := svc.Respond(context.Background(), "apr-1", domain.ApprovalResponse{
		UserID: "alice", Response: domain.ResponseApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalPending, got.Status)
	assert.Empty(t, decisions.decided, "no decision broadcast until terminal")
}

func TestRespond_ExpiredRequestRefusesVote(t *testing.T) {
	req := pendingApproval("apr-1", nil)
	req.ExpiresAt = time.Now().Add(-time.Minute)
	repo := newFakeRepo(req)
	svc := NewApprovalService(repo, &fakeDecisions{}, zap.NewNop())

	_, err := svc.Respond(context.Background(), "apr-1", domain.ApprovalResponse{
		UserID: "requester", Response: domain.ResponseApprove,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
	assert.Equal(t, domain.ApprovalExpired, repo.byID["apr-1"].Status, "expiry persisted on touch")
	assert.Empty(t, repo.byID["apr-1"].Responses)
}

func TestGetApproval_LazyExpiry(t *testing.T) {
	req := pendingApproval("apr-1", []string{"alice"})
	req.ExpiresAt = time.Now().Add(-time.Minute)
	repo := newFakeRepo(req)
	svc := NewApprovalService(repo, &fakeDecisions{}, zap.NewNop())

	got, err := svc.GetApproval(context.Background(), "apr-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalExpired, got.Status)
}

func TestRespond_RejectIsTerminal(t *testing.T) {
	repo := newFakeRepo(pendingApproval("apr-1", []string{"alice", "bob"}))
	decisions := &fakeDecisions{}
	svc := NewApprovalService(repo, decisions, zap.NewNop())

	got, err := svc.Respond(context.Background(), "apr-1", domain.ApprovalResponse{
		UserID: "bob", Response: domain.ResponseReject, Reasoning: "not safe",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, got.Status)

	// Опоздавший голос в обработанную заявку отклоняется хранилищем
	_, err = svc.Respond(context.Background(), "apr-1", domain.ApprovalResponse{
		UserID: "alice", Response: domain.ResponseApprove,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}
