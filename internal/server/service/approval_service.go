package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// ApprovalRepository описывает требования сервиса к хранилищу заявок
type ApprovalRepository interface {
	GetApprovalByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	FindApprovals(ctx context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalRequest, error)
	AppendResponse(ctx context.Context, id string, resp domain.ApprovalResponse) error
	UpdateApprovalStatus(ctx context.Context, id string, status domain.ApprovalStatus) error
}

// DecisionNotifier транслирует финал заявки (best-effort)
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, approvalID string, status domain.ApprovalStatus)
}

// PendingCounter — метрика очереди заявок (опционально, та же что у гейта)
type PendingCounter interface {
	Dec()
}

type ApprovalService struct {
	repo     ApprovalRepository
	notifier DecisionNotifier
	pending  PendingCounter
	logger   *zap.Logger
}

func NewApprovalService(repo ApprovalRepository, notifier DecisionNotifier, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{repo: repo, notifier: notifier, logger: logger.Named("approval-service")}
}

// SetPendingGauge подключает метрику очереди заявок
func (s *ApprovalService) SetPendingGauge(c PendingCounter) {
	s.pending = c
}

// GetApproval возвращает заявку с лениво пересчитанным статусом:
// чтение спустя срок годности видит expired, а не зависший pending
func (s *ApprovalService) GetApproval(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	req, err := s.repo.GetApprovalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.settle(ctx, req)
	return req, nil
}

// GetApprovals — очередь решений с фильтром по статусу
func (s *ApprovalService) GetApprovals(ctx context.Context, status domain.ApprovalStatus) ([]*domain.ApprovalRequest, error) {
	list, err := s.repo.FindApprovals(ctx, status)
	if err != nil {
		return nil, err
	}
	for _, req := range list {
		s.settle(ctx, req)
	}
	return list, nil
}

// Respond фиксирует ответ одного ревьюера (append-only) и, если заявка
// после него стала терминальной, закрепляет переход и транслирует решение.
func (s *ApprovalService) Respond(ctx context.Context, id string, resp domain.ApprovalResponse) (*domain.ApprovalRequest, error) {
	if resp.Timestamp.IsZero() {
		resp.Timestamp = time.Now()
	}

	// Предварительная проверка срока: отвечать в истекшую заявку нельзя
	req, err := s.repo.GetApprovalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st := req.Decide(time.Now()); st == domain.ApprovalExpired {
		s.settle(ctx, req)
		return nil, fmt.Errorf("approval request expired: %w", domain.ErrAlreadyProcessed)
	}

	if err := s.repo.AppendResponse(ctx, id, resp); err != nil {
		return nil, err
	}

	// Перечитываем с учетом нового ответа и решаем
	req, err = s.repo.GetApprovalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.settle(ctx, req)
	return req, nil
}

// settle закрепляет ленивый переход статуса, если Decide ушел из pending.
// Ошибка записи не фатальна — статус пересчитается при следующем чтении.
func (s *ApprovalService) settle(ctx context.Context, req *domain.ApprovalRequest) {
	if req == nil {
		return
	}
	status := req.Decide(time.Now())
	if status == req.Status {
		return
	}

	if err := req.CanTransitionTo(status); err != nil {
		return
	}
	if err := s.repo.UpdateApprovalStatus(ctx, req.ID, status); err != nil {
		s.logger.Warn("failed to persist approval transition",
			zap.String("approval_id", req.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	req.Status = status
	req.UpdatedAt = time.Now()

	if s.pending != nil {
		s.pending.Dec()
	}
	if s.notifier != nil {
		s.notifier.NotifyDecision(ctx, req.ID, status)
	}
	s.logger.Info("approval settled",
		zap.String("approval_id", req.ID),
		zap.String("status", string(status)),
	)
}
