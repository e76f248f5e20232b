package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// ApprovalStore — требования гейта к хранилищу заявок HITL
type ApprovalStore interface {
	CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error
	// GetApprovalByActionID возвращает (nil, nil), если заявки по действию нет
	GetApprovalByActionID(ctx context.Context, actionID string) (*domain.ApprovalRequest, error)
	UpdateApprovalStatus(ctx context.Context, id string, status domain.ApprovalStatus) error
}

// Notifier — сторона доставки уведомлений. Best-effort: сбой доставки
// не должен сорвать создание заявки.
type Notifier interface {
	NotifyApprovalRequested(ctx context.Context, req *domain.ApprovalRequest)
}

// PendingCounter — метрика заявок, ожидающих решения (опционально)
type PendingCounter interface {
	Inc()
	Dec()
}

// Gate решает, может ли действие исполняться сразу или должно ждать людей.
// Истечение срока считается лениво — в момент Evaluate, фонового sweeper'а нет.
type Gate struct {
	store    ApprovalStore
	notifier Notifier
	ttl      time.Duration
	pending  PendingCounter
	logger   *zap.Logger
}

func NewGate(store ApprovalStore, notifier Notifier, ttl time.Duration, logger *zap.Logger) *Gate {
	if ttl <= 0 {
		ttl = domain.DefaultApprovalTTL
	}
	return &Gate{store: store, notifier: notifier, ttl: ttl, logger: logger.Named("gate")}
}

// SetPendingGauge подключает метрику очереди заявок (опционально)
func (g *Gate) SetPendingGauge(c PendingCounter) {
	g.pending = c
}

// GateDecision — исход проверки одного действия
type GateDecision struct {
	Proceed bool
	// Action к исполнению: при резюме одобренной заявки сюда уже
	// вмержены modify-поправки ревьюеров
	Action  domain.Action
	Request *domain.ApprovalRequest // Заявка, если действие заблокировано или резюмировано
	Created bool                    // Заявка создана этим вызовом (первая подача)
	Reason  string                  // Человекочитаемая причина блокировки
}

// Evaluate реализует контракт гейта. Повторная подача действия с тем же id —
// это запрос на резюме: одобренная заявка пропускает действие на dispatch,
// отклоненная или истекшая блокирует его терминально.
func (g *Gate) Evaluate(ctx context.Context, action domain.Action, user domain.UserContext) (*GateDecision, error) {
	if !action.RequiresApproval {
		return &GateDecision{Proceed: true, Action: action}, nil
	}

	existing, err := g.store.GetApprovalByActionID(ctx, action.ID)
	if err != nil {
		return nil, fmt.Errorf("gate: approval lookup failed: %w", err)
	}

	if existing == nil {
		return g.createRequest(ctx, action, user)
	}

	// Ленивое вычисление статуса на момент «сейчас»
	status := existing.Decide(time.Now())
	if status != existing.Status {
		// Фиксируем ленивый переход (например, pending -> expired).
		// Ошибка записи не критична: статус пересчитается при следующем чтении.
		if err := g.store.UpdateApprovalStatus(ctx, existing.ID, status); err != nil {
			// Не записали — gauge не трогаем: на следующем проходе переход повторится
			g.logger.Warn("lazy status transition not persisted",
				zap.String("approval_id", existing.ID), zap.Error(err))
		} else if g.pending != nil {
			g.pending.Dec() // Заявка покинула очередь ожидания
		}
		existing.Status = status
	}

	switch status {
	case domain.ApprovalApproved:
		// Поправки modify-ответов вмерживаются ровно на переходе в approved
		resumed := action.WithParameters(existing.Overrides())
		g.logger.Info("approved action resumed",
			zap.String("action_id", action.ID), zap.String("approval_id", existing.ID))
		return &GateDecision{Proceed: true, Action: resumed, Request: existing}, nil

	case domain.ApprovalRejected:
		return &GateDecision{Action: action, Request: existing, Reason: "Action approval was rejected"}, nil

	case domain.ApprovalExpired:
		return &GateDecision{Action: action, Request: existing, Reason: "Action approval has expired"}, nil

	default:
		return &GateDecision{Action: action, Request: existing, Reason: domain.ErrNeedsApproval.Error()}, nil
	}
}

func (g *Gate) createRequest(ctx context.Context, action domain.Action, user domain.UserContext) (*GateDecision, error) {
	now := time.Now()
	req := &domain.ApprovalRequest{
		ID:            uuid.New().String(),
		UserID:        user.UserID,
		Action:        action,
		Reasoning:     action.Reasoning,
		AffectedUsers: action.AffectedUsers,
		ExpiresAt:     now.Add(g.ttl),
		Status:        domain.ApprovalPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := g.store.CreateApproval(ctx, req); err != nil {
		return nil, fmt.Errorf("gate: failed to create approval request: %w", err)
	}

	if g.pending != nil {
		g.pending.Inc()
	}

	// Уведомляем каждого из affectedUsers. Fire-and-forget: сбой доставки
	// логируется внутри Notifier и не отменяет заявку.
	if g.notifier != nil {
		g.notifier.NotifyApprovalRequested(ctx, req)
	}

	g.logger.Info("approval request created",
		zap.String("action_id", action.ID),
		zap.String("approval_id", req.ID),
		zap.Int("approvers", len(req.RequiredApprovers())),
	)
	return &GateDecision{Action: action, Request: req, Created: true, Reason: domain.ErrNeedsApproval.Error()}, nil
}
