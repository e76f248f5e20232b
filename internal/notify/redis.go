package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"github.com/xela07ax/teamspace-action-engine/internal/infra"
	"go.uber.org/zap"
)

// RedisNotifier рассылает уведомления через Pub/Sub: персональный канал
// каждому затронутому пользователю плюс широковещательный канал решений.
// Весь пакет best-effort: ошибки доставки глотаются и логируются,
// создание заявки из-за них не срывается.
type RedisNotifier struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisNotifier(rdb *redis.Client, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{rdb: rdb, logger: logger.Named("notify")}
}

type approvalNotice struct {
	ApprovalID string `json:"approval_id"`
	ActionID   string `json:"action_id"`
	Module     string `json:"module"`
	Operation  string `json:"operation"`
	Requester  string `json:"requester"`
	Reasoning  string `json:"reasoning"`
	ExpiresAt  int64  `json:"expires_at"`
}

// NotifyApprovalRequested доставляет заявку каждому обязательному ревьюеру
func (n *RedisNotifier) NotifyApprovalRequested(ctx context.Context, req *domain.ApprovalRequest) {
	payload, err := json.Marshal(approvalNotice{
		ApprovalID: req.ID,
		ActionID:   req.Action.ID,
		Module:     req.Action.Module,
		Operation:  req.Action.Operation,
		Requester:  req.UserID,
		Reasoning:  req.Reasoning,
		ExpiresAt:  req.ExpiresAt.Unix(),
	})
	if err != nil {
		n.logger.Error("failed to marshal approval notice", zap.Error(err))
		return
	}

	for _, userID := range req.RequiredApprovers() {
		if err := n.rdb.Publish(ctx, infra.UserNotifyChannel(userID), payload).Err(); err != nil {
			// Недоставленное уведомление — не повод отменять заявку
			n.logger.Warn("approval notification delivery failed",
				zap.String("user_id", userID),
				zap.String("approval_id", req.ID),
				zap.Error(err),
			)
		}
	}
}

// NotifyDecision транслирует решение ревьюера всем подписчикам
// (инстансы движка, фронты, ждущие "awaiting approval")
func (n *RedisNotifier) NotifyDecision(ctx context.Context, approvalID string, status domain.ApprovalStatus) {
	payload := approvalID + ":" + string(status)
	if err := n.rdb.Publish(ctx, infra.RedisChanApprovalDecisions, payload).Err(); err != nil {
		n.logger.Warn("decision broadcast failed",
			zap.String("approval_id", approvalID),
			zap.Error(err),
		)
	}
}
