package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных движка в Redis
	RedisNamespace = "teamspace"
)

// Ключи состояния
const (
	// RedisKeyRollbackPlan + actionID -> сериализованный план (TTL = retention)
	RedisKeyRollbackPlan = RedisNamespace + ":rollback:plan:"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanApprovalDecisions — трансляция решений ревьюеров (HITL)
	RedisChanApprovalDecisions = RedisNamespace + ":approvals:decisions"
	// RedisChanUserNotify + userID — персональный канал уведомлений пользователя
	RedisChanUserNotify = RedisNamespace + ":notify:user:"
)

// RollbackPlanKey собирает ключ плана для конкретного действия
func RollbackPlanKey(actionID string) string {
	return RedisKeyRollbackPlan + actionID
}

// UserNotifyChannel собирает имя персонального канала уведомлений
func UserNotifyChannel(userID string) string {
	return fmt.Sprintf("%s%s", RedisChanUserNotify, userID)
}
