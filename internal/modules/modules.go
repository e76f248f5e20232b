// Package modules содержит встроенные исполнители бизнес-модулей.
// Каждый исполнитель — тонкая стратегия над write-путем своего модуля:
// диспетчеризует операцию, проверяет обязательные параметры и передает
// вызов в ModuleEndpoint. Бизнес-правила модуля движок не дублирует.
package modules

import (
	"fmt"

	"github.com/xela07ax/teamspace-action-engine/internal/domain"
)

// requireParams возвращает структурный отказ MissingParameter вместо паники,
// если во входных данных нет обязательного ключа. Ошибка reasoning-слоя,
// ретраями не лечится.
func requireParams(params map[string]interface{}, keys ...string) error {
	for _, k := range keys {
		v, ok := params[k]
		if !ok || v == nil {
			return fmt.Errorf("%w: %s", domain.ErrMissingParam, k)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return fmt.Errorf("%w: %s", domain.ErrMissingParam, k)
		}
	}
	return nil
}

// unknownOperation — единый отказ для нераспознанной операции внутри модуля
func unknownOperation(module, op string) error {
	return fmt.Errorf("module %s: unknown operation %q", module, op)
}
