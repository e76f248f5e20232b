package connectors

import "context"

// ModuleEndpoint — узкий контракт write-пути бизнес-модуля.
// Каждый модуль сам отвечает за свою валидацию, права и персистентность;
// движок передает только действующего пользователя и сырые параметры.
type ModuleEndpoint interface {
	Invoke(ctx context.Context, operation string, params map[string]interface{}, actingUserID string) (map[string]interface{}, error)
}

// EndpointFunc — адаптер, чтобы использовать функции как ModuleEndpoint
type EndpointFunc func(ctx context.Context, operation string, params map[string]interface{}, actingUserID string) (map[string]interface{}, error)

func (f EndpointFunc) Invoke(ctx context.Context, operation string, params map[string]interface{}, actingUserID string) (map[string]interface{}, error) {
	return f(ctx, operation, params, actingUserID)
}
