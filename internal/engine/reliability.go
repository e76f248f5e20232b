package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"golang.org/x/time/rate"
)

// ReliabilityWrapper оборачивает write-путь модуля в защитные слои:
// Rate Limiter -> Circuit Breaker -> Retry. Движок не навязывает свой
// общий таймаут на действие (это дело вызывающего), но отдельный
// сетевой вызов в модуль ограничиваем.
type ReliabilityWrapper struct {
	next    connectors.ModuleEndpoint
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// ReliabilitySettings — настройки из EngineConfig
type ReliabilitySettings struct {
	Name          string
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
	RateLimit     float64
}

func NewReliabilityWrapper(next connectors.ModuleEndpoint, set ReliabilitySettings) *ReliabilityWrapper {
	if set.RateLimit <= 0 {
		set.RateLimit = 100
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        set.Name,
		MaxRequests: set.CBMaxRequests,
		Interval:    set.CBInterval,
		Timeout:     set.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
	})

	return &ReliabilityWrapper{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(set.RateLimit), 20),
	}
}

func (w *ReliabilityWrapper) Invoke(ctx context.Context, operation string, params map[string]interface{}, actingUserID string) (map[string]interface{}, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var finalData map[string]interface{}

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Модуль вернул ThrottleError (считал Retry-After) — уважаем его
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// Иначе стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			var callErr error
			finalData, callErr = w.next.Invoke(tCtx, operation, params, actingUserID)
			return callErr
		})

		return finalData, retryErr
	})

	if err != nil {
		return nil, err
	}

	return cbResult.(map[string]interface{}), nil
}
