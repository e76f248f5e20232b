package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько заняло исполнение действия (включая модуль)
	ActionDuration *prometheus.HistogramVec

	// Traffic: общее кол-во действий
	TotalActions *prometheus.CounterVec

	// Errors: классификация отказов по таксономии движка
	ErrorTotal *prometheus.CounterVec

	// Saturation: сколько заявок ждут решения людей
	PendingApprovals prometheus.Gauge

	// Сколько rollback-планов сейчас удерживается
	RetainedPlans prometheus.Gauge

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — если рег не передан, используем локальный
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		ActionDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_action_duration_seconds",
			Help:    "Histogram of action execution latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"module", "operation", "status"}),

		TotalActions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "engine_actions_total",
			Help: "Total number of processed actions.",
		}, []string{"module", "operation"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "engine_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: no_executor, missing_param, needs_approval, execution_failed, no_rollback_plan

		PendingApprovals: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "engine_pending_approvals",
			Help: "Number of approval requests awaiting a human decision.",
		}),

		RetainedPlans: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "engine_retained_rollback_plans",
			Help: "Number of rollback plans currently retained.",
		}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "engine_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),
	}
}
