package domain

import (
	"sort"
	"time"
)

// DefaultRollbackRetention — сколько держим план после успешного исполнения
const DefaultRollbackRetention = 60 * time.Minute

// RollbackStep — одно компенсирующее действие. Параметры либо известны заранее
// (из исходного Action), либо дотягиваются из результата исполнения через
// FromResult: ключ параметра -> ключ в result-пэйлоаде executor'а.
// Пример: move_file компенсируется обратным move, но прежний parent_id
// знает только модуль — он кладет его в результат, а план забирает оттуда.
type RollbackStep struct {
	Module     string                 `json:"module"`
	Operation  string                 `json:"operation"`
	Parameters map[string]interface{} `json:"parameters"`
	FromResult map[string]string      `json:"from_result,omitempty"`
	Order      int                    `json:"order"`
}

// RollbackPlan — упорядоченный набор компенсаций для одного Action.
// План с нулем шагов валиден и означает «откатывать нечего».
type RollbackPlan struct {
	ActionID   string         `json:"action_id"`
	Steps      []RollbackStep `json:"steps"`
	Conditions []string       `json:"conditions,omitempty"` // Предусловия валидности отката
	Timeout    time.Duration  `json:"timeout"`              // Окно удержания
	CreatedAt  time.Time      `json:"created_at"`
}

// StepsReversed возвращает шаги в порядке исполнения отката: по убыванию Order,
// то есть в обратном порядке относительно прямого исполнения. Поздние шаги
// могут зависеть от ранних, поэтому никакого параллелизма.
func (p *RollbackPlan) StepsReversed() []RollbackStep {
	steps := make([]RollbackStep, len(p.Steps))
	copy(steps, p.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order > steps[j].Order
	})
	return steps
}

// Enrich дотягивает в шаги значения, захваченные модулем при исполнении
// (pre-execution state). Вызывается один раз, после успешного dispatch.
func (p *RollbackPlan) Enrich(result map[string]interface{}) {
	if len(result) == 0 {
		return
	}
	for i := range p.Steps {
		step := &p.Steps[i]
		for param, resultKey := range step.FromResult {
			if v, ok := result[resultKey]; ok {
				if step.Parameters == nil {
					step.Parameters = make(map[string]interface{})
				}
				step.Parameters[param] = v
			}
		}
	}
}
