package audit

/*
Файл sink.go реализует асинхронный приемник записей аудита исполнения.

Ключевые свойства:
- Non-blocking Logging: события уходят из Hot Path оркестратора через
  неблокирующий канал — задержки БД не влияют на Response Time действия,
  а сбой записи никогда не доезжает до вызывающего (fire-and-forget).
- Batching: накопление в памяти и пакетная запись (Bulk Insert) по таймеру
  или при достижении лимита.
- Drain Pattern: при остановке сервиса буфер вычитывается полностью,
  Final Flush гарантирует отсутствие потерь при штатной перезагрузке.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться записи
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

// Auditor — контракт для оркестратора: записать и не ждать
type Auditor interface {
	Log(event Event)
}

// Gauge — необязательный хук для метрики заполненности буфера
type Gauge interface {
	Set(v float64)
}

type Sink struct {
	ch            chan Event
	repo          StorageInterface
	logger        *zap.Logger
	wg            sync.WaitGroup
	buffGauge     Gauge
	batchSize     int
	flushInterval time.Duration
	isClosed      int32 // Атомарный флаг: защита от Log после остановки
}

func NewSink(repo StorageInterface, bufferSize int, flushInterval time.Duration, logger *zap.Logger) *Sink {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Sink{
		ch:            make(chan Event, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit")),
		batchSize:     100,
		flushInterval: flushInterval,
	}
}

// SetGauge подключает метрику заполненности (опционально)
func (s *Sink) SetGauge(g Gauge) {
	s.buffGauge = g
}

func (s *Sink) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Stop «запирает» вход и ждет, пока воркер допишет остатки буфера
func (s *Sink) Stop() {
	atomic.StoreInt32(&s.isClosed, 1)

	// Крошечная пауза, чтобы инфлайтовые Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	s.logger.Info("stopping audit sink: closing channel and flushing buffer...")
	close(s.ch)
	s.wg.Wait()
	s.logger.Info("audit sink stopped gracefully")
}

func (s *Sink) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&s.isClosed) == 1 {
		s.logger.Warn("audit event dropped: sink is stopping", zap.String("action_id", event.ActionID))
		return
	}

	// Load Shedding: при переполнении буфера событие не блокирует вызывающего,
	// а уходит в обычный лог, чтобы не потерять данные молча
	select {
	case s.ch <- event:
		if s.buffGauge != nil {
			s.buffGauge.Set(float64(len(s.ch)))
		}
	default:
		s.logger.Error("audit_buffer_overflow",
			zap.String("action_id", event.ActionID),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст к этому моменту может быть закрыт
			if err := s.repo.WriteBatch(context.Background(), batch); err != nil {
				s.logger.Error("audit flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case event, ok := <-s.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали остатки, финальный сброс, выходим
				flush()
				s.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
