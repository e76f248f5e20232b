package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStorage struct {
	mu      sync.Mutex
	batches [][]Event
}

func (m *memStorage) WriteBatch(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]Event, len(events))
	copy(batch, events)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *memStorage) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func TestSink_FlushesByTicker(t *testing.T) {
	storage := &memStorage{}
	sink := NewSink(storage, 100, 20*time.Millisecond, zap.NewNop())
	sink.Start()
	defer sink.Stop()

	sink.Log(Event{ID: "e1", Kind: KindExecute, ActionID: "a1"})
	sink.Log(Event{ID: "e2", Kind: KindExecute, ActionID: "a2"})

	require.Eventually(t, func() bool { return storage.total() == 2 }, time.Second, 10*time.Millisecond)
}

func TestSink_DrainsBufferOnStop(t *testing.T) {
	storage := &memStorage{}
	// Большой интервал: до Stop тикер не успеет сработать
	sink := NewSink(storage, 100, time.Hour, zap.NewNop())
	sink.Start()

	for i := 0; i < 10; i++ {
		sink.Log(Event{ID: "e", Kind: KindRollback, ActionID: "a1"})
	}
	sink.Stop()

	assert.Equal(t, 10, storage.total(), "tail of the buffer must be written before exit")
}

func TestSink_DropsAfterStop(t *testing.T) {
	storage := &memStorage{}
	sink := NewSink(storage, 100, time.Hour, zap.NewNop())
	sink.Start()
	sink.Stop()

	// Log после остановки не паникует и ничего не пишет
	sink.Log(Event{ID: "late", Kind: KindExecute})
	assert.Equal(t, 0, storage.total())
}

func TestSink_StampsTimestamp(t *testing.T) {
	storage := &memStorage{}
	sink := NewSink(storage, 100, time.Hour, zap.NewNop())
	sink.Start()

	sink.Log(Event{ID: "e1", Kind: KindApprovalRequest})
	sink.Stop()

	require.Equal(t, 1, storage.total())
	assert.False(t, storage.batches[0][0].Timestamp.IsZero())
}
