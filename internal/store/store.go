// Package store persists the strategy list and the alert history.
package store

import (
	"sort"
	"sync"

	"StockSentry/internal/model"
)

// DefaultHistoryCap bounds the alert history; the oldest entries are
// dropped beyond it.
const DefaultHistoryCap = 100

// Store loads and saves strategies and appends fired alerts. A save
// with silent=true skips the change broadcast used by UI observers, so
// the engine's own writes cannot re-enter the refresh path.
type Store interface {
	LoadStrategies() ([]model.Strategy, error)
	SaveStrategies(ss []model.Strategy, silent bool) error
	AppendHistory(item model.AlertHistoryItem) error
	History(limit int) ([]model.AlertHistoryItem, error)
	Close() error
}

// MemoryStore keeps everything in process memory. Used when no
// database path is configured, and by tests.
type MemoryStore struct {
	mu         sync.Mutex
	encoded    []byte
	history    []model.AlertHistoryItem
	historyCap int
	onChange   func()
}

// NewMemoryStore creates an empty in-memory store. onChange may be nil;
// it is invoked on every non-silent save.
func NewMemoryStore(historyCap int, onChange func()) *MemoryStore {
	if historyCap <= 0 {
		historyCap = DefaultHistoryCap
	}
	return &MemoryStore{historyCap: historyCap, onChange: onChange}
}

func (m *MemoryStore) LoadStrategies() ([]model.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.encoded) == 0 {
		return nil, nil
	}
	return model.DecodeStrategies(m.encoded)
}

func (m *MemoryStore) SaveStrategies(ss []model.Strategy, silent bool) error {
	data, err := model.EncodeStrategies(ss)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.encoded = data
	onChange := m.onChange
	m.mu.Unlock()

	if !silent && onChange != nil {
		onChange()
	}
	return nil
}

func (m *MemoryStore) AppendHistory(item model.AlertHistoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, item)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
	return nil
}

func (m *MemoryStore) History(limit int) ([]model.AlertHistoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AlertHistoryItem, len(m.history))
	copy(out, m.history)
	// Newest first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
