package persist

import (
	"context"
	"sync"

	"github.com/playperu/tabletop/internal/playground"
)

// Memory keeps the document in process. Nothing survives a restart.
type Memory struct {
	mu     sync.Mutex
	state  playground.State
	exists bool
	writes int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) FindDocument(_ context.Context) (playground.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return playground.State{}, false, nil
	}
	return m.state.Clone(), true, nil
}

func (m *Memory) CreateDocument(_ context.Context, st playground.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exists {
		return nil
	}
	m.state = st.Clone()
	m.exists = true
	return nil
}

func (m *Memory) ReplaceFields(_ context.Context, f Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		m.state = playground.NewState()
		m.exists = true
	}
	f.apply(&m.state)
	m.writes++
	return nil
}

// Writes reports how many replaces have been applied.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

var _ Adapter = (*Memory)(nil)
