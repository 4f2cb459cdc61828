package client

import (
	"sync"

	"github.com/playperu/tabletop/internal/playground"
)

// Mirror is a client's local copy of the playground. Every operation is
// idempotent, so replaying a broadcast leaves it unchanged.
type Mirror struct {
	mu    sync.RWMutex
	state playground.State
}

func NewMirror() *Mirror {
	return &Mirror{state: playground.NewState()}
}

// Replace installs a full snapshot.
func (m *Mirror) Replace(st playground.State) {
	st = st.Clone()
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
}

func (m *Mirror) ApplyElements(elements map[string]playground.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range elements {
		m.state.Elements[e.ID] = e.Clone()
	}
}

// Remove ignores ids it does not hold.
func (m *Mirror) Remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.state.Elements, id)
	}
}

// SetTemplates replaces the whole template mapping.
func (m *Mirror) SetTemplates(templates map[string]playground.Template) {
	templates = playground.CloneTemplates(templates)
	m.mu.Lock()
	m.state.Templates = templates
	m.mu.Unlock()
}

func (m *Mirror) upsertTemplate(t playground.Template) {
	m.mu.Lock()
	m.state.Templates[t.ID] = t.Clone()
	m.mu.Unlock()
}

func (m *Mirror) removeTemplate(id string) {
	m.mu.Lock()
	delete(m.state.Templates, id)
	m.mu.Unlock()
}

func (m *Mirror) Snapshot() playground.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

func (m *Mirror) Element(id string) (playground.Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.state.Elements[id]
	if !ok {
		return playground.Element{}, false
	}
	return e.Clone(), true
}

// ElementIDs returns the mirrored element ids in ascending order.
func (m *Mirror) ElementIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return playground.ElementIDs(m.state.Elements)
}
