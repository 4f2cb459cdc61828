package playground

import "sync"

// Store holds the authoritative playground state. Every mutation is applied
// under the write lock, so readers never see a half-applied batch. Values
// are copied on the way in and out; callers never share memory with it.
type Store struct {
	mu    sync.RWMutex
	state State
}

func NewStore(initial State) *Store {
	return &Store{state: initial.Clone()}
}

// Get returns a snapshot of the whole document.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) Element(id string) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.Elements[id]
	if !ok {
		return Element{}, false
	}
	return e.Clone(), true
}

func (s *Store) Elements() map[string]Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneElements(s.state.Elements)
}

func (s *Store) Templates() map[string]Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneTemplates(s.state.Templates)
}

// Len reports the number of elements and templates.
func (s *Store) Len() (elements, templates int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Elements), len(s.state.Templates)
}

func (s *Store) UpsertElement(e Element) {
	s.mu.Lock()
	s.state.Elements[e.ID] = e.Clone()
	s.mu.Unlock()
}

// UpsertElements applies the whole batch under one lock.
func (s *Store) UpsertElements(elements map[string]Element) {
	s.mu.Lock()
	for _, e := range elements {
		s.state.Elements[e.ID] = e.Clone()
	}
	s.mu.Unlock()
}

// RemoveElement is a no-op for unknown ids.
func (s *Store) RemoveElement(id string) {
	s.mu.Lock()
	delete(s.state.Elements, id)
	s.mu.Unlock()
}

func (s *Store) UpsertTemplate(t Template) {
	s.mu.Lock()
	s.state.Templates[t.ID] = t.Clone()
	s.mu.Unlock()
}

// RemoveTemplate leaves cards that reference the template untouched.
func (s *Store) RemoveTemplate(id string) {
	s.mu.Lock()
	delete(s.state.Templates, id)
	s.mu.Unlock()
}
