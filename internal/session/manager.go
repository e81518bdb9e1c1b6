// Package session holds the logged in driver in memory and tells
// subscribers when it changes.
package session

import (
	"sync"

	"busdriver/internal/models"
)

// Manager is safe for concurrent use
type Manager struct {
	mu      sync.RWMutex
	current *models.Driver
	nextID  int
	subs    map[int]chan *models.Driver
}

func NewManager() *Manager {
	return &Manager{subs: make(map[int]chan *models.Driver)}
}

// Current returns a copy of the logged in driver, or nil
func (m *Manager) Current() *models.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot()
}

// Set replaces the current driver (nil logs out) and notifies subscribers
func (m *Manager) Set(d *models.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d != nil {
		cp := *d
		m.current = &cp
	} else {
		m.current = nil
	}

	for _, ch := range m.subs {
		// Drop a stale pending value so the subscriber sees the latest one
		select {
		case <-ch:
		default:
		}
		ch <- m.snapshot()
	}
}

// Subscribe returns a channel that receives the current driver on every
// change, starting with the value at subscription time. Call the returned
// func to unsubscribe; the channel is closed.
func (m *Manager) Subscribe() (<-chan *models.Driver, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan *models.Driver, 1)
	ch <- m.snapshot()
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

func (m *Manager) snapshot() *models.Driver {
	if m.current == nil {
		return nil
	}
	d := *m.current
	return &d
}
