package locking

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Manager provides named locks. Jobs use Acquire/Release to skip a cycle
// that is already running; the rebalance engine uses Lock/Unlock to
// serialize sweeps for the same user while letting different users proceed
// concurrently.
type Manager struct {
	mu    sync.Mutex
	held  map[string]bool
	locks map[string]*sync.Mutex
	log   zerolog.Logger
}

// NewManager creates a new lock manager
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		held:  make(map[string]bool),
		locks: make(map[string]*sync.Mutex),
		log:   log.With().Str("component", "locking").Logger(),
	}
}

// Acquire takes the named lock without blocking. It returns an error if
// the lock is already held.
func (m *Manager) Acquire(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held[name] {
		return fmt.Errorf("lock %q already held", name)
	}
	m.held[name] = true
	return nil
}

// Release releases a lock taken with Acquire.
func (m *Manager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held[name] {
		m.log.Warn().Str("lock", name).Msg("Release of lock that is not held")
		return
	}
	delete(m.held, name)
}

// Lock blocks until the named lock is available.
func (m *Manager) Lock(name string) {
	m.keyed(name).Lock()
}

// Unlock releases a lock taken with Lock.
func (m *Manager) Unlock(name string) {
	m.keyed(name).Unlock()
}

func (m *Manager) keyed(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}
