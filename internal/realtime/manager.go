package realtime

import (
	"sync"
	"time"
)

// Manager owns the process-wide connection singleton. There is never more
// than one live channel: acquiring a connection for a different identity
// tears the cached one down first, and re-entrant acquisition for the same
// identity returns the same instance.
type Manager struct {
	mu        sync.Mutex
	wsURL     string
	delay     time.Duration
	heartbeat time.Duration
	current   *Conn
}

// NewManager builds a Manager dialing wsBaseURL + "/ws/queue".
func NewManager(wsBaseURL string, delay, heartbeat time.Duration) *Manager {
	return &Manager{
		wsURL:     wsBaseURL + "/ws/queue",
		delay:     delay,
		heartbeat: heartbeat,
	}
}

// Acquire returns the live connection for the given identity, creating one
// if none exists, the cached one is closed, or it belongs to someone else.
// The stale channel is deactivated before the new one dials; two channels
// for two identities never run concurrently.
func (m *Manager) Acquire(userID uint64) *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		if m.current.UserID() == userID && !m.current.isClosed() {
			return m.current
		}
		m.current.Close()
		m.current = nil
	}
	m.current = newConn(userID, m.wsURL, m.delay, m.heartbeat)
	return m.current
}

// Disconnect tears down the cached connection, if any. Called on logout and
// when the user leaves the queue.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
}
