package grants

import "sync"

// Manager tracks one wizard session per user. Each wizard is owned
// exclusively by its user; there is no shared mutable draft state across
// sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Wizard
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Wizard)}
}

func sessionKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// Put installs a fresh wizard, replacing any existing session for the user.
func (m *Manager) Put(tenantID, userID string, w *Wizard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(tenantID, userID)] = w
}

func (m *Manager) Get(tenantID, userID string) (*Wizard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sessions[sessionKey(tenantID, userID)]
	return w, ok
}

func (m *Manager) Close(tenantID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(tenantID, userID))
}
