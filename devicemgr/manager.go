// Package devicemgr owns the map from serial path to connected
// session.
package devicemgr

import (
	"sync"
	"time"

	"github.com/tomrford/scopelink/session"
	"github.com/tomrford/scopelink/transport"
)

// Opener opens a handle for a path; swapped out in tests for a fake,
// in production backed by transport/serialhandle.
type Opener func(path string, cfg transport.SerialConfig) (transport.Handle, error)

// ConnectedDevice is the manager's view of one open session.
type ConnectedDevice struct {
	Path    string
	Session *session.Session
}

// Manager holds a path -> session map. It does not itself run
// protocol I/O beyond the connect handshake; the runtime drives
// everything after that.
type Manager struct {
	open    Opener
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func New(open Opener, requestTimeout time.Duration) *Manager {
	return &Manager{
		open:     open,
		timeout:  requestTimeout,
		sessions: make(map[string]*session.Session),
	}
}

// Connect opens path if it isn't already connected; a second connect
// on an already-connected path returns the existing session.
func (m *Manager) Connect(path string, cfg transport.SerialConfig) (*ConnectedDevice, error) {
	m.mu.Lock()
	if s, ok := m.sessions[path]; ok {
		m.mu.Unlock()
		return &ConnectedDevice{Path: path, Session: s}, nil
	}
	m.mu.Unlock()

	handle, err := m.open(path, cfg)
	if err != nil {
		return nil, err
	}
	s, err := session.Open(handle, m.timeout)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[path]; ok {
		s.Close()
		return &ConnectedDevice{Path: path, Session: existing}, nil
	}
	m.sessions[path] = s
	return &ConnectedDevice{Path: path, Session: s}, nil
}

// Disconnect closes and removes path's session, if any. Close errors
// are swallowed: a device that vanished mid-close is still gone.
func (m *Manager) Disconnect(path string) {
	m.mu.Lock()
	s, ok := m.sessions[path]
	delete(m.sessions, path)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// DisconnectAll disconnects every connected path.
func (m *Manager) DisconnectAll() {
	for _, d := range m.Active() {
		m.Disconnect(d.Path)
	}
}

// Active returns a snapshot of the currently connected devices.
func (m *Manager) Active() []ConnectedDevice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConnectedDevice, 0, len(m.sessions))
	for path, s := range m.sessions {
		out = append(out, ConnectedDevice{Path: path, Session: s})
	}
	return out
}

// Get returns the session for path, if connected.
func (m *Manager) Get(path string) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[path]
	return s, ok
}
