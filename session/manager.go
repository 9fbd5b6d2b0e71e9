package session

import (
	"context"
	"sync"

	"github.com/ejoffe/profiletimer"
	"github.com/ejoffe/sprcommit/hook"
	"github.com/rs/zerolog/log"
)

// Manager owns at most one active session at a time.
//
// Starting a session while another one is active is rejected with
// ErrSessionActive, the previous session has to be finalized first.
type Manager struct {
	spawner Spawner
	editor  Editor
	timer   profiletimer.Timer

	mu       sync.Mutex
	current  *Session
	starting bool
}

// NewManager returns a manager starting commands with spawner and editing
// their artifacts in editor. A nil timer disables profiling.
func NewManager(spawner Spawner, editor Editor, timer profiletimer.Timer) *Manager {
	if timer == nil {
		timer = profiletimer.StartNoopTimer()
	}
	return &Manager{
		spawner: spawner,
		editor:  editor,
		timer:   timer,
	}
}

// Start spawns the external command, waits for its announcement and opens
// the announced artifact.
func (m *Manager) Start(ctx context.Context, cfg Config) (*Session, error) {
	m.mu.Lock()
	if m.starting || m.current != nil {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	m.starting = true
	m.mu.Unlock()

	m.timer.Step("Session::Start")
	s := newSession(cfg, m.editor, m.timer)
	s.onClose = m.release
	err := s.start(ctx, m.spawner)

	m.mu.Lock()
	m.starting = false
	if err == nil {
		// published sessions are always finalizable
		s.subscribe()
		m.current = s
	}
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	err = s.edit()
	if err != nil {
		log.Error().Err(err).Msg("open artifact")
		s.discard()
		s.Finalize(hook.Discarded)
		return nil, err
	}
	return s, nil
}

// Active returns the active session or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsActive is true while a session is starting or not yet closed.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starting || m.current != nil
}

// Finalize ends the active session with trigger and waits for teardown.
// It returns false if there was no session or another trigger won.
func (m *Manager) Finalize(trigger hook.Trigger) (Result, bool) {
	s := m.Active()
	if s == nil {
		return Result{}, false
	}
	fired := s.Finalize(trigger)
	if !fired && s.State() < Editing {
		return Result{}, false
	}
	<-s.Done()
	return s.Result(), fired
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == s {
		m.current = nil
	}
}
