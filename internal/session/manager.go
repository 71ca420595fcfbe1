package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/glintlabs/glint/internal/logging"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Registrar is the relay-side hook a session's gaze inbox is attached to.
type Registrar interface {
	Register(id string, inbox chan<- types.GazeFrame)
	Unregister(id string)
}

// Observer receives session lifecycle signals.
type Observer interface {
	IncSessionsOpened()
	IncSessionsRestored()
	SetSessionsActive(count int)
}

// Manager tracks live sessions and persists per-user session state through
// the store.
type Manager struct {
	store Store
	relay Registrar
	obs   Observer
	log   *logging.Logger

	sessions sync.Map // id -> *Session

	mu           sync.RWMutex
	lastSaved    *time.Time
	lastRestored *time.Time
}

func NewManager(store Store, relay Registrar, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NewDefault()
	}
	return &Manager{
		store: store,
		relay: relay,
		log:   log.Component("session"),
	}
}

// SetObserver attaches lifecycle reporting. Nil disables it.
func (m *Manager) SetObserver(obs Observer) {
	m.obs = obs
}

// Open creates a session for a connecting socket, restoring the user's
// persisted state when present. The session's gaze inbox is registered with
// the relay until Close.
func (m *Manager) Open(ctx context.Context, userID string) (*Session, error) {
	state, err := m.restore(ctx, userID)
	if err != nil {
		return nil, err
	}

	s := newSession(userID, state)
	m.sessions.Store(s.ID, s)
	if m.relay != nil {
		m.relay.Register(s.ID, s.Gaze)
	}
	if m.obs != nil {
		m.obs.IncSessionsOpened()
		m.obs.SetSessionsActive(m.Stats().ActiveSessions)
	}

	m.log.Info("session opened",
		zap.String("session_id", s.ID),
		zap.String("user_id", userID),
		zap.Bool("enabled", s.Enabled()))
	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Close persists the session's state and releases its relay registration.
func (m *Manager) Close(ctx context.Context, id string) {
	v, ok := m.sessions.LoadAndDelete(id)
	if !ok {
		return
	}
	s := v.(*Session)
	if m.relay != nil {
		m.relay.Unregister(s.ID)
	}
	if err := m.Persist(ctx, s); err != nil {
		m.log.Warn("state persist on close failed", zap.Error(err))
	}
	if m.obs != nil {
		m.obs.SetSessionsActive(m.Stats().ActiveSessions)
	}
	m.log.Info("session closed", zap.String("session_id", s.ID))
}

// Persist writes the session's durable fields keyed by user.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	if m.store == nil {
		return nil
	}
	now := time.Now()
	state := persistedState{
		UserID:  s.UserID,
		Enabled: s.Enabled(),
		Docked:  s.Docked(),
		SavedAt: now,
	}
	data, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if err := m.store.Put(ctx, stateKey(s.UserID), data); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}

	m.mu.Lock()
	m.lastSaved = &now
	m.mu.Unlock()
	return nil
}

// restore loads the user's saved state, falling back to defaults when none
// exists.
func (m *Manager) restore(ctx context.Context, userID string) (persistedState, error) {
	if m.store == nil {
		return defaultState(userID), nil
	}
	data, err := m.store.Get(ctx, stateKey(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return defaultState(userID), nil
		}
		return persistedState{}, fmt.Errorf("restore session state: %w", err)
	}

	var state persistedState
	if err := sonic.Unmarshal(data, &state); err != nil {
		m.log.Warn("corrupt session state, using defaults",
			zap.String("user_id", userID), zap.Error(err))
		return defaultState(userID), nil
	}

	now := time.Now()
	m.mu.Lock()
	m.lastRestored = &now
	m.mu.Unlock()
	if m.obs != nil {
		m.obs.IncSessionsRestored()
	}
	return state, nil
}

// Stats describes the manager's current footprint.
type Stats struct {
	ActiveSessions int        `json:"active_sessions"`
	LastSaved      *time.Time `json:"last_saved,omitempty"`
	LastRestored   *time.Time `json:"last_restored,omitempty"`
}

func (m *Manager) Stats() Stats {
	var active int
	m.sessions.Range(func(_, _ any) bool {
		active++
		return true
	})

	m.mu.RLock()
	saved := m.lastSaved
	restored := m.lastRestored
	m.mu.RUnlock()

	return Stats{ActiveSessions: active, LastSaved: saved, LastRestored: restored}
}

func stateKey(userID string) string {
	return "state/" + userID
}
