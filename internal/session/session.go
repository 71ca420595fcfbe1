package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glintlabs/glint/internal/shared/types"
)

// Session is the context of one connected client. One socket owns exactly
// one session, and one session drives exactly one engine loop. Mutable
// fields change from control messages and are read from the engine tick, so
// access goes through the accessors.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	// Gaze receives relayed gaze frames. Buffered; the relay drops frames
	// when it is full.
	Gaze chan types.GazeFrame

	mu         sync.RWMutex
	enabled    bool
	docked     bool
	currentTab string
}

func newSession(userID string, state persistedState) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
		Gaze:      make(chan types.GazeFrame, 8),
		enabled:   state.Enabled,
		docked:    state.Docked,
	}
}

// Enabled reports whether dwell detection is active for this session.
func (s *Session) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

func (s *Session) SetEnabled(v bool) {
	s.mu.Lock()
	s.enabled = v
	s.mu.Unlock()
}

// Docked reports whether the result panel is docked.
func (s *Session) Docked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docked
}

func (s *Session) SetDocked(v bool) {
	s.mu.Lock()
	s.docked = v
	s.mu.Unlock()
}

// CurrentTab is the client-reported active tab identifier.
func (s *Session) CurrentTab() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTab
}

func (s *Session) SetCurrentTab(tab string) {
	s.mu.Lock()
	s.currentTab = tab
	s.mu.Unlock()
}

// persistedState is the subset of session context that survives restarts,
// keyed by user.
type persistedState struct {
	UserID  string    `json:"user_id"`
	Enabled bool      `json:"enabled"`
	Docked  bool      `json:"docked"`
	SavedAt time.Time `json:"saved_at"`
}

func defaultState(userID string) persistedState {
	return persistedState{UserID: userID, Enabled: true}
}
