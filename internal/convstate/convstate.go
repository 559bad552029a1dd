// Package convstate tracks the per-user conversational mode: which
// free-text reply, if any, the bot is currently awaiting.
package convstate

import "sync"

// Step is the conversation mode for a single user.
type Step int

const (
	// StepNone means no multi-turn input is in progress.
	StepNone Step = iota
	// StepFAQInput means the next text message replaces the FAQ template.
	StepFAQInput
	// StepOrderInput means the next text message replaces the order template.
	StepOrderInput
)

// String returns a short label for logging.
func (s Step) String() string {
	switch s {
	case StepFAQInput:
		return "faq_input"
	case StepOrderInput:
		return "order_input"
	default:
		return "none"
	}
}

// Store holds conversation steps keyed by Telegram user ID.
// Process-lifetime only; an unseen user is at StepNone.
type Store struct {
	mu    sync.RWMutex
	steps map[int64]Step
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{steps: make(map[int64]Step)}
}

// Get returns the user's current step, StepNone for unseen users.
func (s *Store) Get(userID int64) Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.steps[userID]
}

// Set records the user's step. Setting StepNone removes the entry.
// Last write wins per key.
func (s *Store) Set(userID int64, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step == StepNone {
		delete(s.steps, userID)
		return
	}
	s.steps[userID] = step
}

// IsActive reports whether a multi-turn input is in progress for the user.
func (s *Store) IsActive(userID int64) bool {
	return s.Get(userID) != StepNone
}
