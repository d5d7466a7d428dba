// internal/types/session.go
package types

import (
	"strings"
	"time"
)

// Exchange is one generation-backend message, kept so conversational context
// can be reconstructed when a session is resumed.
type Exchange struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// StorySession is one complete storytelling session. The controller owns the
// in-memory value exclusively; the store only ever sees copies.
type StorySession struct {
	ID             SessionID   `json:"id"`
	World          *StoryWorld `json:"world"`
	MessageHistory []Exchange  `json:"message_history"`
	CreatedAt      time.Time   `json:"created_at"`
	LastUpdated    time.Time   `json:"last_updated"`
}

// NewSession creates a session owning the given world.
func NewSession(world *StoryWorld) *StorySession {
	now := time.Now()
	return &StorySession{
		ID:          NewSessionID(),
		World:       world,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Touch advances LastUpdated. The timestamp never moves backwards.
func (s *StorySession) Touch() {
	if now := time.Now(); now.After(s.LastUpdated) {
		s.LastUpdated = now
	}
}

// AddExchange appends a backend exchange record.
func (s *StorySession) AddExchange(role, content string) {
	s.MessageHistory = append(s.MessageHistory, Exchange{
		Role:    role,
		Content: content,
		At:      time.Now(),
	})
}

// Clone returns a deep copy for handing across the persistence boundary.
func (s *StorySession) Clone() *StorySession {
	out := *s
	if s.World != nil {
		out.World = s.World.Clone()
	}
	out.MessageHistory = append([]Exchange(nil), s.MessageHistory...)
	return &out
}

// DisplayName is a short human-readable label derived from the premise.
func (s *StorySession) DisplayName() string {
	premise := ""
	if s.World != nil {
		premise = strings.TrimSpace(s.World.Premise)
	}
	if premise == "" {
		return "Session " + s.ID.Short()
	}
	if len(premise) > 40 {
		return premise[:40] + "..."
	}
	return premise
}

// SessionSummary is the display metadata for one persisted session, derived
// from the store on demand.
type SessionSummary struct {
	ID          SessionID `json:"id"`
	Title       string    `json:"title"`
	Characters  int       `json:"characters"`
	HistoryLen  int       `json:"history_len"`
	LastUpdated time.Time `json:"last_updated"`
}
