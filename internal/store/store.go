// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/storyloom/internal/types"
)

// ErrNotFound is returned when no session exists for the given ID.
var ErrNotFound = errors.New("session not found")

// CorruptError indicates a persisted record exists but cannot be parsed back
// into a session. The caller must not substitute a default world; the record
// stays on disk until manually removed.
type CorruptError struct {
	ID  types.SessionID
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt session record %s: %v", e.ID, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// SessionStore persists story sessions. Implementations must make Save
// atomic with respect to process crash: a failed save leaves the previously
// committed record intact, and a reader never observes a partial record.
// Sessions cross this boundary by value; implementations never retain or
// return a reference shared with the caller.
type SessionStore interface {
	Save(ctx context.Context, session *types.StorySession) error
	Load(ctx context.Context, id types.SessionID) (*types.StorySession, error)
	List(ctx context.Context) ([]types.SessionSummary, error)
	Delete(ctx context.Context, id types.SessionID) error
}

// Summarize derives the display metadata for a session.
func Summarize(s *types.StorySession) types.SessionSummary {
	sum := types.SessionSummary{
		ID:          s.ID,
		Title:       s.DisplayName(),
		LastUpdated: s.LastUpdated,
	}
	if s.World != nil {
		sum.Characters = len(s.World.Characters)
		sum.HistoryLen = len(s.World.History)
	}
	return sum
}
