// internal/types/ids.go
package types

import "github.com/google/uuid"

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Short returns a truncated form of the ID for display.
func (id SessionID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}
