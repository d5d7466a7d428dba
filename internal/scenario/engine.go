// internal/scenario/engine.go
package scenario

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/storyloom/internal/gateway"
	"github.com/user/storyloom/internal/types"
)

// Engine drives the iterative scenario-creation dialogue. Each round appends
// to the accumulated exchange context, never replaces it, so refinement
// feedback can not erase earlier constraints. Rounds are unbounded; every
// round ends with an explicit user choice (approve, refine, abandon).
type Engine struct {
	gw        gateway.Narrator
	exchanges []types.Exchange
	candidate *types.StoryWorld
}

// New creates a scenario creation engine over the given gateway.
func New(gw gateway.Narrator) *Engine {
	return &Engine{gw: gw}
}

// Propose starts a creation dialogue from an initial concept and returns the
// first candidate world. On gateway failure the concept stays in the
// accumulated context so a retry re-sends the same dialogue.
func (e *Engine) Propose(ctx context.Context, concept string) (*types.StoryWorld, error) {
	e.append("user", "Story concept: "+concept)
	return e.draft(ctx)
}

// Refine extends the dialogue with user feedback and returns a new candidate
// built from the full accumulated context.
func (e *Engine) Refine(ctx context.Context, feedback string) (*types.StoryWorld, error) {
	e.append("user", "Refinement feedback: "+feedback)
	return e.draft(ctx)
}

// Retry re-runs the last draft with the context unchanged.
func (e *Engine) Retry(ctx context.Context) (*types.StoryWorld, error) {
	return e.draft(ctx)
}

// Candidate returns the latest proposed world, or nil before the first
// successful draft.
func (e *Engine) Candidate() *types.StoryWorld {
	return e.candidate
}

// Exchanges returns a copy of the accumulated creation dialogue, used to
// seed the session's message history on approval.
func (e *Engine) Exchanges() []types.Exchange {
	return append([]types.Exchange(nil), e.exchanges...)
}

// Reset discards all accumulated work (the abandon path).
func (e *Engine) Reset() {
	e.exchanges = nil
	e.candidate = nil
}

func (e *Engine) append(role, content string) {
	e.exchanges = append(e.exchanges, types.Exchange{Role: role, Content: content, At: time.Now()})
}

func (e *Engine) draft(ctx context.Context) (*types.StoryWorld, error) {
	world, err := e.gw.Draft(ctx, e.exchanges)
	if err != nil {
		return nil, err
	}
	e.candidate = world
	e.append("assistant", "Proposed scenario: "+world.Premise)
	slog.Info("scenario candidate drafted",
		"characters", len(world.Characters),
		"conflicts", len(world.Conflicts),
		"rounds", len(e.exchanges)/2,
	)
	return world, nil
}
