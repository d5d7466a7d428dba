// internal/loop/engine.go
package loop

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/user/storyloom/internal/command"
	"github.com/user/storyloom/internal/gateway"
	"github.com/user/storyloom/internal/types"
)

// ErrEmptyInput marks input that is rejected locally without consuming a
// turn or invoking the gateway.
var ErrEmptyInput = errors.New("empty input")

// Engine drives the ongoing narrative one turn at a time. A successful turn
// grows world history by exactly two entries (user line, then response) and
// is never reordered; a failed turn leaves world and session untouched.
type Engine struct {
	gw     gateway.Narrator
	parser *command.Parser
}

// New creates a story loop engine.
func New(gw gateway.Narrator, parser *command.Parser) *Engine {
	return &Engine{gw: gw, parser: parser}
}

// Turn processes one line of player input against the session and returns
// the narrative response. Persistence of the resulting state is the
// caller's responsibility.
func (e *Engine) Turn(ctx context.Context, session *types.StorySession, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}

	world := session.World

	if directive, ok := e.parser.Parse(input); ok {
		response, err := e.gw.Weave(ctx, world, directive)
		if err != nil {
			return "", err
		}
		// The directive integrates as if it always held; neither the stored
		// history nor the narrative output carries the command syntax.
		world.AppendHistory("Story development: "+directive, "Narrator: "+response)
		session.AddExchange("user", directive)
		session.AddExchange("assistant", response)
		session.Touch()
		slog.Debug("meta-command applied", "directive", directive)
		return response, nil
	}

	// If the player addresses an active character, let that character answer
	// first and fold the line into the narration.
	var charLine string
	embodied := e.mentionedCharacter(world, input)
	if embodied != nil {
		line, err := e.gw.Embody(ctx, world, embodied, input)
		if err != nil {
			return "", err
		}
		charLine = embodied.Name + ": " + line
	}

	response, err := e.gw.Narrate(ctx, world, input, charLine)
	if err != nil {
		return "", err
	}

	if embodied != nil {
		embodied.AddMemory("Responded to: " + truncate(input, 100))
	}

	world.AppendHistory("User: "+input, "Narrator: "+response)
	session.AddExchange("user", input)
	session.AddExchange("assistant", response)
	session.Touch()
	return response, nil
}

// mentionedCharacter returns the first active scene character whose name
// appears in the input, or nil.
func (e *Engine) mentionedCharacter(world *types.StoryWorld, input string) *types.Character {
	lower := strings.ToLower(input)
	for _, name := range world.CurrentScene.ActiveCharacters {
		ch := world.Character(name)
		if ch == nil {
			continue
		}
		if strings.Contains(lower, strings.ToLower(name)) {
			return ch
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
