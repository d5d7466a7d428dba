// internal/gateway/gateway.go
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/storyloom/internal/prompt"
	"github.com/user/storyloom/internal/types"
	"github.com/user/storyloom/pkg/llm"
)

// Narrator produces story text for the session controller's engines.
// A character-embodiment request is a distinguishable variant of generation;
// the core never retries internally.
type Narrator interface {
	Narrate(ctx context.Context, world *types.StoryWorld, userInput, charLine string) (string, error)
	Embody(ctx context.Context, world *types.StoryWorld, ch *types.Character, situation string) (string, error)
	Draft(ctx context.Context, exchanges []types.Exchange) (*types.StoryWorld, error)
	Weave(ctx context.Context, world *types.StoryWorld, directive string) (string, error)
}

// Client adapts an llm.Provider into the narrative generation gateway.
type Client struct {
	provider llm.Provider
	builder  *prompt.Builder
}

// New creates a gateway over the given provider and prompt builder.
func New(provider llm.Provider, builder *prompt.Builder) *Client {
	return &Client{provider: provider, builder: builder}
}

func (c *Client) complete(ctx context.Context, role string, messages []llm.Message) (string, error) {
	resp, err := c.provider.Complete(ctx, messages)
	if err != nil {
		// Cancellation is not a generation failure; let it propagate so the
		// controller takes the save-and-exit path instead of recovery.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &GenerationError{Err: err}
	}
	slog.Debug("generation completed", "role", role, "tokens", resp.Usage.TotalTokens)
	return resp.Content, nil
}

// Narrate produces the narrator's response to a player input.
func (c *Client) Narrate(ctx context.Context, world *types.StoryWorld, userInput, charLine string) (string, error) {
	return c.complete(ctx, "narrator", c.builder.Narrator(world, userInput, charLine))
}

// Embody produces a single character's in-voice response to a situation.
func (c *Client) Embody(ctx context.Context, world *types.StoryWorld, ch *types.Character, situation string) (string, error) {
	return c.complete(ctx, "character", c.builder.Character(world, ch, situation))
}

// Weave integrates a meta-command directive into the narrative without
// acknowledging the directive itself.
func (c *Client) Weave(ctx context.Context, world *types.StoryWorld, directive string) (string, error) {
	return c.complete(ctx, "weave", c.builder.Weave(world, directive))
}

// scenarioDraft is the structured scenario the backend is asked to emit.
type scenarioDraft struct {
	Premise      string   `json:"premise"`
	Setting      string   `json:"setting"`
	Conflicts    []string `json:"conflicts"`
	OpeningScene struct {
		Location    string `json:"location"`
		Description string `json:"description"`
		Atmosphere  string `json:"atmosphere"`
	} `json:"opening_scene"`
	Characters []struct {
		Name           string `json:"name"`
		Description    string `json:"description"`
		Personality    string `json:"personality"`
		SpeechPatterns string `json:"speech_patterns"`
	} `json:"characters"`
}

// Draft asks the backend for a structured scenario built from the accumulated
// creation dialogue and extracts a StoryWorld from it. Unparseable output
// yields an *InvalidOutputError.
func (c *Client) Draft(ctx context.Context, exchanges []types.Exchange) (*types.StoryWorld, error) {
	out, err := c.complete(ctx, "scenario", c.builder.Scenario(exchanges))
	if err != nil {
		return nil, err
	}
	return parseDraft(out)
}

func parseDraft(out string) (*types.StoryWorld, error) {
	var draft scenarioDraft
	if err := json.Unmarshal([]byte(stripFence(out)), &draft); err != nil {
		return nil, &InvalidOutputError{Output: out, Err: err}
	}
	if strings.TrimSpace(draft.Premise) == "" || strings.TrimSpace(draft.Setting) == "" {
		return nil, &InvalidOutputError{Output: out, Err: fmt.Errorf("draft missing premise or setting")}
	}

	world := types.NewStoryWorld()
	world.Premise = draft.Premise
	world.Setting = draft.Setting
	world.Conflicts = draft.Conflicts
	world.CurrentScene = types.Scene{
		Location:    draft.OpeningScene.Location,
		Description: draft.OpeningScene.Description,
		Atmosphere:  draft.OpeningScene.Atmosphere,
	}
	for _, ch := range draft.Characters {
		if strings.TrimSpace(ch.Name) == "" {
			continue
		}
		world.AddCharacter(&types.Character{
			Name:           ch.Name,
			Description:    ch.Description,
			Personality:    ch.Personality,
			SpeechPatterns: ch.SpeechPatterns,
			Relationships:  make(map[string]string),
		})
	}
	// Up to two characters open the story on stage.
	for _, ch := range draft.Characters {
		if len(world.CurrentScene.ActiveCharacters) == 2 {
			break
		}
		if world.Character(ch.Name) != nil {
			world.CurrentScene.ActiveCharacters = append(world.CurrentScene.ActiveCharacters, ch.Name)
		}
	}
	world.AppendHistory("Story begins: " + draft.Premise)
	return world, nil
}

// stripFence removes a surrounding markdown code fence, which models often
// wrap JSON in even when told not to.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
