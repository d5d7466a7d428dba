// internal/prompt/builder.go
package prompt

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/storyloom/internal/types"
	"github.com/user/storyloom/pkg/llm"
)

// Builder assembles token-budgeted prompts for the narrative backend.
type Builder struct {
	tokenizer *tiktoken.Tiktoken
	budget    int
}

// NewBuilder creates a prompt builder. model selects the tokenizer
// (falling back to cl100k_base for unknown models); budget is the maximum
// number of input tokens a prompt may use.
func NewBuilder(model string, budget int) (*Builder, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Builder{tokenizer: enc, budget: budget}, nil
}

func (b *Builder) countTokens(text string) int {
	return len(b.tokenizer.Encode(text, nil, nil))
}

// Narrator builds the prompt for a normal story turn. charLine, when
// non-empty, is an embodied character's response to fold into the narration.
func (b *Builder) Narrator(world *types.StoryWorld, userInput, charLine string) []llm.Message {
	var sb strings.Builder
	sb.WriteString(b.worldContext(world, b.remainingFor(narratorSystemPrompt, userInput, charLine)))
	if charLine != "" {
		sb.WriteString("\nA character has just responded in the scene:\n")
		sb.WriteString(charLine)
		sb.WriteString("\n")
	}
	sb.WriteString("\nPlayer action/input: ")
	sb.WriteString(userInput)
	sb.WriteString("\n\nContinue the narrative naturally.")

	return []llm.Message{
		{Role: "system", Content: narratorSystemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// Character builds the prompt for a character-embodiment call, the
// distinguishable variant of generate used for NPC dialogue.
func (b *Builder) Character(world *types.StoryWorld, ch *types.Character, situation string) []llm.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Character: %s\nDescription: %s\nPersonality: %s\nSpeech patterns: %s\n",
		ch.Name, ch.Description, ch.Personality, ch.SpeechPatterns)
	if len(ch.Memories) > 0 {
		recent := ch.Memories
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		fmt.Fprintf(&sb, "Recent memories: %s\n", strings.Join(recent, "; "))
	}
	if len(ch.Relationships) > 0 {
		var rels []string
		for name, rel := range ch.Relationships {
			rels = append(rels, name+": "+rel)
		}
		fmt.Fprintf(&sb, "Relationships: %s\n", strings.Join(rels, "; "))
	}
	scene := world.CurrentScene
	fmt.Fprintf(&sb, "\nCurrent scene: %s\nScene description: %s\nAtmosphere: %s\n",
		scene.Location, scene.Description, scene.Atmosphere)
	fmt.Fprintf(&sb, "\nSituation to respond to: %s\n", situation)

	return []llm.Message{
		{Role: "system", Content: characterSystemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

// Scenario builds the prompt for scenario drafting from the accumulated
// creation dialogue. Exchanges are included oldest-first so earlier
// constraints are never forgotten; if the budget is exceeded the OLDEST
// user constraint is still kept and trimming happens in the middle.
func (b *Builder) Scenario(exchanges []types.Exchange) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: scenarioSystemPrompt}}
	used := b.countTokens(scenarioSystemPrompt)

	for _, ex := range exchanges {
		tokens := b.countTokens(ex.Content)
		if used+tokens > b.budget && len(messages) > 1 {
			continue
		}
		messages = append(messages, llm.Message{Role: ex.Role, Content: ex.Content})
		used += tokens
	}
	return messages
}

// Weave builds the prompt that integrates a meta-command directive into the
// narrative without acknowledging the directive itself.
func (b *Builder) Weave(world *types.StoryWorld, directive string) []llm.Message {
	instruction := fmt.Sprintf(weaveInstruction, directive)
	var sb strings.Builder
	sb.WriteString(b.worldContext(world, b.budget-b.countTokens(narratorSystemPrompt)-b.countTokens(instruction)))
	sb.WriteString("\n")
	sb.WriteString(instruction)

	return []llm.Message{
		{Role: "system", Content: narratorSystemPrompt},
		{Role: "user", Content: sb.String()},
	}
}

func (b *Builder) remainingFor(parts ...string) int {
	remaining := b.budget
	for _, p := range parts {
		remaining -= b.countTokens(p)
	}
	return remaining
}

// worldContext renders the scene, active character sheets, and as much
// recent history as fits the remaining token budget (newest entries win).
func (b *Builder) worldContext(world *types.StoryWorld, budget int) string {
	var sb strings.Builder
	scene := world.CurrentScene
	fmt.Fprintf(&sb, "Current scene: %s\nScene description: %s\nAtmosphere: %s\n",
		scene.Location, scene.Description, scene.Atmosphere)
	if len(scene.Props) > 0 {
		fmt.Fprintf(&sb, "Props in scene: %s\n", strings.Join(scene.Props, ", "))
	}

	if len(scene.ActiveCharacters) == 0 {
		sb.WriteString("Active characters: none, the player is alone\n")
	} else {
		sb.WriteString("Active characters:\n")
		for _, name := range scene.ActiveCharacters {
			ch := world.Character(name)
			if ch == nil {
				continue
			}
			fmt.Fprintf(&sb, "- %s: %s | Personality: %s | Speech: %s\n",
				ch.Name, ch.Description, ch.Personality, ch.SpeechPatterns)
		}
	}

	header := sb.String()
	remaining := budget - b.countTokens(header)

	var history []string
	for i := len(world.History) - 1; i >= 0; i-- {
		entry := world.History[i]
		tokens := b.countTokens(entry)
		if remaining-tokens < 0 && len(history) > 0 {
			break
		}
		history = append(history, entry)
		remaining -= tokens
	}
	// Collected newest-first, render oldest-first.
	sb.WriteString("\nRecent story events:\n")
	if len(history) == 0 {
		sb.WriteString("This is the beginning of the story.\n")
	} else {
		for i := len(history) - 1; i >= 0; i-- {
			sb.WriteString(history[i])
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
