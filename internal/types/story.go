// internal/types/story.go
package types

import "fmt"

// maxMemories caps how many memories a character retains; older entries
// are discarded first.
const maxMemories = 20

// Character is a person in the story world. Characters are created during
// scenario creation or introduced dynamically mid-story; they are never
// deleted individually.
type Character struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Personality    string            `json:"personality"`
	SpeechPatterns string            `json:"speech_patterns"`
	Memories       []string          `json:"memories"`
	Relationships  map[string]string `json:"relationships"`
}

// AddMemory appends a memory entry, dropping the oldest entries beyond the cap.
func (c *Character) AddMemory(entry string) {
	c.Memories = append(c.Memories, entry)
	if len(c.Memories) > maxMemories {
		c.Memories = c.Memories[len(c.Memories)-maxMemories:]
	}
}

func (c *Character) clone() *Character {
	out := *c
	out.Memories = append([]string(nil), c.Memories...)
	out.Relationships = make(map[string]string, len(c.Relationships))
	for k, v := range c.Relationships {
		out.Relationships[k] = v
	}
	return &out
}

// Scene is the current stage of the story. A scene is replaced wholesale on
// location change, never patched in place.
type Scene struct {
	Location         string   `json:"location"`
	Description      string   `json:"description"`
	Atmosphere       string   `json:"atmosphere"`
	ActiveCharacters []string `json:"active_characters"`
	Props            []string `json:"props"`
}

func (s Scene) clone() Scene {
	out := s
	out.ActiveCharacters = append([]string(nil), s.ActiveCharacters...)
	out.Props = append([]string(nil), s.Props...)
	return out
}

// StoryWorld is the complete narrative state of one story. History is
// append-only; insertion order is the canonical timeline order.
type StoryWorld struct {
	Premise      string                `json:"premise"`
	Setting      string                `json:"setting"`
	Conflicts    []string              `json:"conflicts"`
	Characters   map[string]*Character `json:"characters"`
	CurrentScene Scene                 `json:"current_scene"`
	History      []string              `json:"history"`
}

// NewStoryWorld returns an empty world with an initialized character map.
func NewStoryWorld() *StoryWorld {
	return &StoryWorld{Characters: make(map[string]*Character)}
}

// AddCharacter registers a character under its name.
func (w *StoryWorld) AddCharacter(c *Character) {
	if w.Characters == nil {
		w.Characters = make(map[string]*Character)
	}
	w.Characters[c.Name] = c
}

// Character returns the named character, or nil if it does not exist.
func (w *StoryWorld) Character(name string) *Character {
	return w.Characters[name]
}

// AppendHistory adds entries to the story timeline.
func (w *StoryWorld) AppendHistory(entries ...string) {
	w.History = append(w.History, entries...)
}

// RecentHistory returns up to n of the newest history entries in order.
func (w *StoryWorld) RecentHistory(n int) []string {
	if len(w.History) <= n {
		return w.History
	}
	return w.History[len(w.History)-n:]
}

// Validate checks that every active character in the current scene exists
// in the character map.
func (w *StoryWorld) Validate() error {
	for _, name := range w.CurrentScene.ActiveCharacters {
		if _, ok := w.Characters[name]; !ok {
			return fmt.Errorf("scene references unknown character %q", name)
		}
	}
	return nil
}

// Clone returns a deep copy of the world.
func (w *StoryWorld) Clone() *StoryWorld {
	out := &StoryWorld{
		Premise:      w.Premise,
		Setting:      w.Setting,
		Conflicts:    append([]string(nil), w.Conflicts...),
		Characters:   make(map[string]*Character, len(w.Characters)),
		CurrentScene: w.CurrentScene.clone(),
		History:      append([]string(nil), w.History...),
	}
	for name, c := range w.Characters {
		out.Characters[name] = c.clone()
	}
	return out
}
