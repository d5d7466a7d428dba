// internal/loop/engine_test.go
package loop

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/storyloom/internal/command"
	"github.com/user/storyloom/internal/gateway"
	"github.com/user/storyloom/internal/types"
)

type fakeGateway struct {
	narrateResp  string
	narrateErr   error
	embodyResp   string
	embodyErr    error
	weaveResp    string
	weaveErr     error
	narrations   int
	embodiments  int
	weaves       int
	lastCharLine string
}

func (f *fakeGateway) Narrate(ctx context.Context, world *types.StoryWorld, userInput, charLine string) (string, error) {
	f.narrations++
	f.lastCharLine = charLine
	return f.narrateResp, f.narrateErr
}

func (f *fakeGateway) Embody(ctx context.Context, world *types.StoryWorld, ch *types.Character, situation string) (string, error) {
	f.embodiments++
	return f.embodyResp, f.embodyErr
}

func (f *fakeGateway) Weave(ctx context.Context, world *types.StoryWorld, directive string) (string, error) {
	f.weaves++
	return f.weaveResp, f.weaveErr
}

func (f *fakeGateway) Draft(ctx context.Context, exchanges []types.Exchange) (*types.StoryWorld, error) {
	return nil, errors.New("not used")
}

func newTestSession() *types.StorySession {
	world := types.NewStoryWorld()
	world.Premise = "a heist"
	world.AddCharacter(&types.Character{Name: "Vex", Description: "an engineer"})
	world.CurrentScene = types.Scene{
		Location:         "the docking bay",
		ActiveCharacters: []string{"Vex"},
	}
	world.AppendHistory("Story begins: a heist")
	return types.NewSession(world)
}

func TestTurnGrowsHistoryByTwo(t *testing.T) {
	gw := &fakeGateway{narrateResp: "The bay doors grind open."}
	e := New(gw, command.NewParser())
	session := newTestSession()
	before := len(session.World.History)

	resp, err := e.Turn(context.Background(), session, "open the bay doors")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "The bay doors grind open." {
		t.Errorf("unexpected response %q", resp)
	}
	if got := len(session.World.History); got != before+2 {
		t.Fatalf("history grew by %d, want 2", got-before)
	}
	if session.World.History[before] != "User: open the bay doors" {
		t.Errorf("user line not recorded first: %q", session.World.History[before])
	}
	if session.World.History[before+1] != "Narrator: The bay doors grind open." {
		t.Errorf("response not recorded second: %q", session.World.History[before+1])
	}
	if len(session.MessageHistory) != 2 {
		t.Errorf("expected 2 exchange records, got %d", len(session.MessageHistory))
	}
}

func TestEmptyInputRejectedLocally(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw, command.NewParser())
	session := newTestSession()

	for _, input := range []string{"", "   ", "\t"} {
		_, err := e.Turn(context.Background(), session, input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: expected ErrEmptyInput, got %v", input, err)
		}
	}
	if gw.narrations != 0 || gw.weaves != 0 {
		t.Error("empty input must not invoke the gateway")
	}
	if len(session.World.History) != 1 {
		t.Error("empty input must not consume a turn")
	}
}

func TestFailedTurnLeavesStateUntouched(t *testing.T) {
	gw := &fakeGateway{narrateErr: &gateway.GenerationError{Err: errors.New("timeout")}}
	e := New(gw, command.NewParser())
	session := newTestSession()
	historyBefore := append([]string(nil), session.World.History...)
	updatedBefore := session.LastUpdated

	_, err := e.Turn(context.Background(), session, "walk north")
	if err == nil {
		t.Fatal("expected turn failure")
	}
	if !gateway.IsRecoverable(err) {
		t.Errorf("expected recoverable error, got %v", err)
	}
	if len(session.World.History) != len(historyBefore) {
		t.Error("failed turn mutated history")
	}
	if len(session.MessageHistory) != 0 {
		t.Error("failed turn recorded exchanges")
	}
	if !session.LastUpdated.Equal(updatedBefore) {
		t.Error("failed turn bumped LastUpdated")
	}
}

func TestRepeatedFailuresLeaveHistoryUnchanged(t *testing.T) {
	gw := &fakeGateway{narrateErr: &gateway.GenerationError{Err: errors.New("timeout")}}
	e := New(gw, command.NewParser())
	session := newTestSession()

	for i := 0; i < 3; i++ {
		if _, err := e.Turn(context.Background(), session, "walk north"); err == nil {
			t.Fatal("expected turn failure")
		}
	}
	if len(session.World.History) != 1 {
		t.Errorf("history changed across retries: %d entries", len(session.World.History))
	}

	gw.narrateErr = nil
	gw.narrateResp = "You head north."
	if _, err := e.Turn(context.Background(), session, "walk north"); err != nil {
		t.Fatal(err)
	}
	if len(session.World.History) != 3 {
		t.Errorf("expected exactly one successful turn recorded, got %d entries", len(session.World.History))
	}
}

func TestMetaCommandTurn(t *testing.T) {
	gw := &fakeGateway{weaveResp: "Dark clouds roll in and the first drops fall."}
	e := New(gw, command.NewParser())
	session := newTestSession()

	resp, err := e.Turn(context.Background(), session, "*it starts raining*")
	if err != nil {
		t.Fatal(err)
	}
	if gw.weaves != 1 || gw.narrations != 0 {
		t.Errorf("expected one weave call, got weaves=%d narrations=%d", gw.weaves, gw.narrations)
	}
	if strings.Contains(resp, "*") {
		t.Error("narrative output references directive syntax")
	}
	if got := len(session.World.History); got != 3 {
		t.Fatalf("expected history to grow by 2, have %d entries", got)
	}
	if session.World.History[1] != "Story development: it starts raining" {
		t.Errorf("directive recorded with syntax: %q", session.World.History[1])
	}
}

func TestMentionedCharacterIsEmbodied(t *testing.T) {
	gw := &fakeGateway{
		narrateResp: "Vex grunts and hands over the manifest.",
		embodyResp:  `"Take it and go."`,
	}
	e := New(gw, command.NewParser())
	session := newTestSession()

	if _, err := e.Turn(context.Background(), session, "ask vex for the manifest"); err != nil {
		t.Fatal(err)
	}
	if gw.embodiments != 1 {
		t.Fatalf("expected one embodiment, got %d", gw.embodiments)
	}
	if !strings.Contains(gw.lastCharLine, "Take it and go.") {
		t.Errorf("character line not forwarded to narrator: %q", gw.lastCharLine)
	}

	memories := session.World.Character("Vex").Memories
	if len(memories) != 1 || !strings.Contains(memories[0], "ask vex") {
		t.Errorf("embodiment did not record a memory: %v", memories)
	}
}

func TestEmbodimentFailureLeavesNoMemory(t *testing.T) {
	gw := &fakeGateway{embodyErr: &gateway.GenerationError{Err: errors.New("timeout")}}
	e := New(gw, command.NewParser())
	session := newTestSession()

	if _, err := e.Turn(context.Background(), session, "talk to Vex"); err == nil {
		t.Fatal("expected failure")
	}
	if len(session.World.Character("Vex").Memories) != 0 {
		t.Error("failed turn mutated character memories")
	}
	if gw.narrations != 0 {
		t.Error("narration should not run after a failed embodiment")
	}
}

func TestUnmentionedCharacterNotEmbodied(t *testing.T) {
	gw := &fakeGateway{narrateResp: "The bay is quiet."}
	e := New(gw, command.NewParser())
	session := newTestSession()

	if _, err := e.Turn(context.Background(), session, "look around"); err != nil {
		t.Fatal(err)
	}
	if gw.embodiments != 0 {
		t.Error("no character was addressed; embodiment should not run")
	}
}
