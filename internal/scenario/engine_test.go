// internal/scenario/engine_test.go
package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/storyloom/internal/gateway"
	"github.com/user/storyloom/internal/types"
)

// fakeGateway drafts a world whose premise is the concatenation of every
// user exchange, so tests can verify accumulated context.
type fakeGateway struct {
	draftErr error
	drafts   int
}

func (f *fakeGateway) Narrate(ctx context.Context, world *types.StoryWorld, userInput, charLine string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeGateway) Embody(ctx context.Context, world *types.StoryWorld, ch *types.Character, situation string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeGateway) Weave(ctx context.Context, world *types.StoryWorld, directive string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeGateway) Draft(ctx context.Context, exchanges []types.Exchange) (*types.StoryWorld, error) {
	f.drafts++
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	var parts []string
	for _, ex := range exchanges {
		if ex.Role == "user" {
			parts = append(parts, ex.Content)
		}
	}
	world := types.NewStoryWorld()
	world.Premise = strings.Join(parts, " | ")
	world.Setting = "derived setting"
	world.AppendHistory("Story begins: " + world.Premise)
	return world, nil
}

func TestProposeThenRefineAccumulates(t *testing.T) {
	gw := &fakeGateway{}
	e := New(gw)
	ctx := context.Background()

	world, err := e.Propose(ctx, "A detective story in Victorian London")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(world.Premise, "Victorian London") {
		t.Errorf("premise missing concept: %q", world.Premise)
	}

	refined, err := e.Refine(ctx, "make the detective female")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(refined.Premise, "Victorian London") {
		t.Error("refinement erased the original concept")
	}
	if !strings.Contains(refined.Premise, "make the detective female") {
		t.Error("refinement feedback not applied")
	}
	if e.Candidate() != refined {
		t.Error("candidate should be the latest draft")
	}
}

func TestRetryPreservesContext(t *testing.T) {
	gw := &fakeGateway{draftErr: &gateway.GenerationError{Err: errors.New("timeout")}}
	e := New(gw)
	ctx := context.Background()

	if _, err := e.Propose(ctx, "a ghost story"); err == nil {
		t.Fatal("expected draft failure")
	}
	if e.Candidate() != nil {
		t.Error("failed draft must not install a candidate")
	}

	gw.draftErr = nil
	world, err := e.Retry(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(world.Premise, "a ghost story") {
		t.Error("retry lost the accumulated concept")
	}
	if gw.drafts != 2 {
		t.Errorf("expected 2 draft calls, got %d", gw.drafts)
	}
}

func TestExchangesAreCopied(t *testing.T) {
	e := New(&fakeGateway{})
	if _, err := e.Propose(context.Background(), "a western"); err != nil {
		t.Fatal(err)
	}

	got := e.Exchanges()
	if len(got) != 2 {
		t.Fatalf("expected concept + proposal exchanges, got %d", len(got))
	}
	got[0].Content = "mutated"
	if e.Exchanges()[0].Content == "mutated" {
		t.Error("Exchanges must return a copy")
	}
}

func TestResetDiscardsWork(t *testing.T) {
	e := New(&fakeGateway{})
	if _, err := e.Propose(context.Background(), "a space opera"); err != nil {
		t.Fatal(err)
	}

	e.Reset()
	if e.Candidate() != nil || len(e.Exchanges()) != 0 {
		t.Error("Reset should discard candidate and context")
	}

	world, err := e.Propose(context.Background(), "a new idea")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(world.Premise, "space opera") {
		t.Error("abandoned context leaked into the next scenario")
	}
}
