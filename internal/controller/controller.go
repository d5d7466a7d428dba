// internal/controller/controller.go
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/user/storyloom/internal/gateway"
	"github.com/user/storyloom/internal/loop"
	"github.com/user/storyloom/internal/scenario"
	"github.com/user/storyloom/internal/store"
	"github.com/user/storyloom/internal/types"
)

// Controller is the top-level session state machine. It owns the in-memory
// session exclusively, routes user input to the active engine, and persists
// at defined checkpoints. All engine and store failures are caught here;
// nothing below this boundary terminates the process.
type Controller struct {
	store    store.SessionStore
	scenario *scenario.Engine
	loop     *loop.Engine
	in       *Prompter
	out      io.Writer

	saveTimeout time.Duration

	state    State
	session  *types.StorySession
	refining bool

	// Set when entering error recovery.
	failedErr   error
	retry       func(ctx context.Context) State
	resumeState State

	// Set when entering the aborted state.
	abortErr error
}

// New wires a controller from its collaborators. saveTimeout bounds the
// best-effort persist on the exit path.
func New(st store.SessionStore, sc *scenario.Engine, lp *loop.Engine, in *Prompter, out io.Writer, saveTimeout time.Duration) *Controller {
	return &Controller{
		store:       st,
		scenario:    sc,
		loop:        lp,
		in:          in,
		out:         out,
		saveTimeout: saveTimeout,
		state:       StateMainMenu,
	}
}

// State reports the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Session returns the active in-memory session, or nil.
func (c *Controller) Session() *types.StorySession {
	return c.session
}

// Run drives the state machine until a terminal state is reached. A
// cancelled context (or exhausted input) at any prompt takes the best-effort
// save-and-exit path.
func (c *Controller) Run(ctx context.Context) error {
	defer c.in.Close()

	fmt.Fprintln(c.out, "Welcome to storyloom.")
	for {
		slog.Debug("controller state", "state", c.state)
		switch c.state {
		case StateMainMenu:
			c.state = c.mainMenu(ctx)
		case StateScenarioCreation:
			c.state = c.scenarioCreation(ctx)
		case StateScenarioApproval:
			c.state = c.scenarioApproval(ctx)
		case StateStoryLoop:
			c.state = c.storyLoop(ctx)
		case StateErrorRecovery:
			c.state = c.errorRecovery(ctx)
		case StateSavingAndExit:
			c.saveAndExit()
			return nil
		case StateAborted:
			return fmt.Errorf("session aborted: %w", c.abortErr)
		default:
			return fmt.Errorf("unknown controller state %d", c.state)
		}
	}
}

func (c *Controller) mainMenu(ctx context.Context) State {
	fmt.Fprintln(c.out, "\n== Menu ==")
	fmt.Fprintln(c.out, "  new     create a new story scenario")
	fmt.Fprintln(c.out, "  load    continue a saved session")
	fmt.Fprintln(c.out, "  list    list saved sessions")
	fmt.Fprintln(c.out, "  delete  delete a saved session")
	fmt.Fprintln(c.out, "  exit    quit")

	choice, err := c.in.Line(ctx, "menu> ")
	if err != nil {
		return StateSavingAndExit
	}

	switch strings.ToLower(choice) {
	case "new":
		c.scenario.Reset()
		c.refining = false
		return StateScenarioCreation
	case "load":
		return c.loadSession(ctx)
	case "list":
		c.listSessions(ctx)
		return StateMainMenu
	case "delete":
		c.deleteSession(ctx)
		return StateMainMenu
	case "exit", "quit":
		return StateSavingAndExit
	default:
		fmt.Fprintf(c.out, "Unknown choice %q.\n", choice)
		return StateMainMenu
	}
}

func (c *Controller) loadSession(ctx context.Context) State {
	summaries := c.listSessions(ctx)
	if len(summaries) == 0 {
		return StateMainMenu
	}

	id, err := c.in.Line(ctx, "session id> ")
	if err != nil {
		return StateSavingAndExit
	}
	if id == "" {
		return StateMainMenu
	}

	session, err := c.store.Load(ctx, c.resolveID(summaries, id))
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(c.out, "No session %q.\n", id)
		return StateMainMenu
	case store.IsCorrupt(err):
		// Never substitute a default world for a corrupt record.
		fmt.Fprintf(c.out, "Session record is corrupt and was left untouched: %v\n", err)
		slog.Error("corrupt session record", "session_id", id, "error", err)
		return StateMainMenu
	default:
		fmt.Fprintf(c.out, "Failed to load session: %v\n", err)
		return StateMainMenu
	}

	c.session = session
	fmt.Fprintf(c.out, "Loaded %q.\n", session.DisplayName())
	c.showStatus()
	return StateStoryLoop
}

// resolveID allows picking a session by its short ID prefix.
func (c *Controller) resolveID(summaries []types.SessionSummary, input string) types.SessionID {
	for _, s := range summaries {
		if string(s.ID) == input || strings.HasPrefix(string(s.ID), input) {
			return s.ID
		}
	}
	return types.SessionID(input)
}

func (c *Controller) listSessions(ctx context.Context) []types.SessionSummary {
	summaries, err := c.store.List(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Failed to list sessions: %v\n", err)
		return nil
	}
	if len(summaries) == 0 {
		fmt.Fprintln(c.out, "No saved sessions.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCHARACTERS\tEVENTS\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			s.ID.Short(), s.Title, s.Characters, s.HistoryLen,
			s.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return summaries
}

func (c *Controller) deleteSession(ctx context.Context) {
	summaries := c.listSessions(ctx)
	if len(summaries) == 0 {
		return
	}
	id, err := c.in.Line(ctx, "delete id> ")
	if err != nil || id == "" {
		return
	}
	confirm, err := c.in.Line(ctx, "really delete? (y/N) ")
	if err != nil || !strings.EqualFold(confirm, "y") {
		fmt.Fprintln(c.out, "Deletion cancelled.")
		return
	}
	if err := c.store.Delete(ctx, c.resolveID(summaries, id)); err != nil {
		fmt.Fprintf(c.out, "Delete failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Session deleted.")
}

func (c *Controller) scenarioCreation(ctx context.Context) State {
	var (
		world *types.StoryWorld
		err   error
	)
	if c.refining {
		feedback, lineErr := c.in.Line(ctx, "what should change? ")
		if lineErr != nil {
			return StateSavingAndExit
		}
		if feedback == "" {
			return StateScenarioApproval
		}
		fmt.Fprintln(c.out, "Refining your scenario...")
		world, err = c.scenario.Refine(ctx, feedback)
	} else {
		concept, lineErr := c.in.Line(ctx, "story concept> ")
		if lineErr != nil {
			return StateSavingAndExit
		}
		if concept == "" {
			fmt.Fprintln(c.out, "Story concept cannot be empty.")
			return StateMainMenu
		}
		fmt.Fprintln(c.out, "Creating your story world...")
		world, err = c.scenario.Propose(ctx, concept)
	}

	if err != nil {
		// Accumulated dialogue context survives in the engine, so a retry
		// re-sends exactly what failed.
		return c.toRecovery(err, StateScenarioCreation, func(ctx context.Context) State {
			retried, retryErr := c.scenario.Retry(ctx)
			if retryErr != nil {
				return c.toRecovery(retryErr, StateScenarioCreation, nil)
			}
			c.displayScenario(retried)
			return StateScenarioApproval
		})
	}

	c.displayScenario(world)
	return StateScenarioApproval
}

func (c *Controller) displayScenario(world *types.StoryWorld) {
	fmt.Fprintln(c.out, "\n== Proposed scenario ==")
	fmt.Fprintf(c.out, "Premise: %s\n", world.Premise)
	fmt.Fprintf(c.out, "Setting: %s\n", world.Setting)
	fmt.Fprintf(c.out, "Conflicts: %s\n", strings.Join(world.Conflicts, "; "))
	var names []string
	for name := range world.Characters {
		names = append(names, name)
	}
	fmt.Fprintf(c.out, "Characters: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(c.out, "Opening scene: %s - %s\n",
		world.CurrentScene.Location, world.CurrentScene.Description)
}

func (c *Controller) scenarioApproval(ctx context.Context) State {
	choice, err := c.in.Line(ctx, "approve / refine / abandon? ")
	if err != nil {
		return StateSavingAndExit
	}

	switch strings.ToLower(choice) {
	case "approve", "a", "yes", "y":
		return c.approveScenario(ctx)
	case "refine", "r":
		c.refining = true
		return StateScenarioCreation
	case "abandon":
		c.scenario.Reset()
		fmt.Fprintln(c.out, "Scenario discarded.")
		return StateMainMenu
	default:
		fmt.Fprintln(c.out, "Please answer approve, refine, or abandon.")
		return StateScenarioApproval
	}
}

// approveScenario creates the session from the approved candidate and
// persists it before the story loop is ever entered. A failed save keeps
// the controller out of the loop.
func (c *Controller) approveScenario(ctx context.Context) State {
	world := c.scenario.Candidate()
	if world == nil {
		fmt.Fprintln(c.out, "No scenario to approve yet.")
		return StateMainMenu
	}
	if err := world.Validate(); err != nil {
		fmt.Fprintf(c.out, "Scenario is inconsistent: %v\n", err)
		c.refining = true
		return StateScenarioCreation
	}

	session := types.NewSession(world)
	session.MessageHistory = c.scenario.Exchanges()

	if err := c.store.Save(ctx, session); err != nil {
		if store.IsCorrupt(err) {
			c.abortErr = err
			return StateAborted
		}
		fmt.Fprintf(c.out, "Could not persist the new session: %v\n", err)
		return StateScenarioApproval
	}

	c.session = session
	c.scenario.Reset()
	slog.Info("session created", "session_id", session.ID)
	fmt.Fprintln(c.out, "Scenario approved. The story begins.")
	fmt.Fprintln(c.out, "Type your actions, *meta-commands* to steer the story, or quit to save and exit.")
	c.showStatus()
	return StateStoryLoop
}

func (c *Controller) storyLoop(ctx context.Context) State {
	input, err := c.in.Line(ctx, "\n> ")
	if err != nil {
		return StateSavingAndExit
	}

	switch strings.ToLower(input) {
	case "":
		// Rejected locally: no turn consumed, no gateway call.
		return StateStoryLoop
	case "quit", "exit":
		return StateSavingAndExit
	case "save":
		if state, ok := c.checkpoint(ctx); !ok {
			return state
		}
		fmt.Fprintln(c.out, "Session saved.")
		return StateStoryLoop
	case "status":
		c.showStatus()
		return StateStoryLoop
	case "help", "?":
		c.showHelp()
		return StateStoryLoop
	}

	return c.runTurn(ctx, input)
}

func (c *Controller) runTurn(ctx context.Context, input string) State {
	response, err := c.loop.Turn(ctx, c.session, input)
	if err != nil {
		if errors.Is(err, loop.ErrEmptyInput) {
			return StateStoryLoop
		}
		if ctx.Err() != nil {
			return StateSavingAndExit
		}
		return c.toRecovery(err, StateStoryLoop, func(ctx context.Context) State {
			return c.runTurn(ctx, input)
		})
	}

	fmt.Fprintf(c.out, "\n%s\n", response)

	// The displayed line must be durable before the next prompt is shown.
	if state, ok := c.checkpoint(ctx); !ok {
		return state
	}
	return StateStoryLoop
}

// checkpoint persists the active session. Mid-write corruption of the active
// session is unrecoverable and aborts with a diagnostic; other write failures
// are reported as data-loss risk and the session continues.
func (c *Controller) checkpoint(ctx context.Context) (State, bool) {
	if err := c.store.Save(ctx, c.session); err != nil {
		if store.IsCorrupt(err) {
			c.abortErr = err
			return StateAborted, false
		}
		slog.Error("checkpoint failed", "session_id", c.session.ID, "error", err)
		fmt.Fprintf(c.out, "Warning: saving failed, recent turns are at risk: %v\n", err)
	}
	return StateStoryLoop, true
}

// toRecovery records the failure and pending retry, then enters recovery.
func (c *Controller) toRecovery(err error, resume State, retry func(ctx context.Context) State) State {
	c.failedErr = err
	c.resumeState = resume
	if retry != nil {
		c.retry = retry
	}
	slog.Warn("recoverable failure", "error", err, "resume_state", resume)
	return StateErrorRecovery
}

func (c *Controller) errorRecovery(ctx context.Context) State {
	fmt.Fprintf(c.out, "\nGeneration failed: %v\n", c.failedErr)
	if gateway.IsTransient(c.failedErr) {
		fmt.Fprintln(c.out, "This looks temporary; retrying may succeed.")
	}

	choice, err := c.in.Line(ctx, "retry / continue / save? ")
	if err != nil {
		return StateSavingAndExit
	}

	switch strings.ToLower(choice) {
	case "retry", "r":
		// Resubmit the same input unchanged; no automatic retry exists
		// outside this explicit user choice.
		if c.retry == nil {
			return c.resumeState
		}
		return c.retry(ctx)
	case "continue", "c":
		// Discard the failed input and await new input.
		c.retry = nil
		c.failedErr = nil
		return c.resumeState
	case "save", "save-and-quit", "s", "q":
		return StateSavingAndExit
	default:
		fmt.Fprintln(c.out, "Please answer retry, continue, or save.")
		return StateErrorRecovery
	}
}

// saveAndExit makes one best-effort attempt to persist the session, bounded
// by the save timeout so exit never hangs on I/O. Failures are reported,
// never retried.
func (c *Controller) saveAndExit() {
	if c.session == nil {
		fmt.Fprintln(c.out, "Goodbye.")
		return
	}

	// The run context may already be cancelled; the save gets its own bounded
	// one. The write runs on its own goroutine so a wedged backend cannot
	// hold up exit past the timeout.
	saveCtx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.store.Save(saveCtx, c.session)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-saveCtx.Done():
		err = fmt.Errorf("save timed out after %s: %w", c.saveTimeout, saveCtx.Err())
	}

	if err != nil {
		slog.Error("exit save failed", "session_id", c.session.ID, "error", err)
		fmt.Fprintf(c.out, "WARNING: could not save the session, recent progress may be lost: %v\n", err)
	} else {
		fmt.Fprintf(c.out, "Session saved. Resume with id %s.\n", c.session.ID.Short())
	}
	fmt.Fprintln(c.out, "Goodbye.")
}

func (c *Controller) showStatus() {
	world := c.session.World
	fmt.Fprintln(c.out, "\n== Current story state ==")
	fmt.Fprintf(c.out, "Location: %s\n", world.CurrentScene.Location)
	fmt.Fprintf(c.out, "Atmosphere: %s\n", world.CurrentScene.Atmosphere)
	present := "you are alone"
	if len(world.CurrentScene.ActiveCharacters) > 0 {
		present = strings.Join(world.CurrentScene.ActiveCharacters, ", ")
	}
	fmt.Fprintf(c.out, "Present: %s\n", present)
	fmt.Fprintln(c.out, "Recent events:")
	for _, entry := range world.RecentHistory(3) {
		fmt.Fprintf(c.out, "  %s\n", entry)
	}
}

func (c *Controller) showHelp() {
	fmt.Fprintln(c.out, "\nRegular input  describe your character's actions or speech")
	fmt.Fprintln(c.out, "*command*      steer the story directly, e.g. *it starts raining*")
	fmt.Fprintln(c.out, "save           save the session and continue")
	fmt.Fprintln(c.out, "status         show the current story state")
	fmt.Fprintln(c.out, "quit           save and exit")
}
