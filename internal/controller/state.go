// internal/controller/state.go
package controller

// State identifies the controller's position in the session lifecycle.
type State int

const (
	StateMainMenu State = iota
	StateScenarioCreation
	StateScenarioApproval
	StateStoryLoop
	StateErrorRecovery
	StateSavingAndExit
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateMainMenu:
		return "main_menu"
	case StateScenarioCreation:
		return "scenario_creation"
	case StateScenarioApproval:
		return "scenario_approval"
	case StateStoryLoop:
		return "story_loop"
	case StateErrorRecovery:
		return "error_recovery"
	case StateSavingAndExit:
		return "saving_and_exit"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
