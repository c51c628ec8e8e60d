package lifecycle

import (
	"errors"
	"fmt"

	"github.com/julianstephens/phaseplan/internal/constants"
)

// ErrInvalidTransition is returned when a workflow step is attempted from a
// state that does not allow it.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// LoadMode selects how a recurring load change propagates.
type LoadMode int

const (
	// LoadForward applies the new hours to future occurrences only.
	LoadForward LoadMode = iota
	// LoadForwardAndBack regenerates the whole series with the new hours.
	LoadForwardAndBack
)

func (m LoadMode) String() string {
	if m == LoadForwardAndBack {
		return "both"
	}
	return "forward"
}

// ParseLoadMode accepts "forward" or "both".
func ParseLoadMode(s string) (LoadMode, error) {
	switch s {
	case "forward", "":
		return LoadForward, nil
	case "both", "forward-and-back":
		return LoadForwardAndBack, nil
	}
	return LoadForward, fmt.Errorf("unknown load mode %q (want forward or both)", s)
}

var stateNames = map[constants.SessionState]string{
	constants.StateIdle:                  "idle",
	constants.StateConfiguringRecurrence: "configuringRecurrence",
	constants.StateConfirmingOverwrite:   "confirmingOverwrite",
	constants.StateEditingLoad:           "editingLoad",
	constants.StateSplitting:             "splitting",
}

// Workflow is the explicit state of a user-facing editing session. Work
// states are entered from idle; confirmingOverwrite parks a configuring or
// splitting session until it is resumed or cancelled.
type Workflow struct {
	state    constants.SessionState
	resume   constants.SessionState
	loadMode LoadMode
}

func NewWorkflow() *Workflow {
	return &Workflow{state: constants.StateIdle}
}

func (w *Workflow) State() constants.SessionState {
	return w.state
}

// LoadMode is only meaningful while editing load.
func (w *Workflow) LoadMode() LoadMode {
	return w.loadMode
}

func (w *Workflow) String() string {
	if w.state == constants.StateEditingLoad {
		return fmt.Sprintf("editingLoad{%s}", w.loadMode)
	}
	return stateNames[w.state]
}

// Begin enters a work state. From confirmingOverwrite it resumes the parked
// state when the same state is requested again.
func (w *Workflow) Begin(s constants.SessionState) error {
	switch s {
	case constants.StateConfiguringRecurrence, constants.StateSplitting, constants.StateEditingLoad:
	default:
		return fmt.Errorf("%w: %s is not a work state", ErrInvalidTransition, stateNames[s])
	}

	if w.state == constants.StateConfirmingOverwrite && w.resume == s {
		w.state = s
		return nil
	}
	if w.state != constants.StateIdle {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w, stateNames[s])
	}
	w.state = s
	return nil
}

// BeginEditLoad enters editingLoad with the given propagation mode.
func (w *Workflow) BeginEditLoad(mode LoadMode) error {
	if err := w.Begin(constants.StateEditingLoad); err != nil {
		return err
	}
	w.loadMode = mode
	return nil
}

// AwaitConfirmation parks the current configuring or splitting session.
func (w *Workflow) AwaitConfirmation() error {
	if w.state != constants.StateConfiguringRecurrence && w.state != constants.StateSplitting {
		return fmt.Errorf("%w: %s -> confirmingOverwrite", ErrInvalidTransition, w)
	}
	w.resume = w.state
	w.state = constants.StateConfirmingOverwrite
	return nil
}

// Done returns to idle after a work state completes or fails. A parked
// confirmation is left in place.
func (w *Workflow) Done() {
	if w.state == constants.StateConfirmingOverwrite {
		return
	}
	w.Cancel()
}

// Cancel returns to idle unconditionally.
func (w *Workflow) Cancel() {
	w.state = constants.StateIdle
	w.resume = constants.StateIdle
	w.loadMode = LoadForward
}
