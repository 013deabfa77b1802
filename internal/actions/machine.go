package actions

import "fmt"

// State is a stage in the life of a multi-step operation
type State int

const (
	// StateIdle is an operation that has not started
	StateIdle State = iota
	// StateRunning is an operation executing a step
	StateRunning
	// StatePaused is an operation waiting on the user, usually to resolve a conflict
	StatePaused
	// StateDone is an operation that completed
	StateDone
	// StateAborted is an operation that was rolled back or halted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDone:
		return "done"
	default:
		return "aborted"
	}
}

// Machine tracks Idle -> Running(step) -> Paused(reason) -> Done | Aborted
// for cascade, merge and split
type Machine struct {
	state  State
	step   string
	reason string
}

// NewMachine creates an idle machine
func NewMachine() *Machine {
	return &Machine{}
}

// NewPausedMachine creates a machine for an operation paused in an earlier invocation
func NewPausedMachine(step, reason string) *Machine {
	return &Machine{state: StatePaused, step: step, reason: reason}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Step returns the step being run, or the step that paused or failed
func (m *Machine) Step() string {
	return m.step
}

// Reason returns why the machine paused or aborted
func (m *Machine) Reason() string {
	return m.reason
}

// Run moves to step. Valid from idle, running and paused.
func (m *Machine) Run(step string) error {
	switch m.state {
	case StateIdle, StateRunning, StatePaused:
		m.state, m.step, m.reason = StateRunning, step, ""
		return nil
	default:
		return m.invalid("run " + step)
	}
}

// Pause stops at the current step until the operation is continued
func (m *Machine) Pause(reason string) error {
	if m.state != StateRunning {
		return m.invalid("pause")
	}
	m.state, m.reason = StatePaused, reason
	return nil
}

// Finish marks the operation complete
func (m *Machine) Finish() error {
	if m.state != StateRunning && m.state != StateIdle {
		return m.invalid("finish")
	}
	m.state = StateDone
	return nil
}

// Abort ends the operation at the current step
func (m *Machine) Abort(reason string) error {
	if m.state == StateDone || m.state == StateAborted {
		return m.invalid("abort")
	}
	m.state, m.reason = StateAborted, reason
	return nil
}

func (m *Machine) invalid(transition string) error {
	return fmt.Errorf("cannot %s: operation is %s", transition, m.state)
}

// mustTransition panics when a flow requests an invalid transition
func mustTransition(err error) {
	if err != nil {
		panic(err)
	}
}
