package orchestrator

import "fmt"

// SequenceError reports an orchestrator call made outside the required
// Unconfigured -> Configured -> Planned -> Executed order. Out-of-order calls
// fail loudly; they never silently no-op.
type SequenceError struct {
	State State
	Call  string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("%s called in state %s", e.Call, e.State)
}

// PlanError reports a plan that does not match the configured channel set.
// The orchestrator stays Planned so a matching plan can still run.
type PlanError struct {
	ChannelID string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("plan references unknown channel: %s", e.ChannelID)
}

// StepError wraps an algorithm or substrate failure that occurred while
// executing one plan step. It is recorded against the offending channel and
// never aborts sibling channels.
type StepError struct {
	ChannelID string
	Op        Op
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s on channel %s failed: %v", e.Op, e.ChannelID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
