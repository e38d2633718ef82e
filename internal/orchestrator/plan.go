package orchestrator

import "fmt"

// Op is one plan operation.
type Op int

const (
	OpSegment Op = iota
	OpThreshold
	OpMeasure
)

func (op Op) String() string {
	switch op {
	case OpSegment:
		return "segment"
	case OpThreshold:
		return "threshold"
	case OpMeasure:
		return "measure"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Step binds one operation to one channel.
type Step struct {
	ChannelID string
	Op        Op
}

// Plan is the validated, immutable execution order for one run: channels in
// declaration order, and within a channel any threshold/segment steps before
// measure steps, since measurement depends on the mask they produce.
type Plan struct {
	steps []Step
}

// Steps returns a copy of the ordered step list.
func (p *Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Len reports the number of steps.
func (p *Plan) Len() int {
	return len(p.steps)
}
