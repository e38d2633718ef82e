// Package orchestrator turns a validated options snapshot into executed,
// observable results. It owns the typed channel set for the duration of a
// run, derives the processing plan, dispatches each step to the strategy
// matching the channel's type, and aggregates per-channel outcomes with
// partial-failure isolation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aforsythe/HughesLabTools/internal/algorithms"
	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/config"
	"github.com/aforsythe/HughesLabTools/internal/logger"
	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

const component = "orchestrator"

// State tracks the one-directional per-run lifecycle.
type State int

const (
	Unconfigured State = iota
	Configured
	Planned
	Executed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Planned:
		return "planned"
	case Executed:
		return "executed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Orchestrator struct {
	mu       sync.Mutex
	state    State
	opts     *config.Options
	channels []*channel.Channel
	registry *algorithms.Registry
	log      logger.Logger
}

func New(registry *algorithms.Registry, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		state:    Unconfigured,
		registry: registry,
		log:      log,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Channels returns the materialized channel set in declaration order.
func (o *Orchestrator) Channels() []*channel.Channel {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*channel.Channel, len(o.channels))
	copy(out, o.channels)
	return out
}

// Configure validates the options snapshot and materializes one typed
// channel per declared (name, color, source) tuple. On any validation
// failure nothing is mutated: the orchestrator stays Unconfigured and the
// previous channel set, if any, is untouched. Sources are given in
// declaration order, parallel to the type names; the channels take exclusive
// ownership of them on success.
func (o *Orchestrator) Configure(opts *config.Options, sources []*substrate.Mat) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := opts.Validate(); err != nil {
		return err
	}

	if len(sources) != opts.NumTypes {
		return &config.ConfigError{
			Field:   "sources",
			Message: fmt.Sprintf("got %d substrates for %d declared types", len(sources), opts.NumTypes),
		}
	}

	// Resolve everything fallibly before touching orchestrator state.
	types := make([]channel.ImageType, opts.NumTypes)
	for i, name := range opts.TypeNames {
		imageType, err := channel.ParseImageType(name)
		if err != nil {
			return &config.ConfigError{Field: "typeNames", Message: err.Error()}
		}
		types[i] = imageType
	}
	for i, source := range sources {
		if err := substrate.ValidateForOperation(source, "configure"); err != nil {
			return &config.ConfigError{
				Field:   "sources",
				Message: fmt.Sprintf("substrate %d: %v", i, err),
			}
		}
	}

	channels := make([]*channel.Channel, opts.NumTypes)
	for i := range types {
		channels[i] = channel.New(opts.TypeNames[i], opts.TypeColors[i], types[i], sources[i])
	}

	o.opts = opts.Clone()
	o.channels = channels
	o.state = Configured

	o.log.Info(component, "configured", map[string]interface{}{
		"numTypes": opts.NumTypes,
		"names":    opts.TypeNames,
	})
	return nil
}

// BuildPlan derives the execution plan from the configured snapshot. Step
// order is deterministic: channels in declaration order; per channel a
// threshold step (if selected), then a segment step (if selected), then a
// measure step (if any measurement is selected). Threshold precedes segment
// so the more specific segmentation result is what measurement sees when
// both are requested.
func (o *Orchestrator) BuildPlan() (*Plan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Configured {
		return nil, &SequenceError{State: o.state, Call: "BuildPlan"}
	}

	var steps []Step
	for _, ch := range o.channels {
		if o.opts.Threshold {
			steps = append(steps, Step{ChannelID: ch.ID, Op: OpThreshold})
		}
		if o.opts.Segment {
			steps = append(steps, Step{ChannelID: ch.ID, Op: OpSegment})
		}
		if o.opts.MeasureSelected() {
			steps = append(steps, Step{ChannelID: ch.ID, Op: OpMeasure})
		}
	}

	o.state = Planned
	return &Plan{steps: steps}, nil
}

// Run executes the plan. Steps touching the same channel run in order on one
// worker; distinct channels run in parallel on a bounded pool and the report
// is assembled only after every worker has joined. A step failure is
// recorded against its channel and execution continues elsewhere; a context
// cancellation marks all unexecuted work Skipped, never Failed.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan) (*RunReport, error) {
	o.mu.Lock()
	if o.state != Planned {
		state := o.state
		o.mu.Unlock()
		return nil, &SequenceError{State: state, Call: "Run"}
	}

	channels := make([]*channel.Channel, len(o.channels))
	copy(channels, o.channels)

	byID := make(map[string]*channel.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	// Group steps per channel, preserving intra-channel order. The plan must
	// match the configured channel set before the state transition commits.
	stepsFor := make(map[string][]Step, len(channels))
	for _, step := range plan.Steps() {
		if _, known := byID[step.ChannelID]; !known {
			o.mu.Unlock()
			return nil, &PlanError{ChannelID: step.ChannelID}
		}
		stepsFor[step.ChannelID] = append(stepsFor[step.ChannelID], step)
	}

	o.state = Executed
	opts := o.opts
	o.mu.Unlock()

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	outcomes := make([]channelOutcome, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(idx int, ch *channel.Channel) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[idx] = o.runChannel(ctx, ch, stepsFor[ch.ID], opts)
		}(i, ch)
	}
	wg.Wait()

	report := &RunReport{
		Channels:  make([]ChannelReport, len(channels)),
		Cancelled: ctx.Err() != nil,
	}
	for i, ch := range channels {
		cr := ChannelReport{
			ChannelID:    ch.ID,
			Name:         ch.Name,
			Type:         ch.Type(),
			Status:       outcomes[i].status,
			Threshold:    ch.Threshold,
			Measurements: ch.Measurements(),
			Err:          outcomes[i].err,
		}
		report.Channels[i] = cr
		if cr.Err != nil {
			report.Errors = append(report.Errors, cr.Err)
		}
	}

	o.log.Info(component, "run complete", map[string]interface{}{
		"channels":  len(report.Channels),
		"succeeded": report.Succeeded(),
		"errors":    len(report.Errors),
		"cancelled": report.Cancelled,
	})
	return report, nil
}

type channelOutcome struct {
	status Status
	err    *StepError
}

// runChannel executes one channel's step group sequentially. The channel's
// mutable state is owned exclusively by this call for its duration.
func (o *Orchestrator) runChannel(ctx context.Context, ch *channel.Channel, steps []Step, opts *config.Options) channelOutcome {
	executed := 0
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}

		strategy, err := o.registry.ForType(ch.Type())
		if err != nil {
			return channelOutcome{status: StatusFailed, err: &StepError{ChannelID: ch.ID, Op: step.Op, Err: err}}
		}

		switch step.Op {
		case OpSegment:
			err = strategy.Segment(ctx, ch, opts)
		case OpThreshold:
			err = strategy.Threshold(ctx, ch, opts)
		case OpMeasure:
			err = strategy.Measure(ctx, ch, opts)
		default:
			err = fmt.Errorf("unknown operation: %s", step.Op)
		}

		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				// Cancellation surfaced through the strategy, not a failure.
				break
			}
			stepErr := &StepError{ChannelID: ch.ID, Op: step.Op, Err: err}
			o.log.Warning(component, "step failed", map[string]interface{}{
				"channel": ch.ID,
				"op":      step.Op.String(),
				"error":   err.Error(),
			})
			return channelOutcome{status: StatusFailed, err: stepErr}
		}
		executed++
	}

	if executed < len(steps) {
		return channelOutcome{status: StatusSkipped}
	}
	return channelOutcome{status: StatusSuccess}
}

// Reset tears the run down: channel resources are released and the
// orchestrator returns to Unconfigured so a fresh snapshot can start the
// next cycle.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, ch := range o.channels {
		ch.Close()
	}
	o.channels = nil
	o.opts = nil
	o.state = Unconfigured
}
