package orchestrator

import (
	"github.com/aforsythe/HughesLabTools/internal/channel"
)

// Status is the final outcome of one channel in a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ChannelReport is the per-channel slice of a RunReport. Measurements
// recorded before a failure are retained; nothing processed successfully is
// dropped because a later step failed.
type ChannelReport struct {
	ChannelID    string
	Name         string
	Type         channel.ImageType
	Status       Status
	Threshold    *float64
	Measurements []channel.Measurement
	Err          *StepError
}

// RunReport aggregates the outcome of one executed plan. Channels appear in
// declaration order; Errors lists every StepError in that same order.
type RunReport struct {
	Channels  []ChannelReport
	Errors    []*StepError
	Cancelled bool
}

// Channel looks up one channel's report by id.
func (r *RunReport) Channel(id string) (ChannelReport, bool) {
	for _, cr := range r.Channels {
		if cr.ChannelID == id {
			return cr, true
		}
	}
	return ChannelReport{}, false
}

// Succeeded counts channels that completed every step.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, cr := range r.Channels {
		if cr.Status == StatusSuccess {
			n++
		}
	}
	return n
}
