// Package algorithms defines the per-image-type processing strategy and the
// registry the orchestrator dispatches through. Each strategy covers the
// three plan operations; which of them actually run for a channel is decided
// by the processing plan, not by the strategy.
package algorithms

import (
	"context"

	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/config"
)

// Strategy implements the type-specific algorithms for one ImageType.
// Operations mutate channel state (threshold, mask, measurements) and must
// never modify the channel's source substrate.
type Strategy interface {
	Type() channel.ImageType
	Segment(ctx context.Context, ch *channel.Channel, opts *config.Options) error
	Threshold(ctx context.Context, ch *channel.Channel, opts *config.Options) error
	Measure(ctx context.Context, ch *channel.Channel, opts *config.Options) error
}
