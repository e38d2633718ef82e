// Package vessel implements the processing strategy for vessel-tagged
// channels: automatic or manual thresholding with explicit polarity, speck
// removal, and skeleton-based diameter estimation per vessel structure.
package vessel

import (
	"context"
	"fmt"

	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/config"
	"github.com/aforsythe/HughesLabTools/internal/logger"
	"github.com/aforsythe/HughesLabTools/internal/processing/regions"
	"github.com/aforsythe/HughesLabTools/internal/processing/threshold"
)

const component = "vessel-strategy"

type Strategy struct {
	log logger.Logger
}

func New(log logger.Logger) *Strategy {
	return &Strategy{log: log}
}

func (s *Strategy) Type() channel.ImageType {
	return channel.Vessel
}

// Threshold computes the threshold level (configured automatic method, or
// the manual value) and derives the binary mask with the configured
// polarity. Both the level and the mask are stored on the channel; the
// source substrate stays untouched.
func (s *Strategy) Threshold(ctx context.Context, ch *channel.Channel, opts *config.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	level, mask, err := threshold.MaskFromSource(ch.Source(), opts)
	if err != nil {
		return err
	}

	ch.SetThreshold(level)
	ch.SetMask(mask)

	s.log.Debug(component, "thresholded channel", map[string]interface{}{
		"channel":        ch.ID,
		"threshold":      level,
		"method":         opts.ThresholdMethod,
		"darkBackground": opts.DarkBackground,
	})
	return nil
}

// Segment thresholds and then removes components below the minimum region
// size, keeping every structure large enough to be a vessel rather than a
// noise speck.
func (s *Strategy) Segment(ctx context.Context, ch *channel.Channel, opts *config.Options) error {
	if err := s.Threshold(ctx, ch, opts); err != nil {
		return err
	}

	if opts.MinRegionSize <= 0 {
		return nil
	}

	labelMap, err := regions.Components(ch.Mask)
	if err != nil {
		return err
	}
	defer labelMap.Close()

	cleaned, err := ch.Mask.NewDerived()
	if err != nil {
		return err
	}

	cleanedMat := cleaned.Inner()
	keep := make(map[int]bool)
	for _, region := range labelMap.Regions() {
		if region.Area >= opts.MinRegionSize {
			keep[region.Label] = true
		}
	}

	rows, cols := ch.Mask.Rows(), ch.Mask.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if keep[labelMap.LabelAt(y, x)] {
				cleanedMat.SetUCharAt(y, x, 255)
			}
		}
	}

	ch.SetMask(cleaned)
	return nil
}

// Measure estimates per-structure vessel diameters over the mask skeleton
// and records them in structure discovery order as vesselDiameter1..N.
func (s *Strategy) Measure(ctx context.Context, ch *channel.Channel, opts *config.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !opts.MeasureDiameter {
		return nil
	}

	if ch.Mask == nil {
		return fmt.Errorf("channel %s has no mask; threshold must run first", ch.ID)
	}

	diameters, err := regions.Diameters(ch.Mask, opts.MinRegionSize)
	if err != nil {
		if err == regions.ErrEmptyMask {
			return fmt.Errorf("diameter on channel %s: %w", ch.ID, regions.ErrEmptyMask)
		}
		return err
	}

	for i, diameter := range diameters {
		name := fmt.Sprintf("vesselDiameter%d", i+1)
		if err := ch.Record(name, diameter); err != nil {
			return err
		}
	}

	s.log.Debug(component, "measured diameters", map[string]interface{}{
		"channel":    ch.ID,
		"structures": len(diameters),
	})
	return nil
}
