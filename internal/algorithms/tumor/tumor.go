// Package tumor implements the processing strategy for tumor-tagged
// channels: intensity-based segmentation of the dominant tumor mass, mean
// grey-level measurement over the segmented foreground, and circularity of
// the tumor outline.
package tumor

import (
	"context"
	"fmt"

	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/config"
	"github.com/aforsythe/HughesLabTools/internal/logger"
	"github.com/aforsythe/HughesLabTools/internal/processing/regions"
	"github.com/aforsythe/HughesLabTools/internal/processing/threshold"
	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

const component = "tumor-strategy"

type Strategy struct {
	log logger.Logger
}

func New(log logger.Logger) *Strategy {
	return &Strategy{log: log}
}

func (s *Strategy) Type() channel.ImageType {
	return channel.Tumor
}

// Segment isolates the dominant tumor mass: threshold the source with the
// configured method, label the candidate components, discard those below the
// minimum region size, and keep the component with the highest total source
// intensity. The result replaces any previous mask on the channel.
func (s *Strategy) Segment(ctx context.Context, ch *channel.Channel, opts *config.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	level, candidate, err := threshold.MaskFromSource(ch.Source(), opts)
	if err != nil {
		return err
	}
	defer candidate.Close()

	labelMap, err := regions.Components(candidate)
	if err != nil {
		return err
	}
	defer labelMap.Close()

	gray, err := substrate.ToGrayscale(ch.Source())
	if err != nil {
		return err
	}
	defer gray.Close()

	dominant := -1
	bestIntensity := -1.0
	for _, region := range labelMap.Regions() {
		if region.Area < opts.MinRegionSize {
			continue
		}
		intensity, err := labelMap.SumIntensity(gray, region.Label)
		if err != nil {
			return err
		}
		if intensity > bestIntensity {
			bestIntensity = intensity
			dominant = region.Label
		}
	}
	if dominant < 0 {
		return fmt.Errorf("no candidate region reaches minimum size %d", opts.MinRegionSize)
	}

	mask, err := labelMap.RegionMask(dominant)
	if err != nil {
		return err
	}

	ch.SetThreshold(level)
	ch.SetMask(mask)

	s.log.Debug(component, "segmented channel", map[string]interface{}{
		"channel":   ch.ID,
		"threshold": level,
		"label":     dominant,
	})
	return nil
}

// Threshold applies the shared threshold-and-mask procedure without the
// dominant-region selection, mirroring the generic behavior every channel
// type inherits.
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
	return nil
}

// Measure records the tumor metrics selected in the options. Grey level is
// the mean source intensity over mask foreground; circularity is 4*pi*A/P^2
// of the largest foreground region inside the configured size window.
func (s *Strategy) Measure(ctx context.Context, ch *channel.Channel, opts *config.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !opts.MeasureGrey && !opts.MeasureCircularity {
		return nil
	}

	if ch.Mask == nil {
		return fmt.Errorf("channel %s has no mask; segment or threshold must run first", ch.ID)
	}

	if opts.MeasureGrey {
		if err := s.measureGreyLevel(ch); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if opts.MeasureCircularity {
		if err := s.measureCircularity(ch, opts); err != nil {
			return err
		}
	}

	return nil
}

func (s *Strategy) measureGreyLevel(ch *channel.Channel) error {
	count, err := substrate.CountForeground(ch.Mask)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("grey level on channel %s: %w", ch.ID, regions.ErrEmptyMask)
	}

	gray, err := substrate.ToGrayscale(ch.Source())
	if err != nil {
		return err
	}
	defer gray.Close()

	mean, err := substrate.MeanMasked(gray, ch.Mask)
	if err != nil {
		return err
	}

	return ch.Record("meanGreyLevel", mean)
}

func (s *Strategy) measureCircularity(ch *channel.Channel, opts *config.Options) error {
	labelMap, err := regions.Components(ch.Mask)
	if err != nil {
		if err == regions.ErrEmptyMask {
			return fmt.Errorf("circularity on channel %s: %w", ch.ID, regions.ErrEmptyMask)
		}
		return err
	}
	defer labelMap.Close()

	largest := regions.Region{Label: -1}
	for _, region := range labelMap.Regions() {
		if region.Area < opts.MinRegionSize {
			continue
		}
		if opts.MaxRegionSize > 0 && region.Area > opts.MaxRegionSize {
			continue
		}
		if region.Area > largest.Area {
			largest = region
		}
	}
	if largest.Label < 0 {
		return fmt.Errorf("no region within size limits [%d, %d] on channel %s",
			opts.MinRegionSize, opts.MaxRegionSize, ch.ID)
	}

	perimeter, err := labelMap.Perimeter(largest.Label)
	if err != nil {
		return err
	}

	circ := regions.Circularity(float64(largest.Area), perimeter)
	if err := ch.Record("circularity", circ); err != nil {
		return err
	}

	s.log.Debug(component, "measured circularity", map[string]interface{}{
		"channel":     ch.ID,
		"area":        largest.Area,
		"perimeter":   perimeter,
		"circularity": circ,
	})
	return nil
}
