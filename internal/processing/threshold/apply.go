package threshold

import (
	"fmt"

	"github.com/aforsythe/HughesLabTools/internal/config"
	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

// Select picks the threshold level for a histogram according to the options:
// the manual value when the manual method is configured, otherwise the
// configured automatic method.
func Select(hist [256]int, opts *config.Options) (float64, error) {
	if opts.ThresholdMethod == config.MethodManual {
		return opts.ManualThreshold, nil
	}

	calc, err := ForMethod(opts.ThresholdMethod)
	if err != nil {
		return 0, err
	}
	return calc.Calculate(hist)
}

// MaskFromSource runs the shared threshold-and-mask procedure: grayscale
// conversion, threshold selection per the options, and binary mask
// derivation with the configured polarity. The source substrate is left
// untouched; the returned mask is a fresh derived buffer owned by the
// caller.
func MaskFromSource(src *substrate.Mat, opts *config.Options) (float64, *substrate.Mat, error) {
	gray, err := substrate.ToGrayscale(src)
	if err != nil {
		return 0, nil, fmt.Errorf("grayscale conversion failed: %w", err)
	}
	defer gray.Close()

	hist, err := substrate.Histogram256(gray)
	if err != nil {
		return 0, nil, fmt.Errorf("histogram failed: %w", err)
	}

	level, err := Select(hist, opts)
	if err != nil {
		return 0, nil, fmt.Errorf("threshold selection failed: %w", err)
	}

	mask, err := substrate.ApplyThreshold(gray, level, opts.DarkBackground)
	if err != nil {
		return 0, nil, fmt.Errorf("mask derivation failed: %w", err)
	}

	return level, mask, nil
}
