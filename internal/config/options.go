// Package config holds the immutable options snapshot that drives a
// processing run. Options are collected up front (YAML file, CLI flags, or a
// loosely-typed map), validated once, and never consulted ad hoc afterwards.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Threshold method names accepted by ThresholdMethod.
const (
	MethodLi       = "li"
	MethodOtsu     = "otsu"
	MethodMean     = "mean"
	MethodTriangle = "triangle"
	MethodManual   = "manual"
)

// ConfigError reports the first violated invariant of an options snapshot.
// Validation is fail-fast: a snapshot that produces a ConfigError has caused
// no mutation anywhere.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid options: %s: %s", e.Field, e.Message)
}

// Options is one snapshot of everything a run needs. The zero value is not
// usable; start from Default().
type Options struct {
	// Channel declaration. TypeNames and TypeColors are parallel slices of
	// length NumTypes, in declaration order.
	NumTypes   int      `yaml:"numTypes"`
	TypeNames  []string `yaml:"typeNames"`
	TypeColors []string `yaml:"typeColors"`

	// Operation selection.
	Segment            bool `yaml:"segment"`
	Threshold          bool `yaml:"threshold"`
	MeasureGrey        bool `yaml:"measureGrey"`
	MeasureCircularity bool `yaml:"measureCircularity"`
	MeasureDiameter    bool `yaml:"measureDiameter"`
	Merge              bool `yaml:"merge"`

	// Thresholding policy. DarkBackground true means bright structures on a
	// dark background become mask foreground; false inverts the polarity.
	ThresholdMethod string  `yaml:"thresholdMethod"`
	ManualThreshold float64 `yaml:"manualThreshold"`
	DarkBackground  bool    `yaml:"darkBackground"`

	// Region size limits in pixels. Components below MinRegionSize are
	// treated as noise everywhere; MaxRegionSize additionally bounds the
	// regions eligible for circularity measurement.
	MinRegionSize int `yaml:"minRegionSize"`
	MaxRegionSize int `yaml:"maxRegionSize"`

	// Saturation fraction for contrast enhancement during coloring.
	Saturation float64 `yaml:"saturation"`

	// Batch input handling.
	RootDir               string `yaml:"rootDir"`
	ProcessSubdirectories bool   `yaml:"processSubdirectories"`

	Workers int  `yaml:"workers"`
	Verbose bool `yaml:"verbose"`
}

// Default mirrors the defaults the interactive front end historically
// offered: Li thresholding of bright structures on a dark background, two
// channels per device, and a 50..10000 px particle size window.
func Default() *Options {
	return &Options{
		NumTypes:              2,
		TypeNames:             []string{"Vessels", "Tumor"},
		TypeColors:            []string{"Red", "Green"},
		ThresholdMethod:       MethodLi,
		DarkBackground:        true,
		MinRegionSize:         50,
		MaxRegionSize:         10000,
		Saturation:            0.3,
		ProcessSubdirectories: true,
		Workers:               runtime.NumCPU(),
	}
}

// Load reads a YAML options file over the defaults. Unknown keys are ignored.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading options file: %w", err)
	}

	opts := Default()
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("parsing options file: %w", err)
	}

	return opts, nil
}

// Validate checks every snapshot invariant and returns a ConfigError naming
// the first violation.
func (o *Options) Validate() error {
	if o.NumTypes <= 0 {
		return &ConfigError{Field: "numTypes", Message: fmt.Sprintf("must be positive, got %d", o.NumTypes)}
	}

	if len(o.TypeNames) != o.NumTypes {
		return &ConfigError{
			Field:   "typeNames",
			Message: fmt.Sprintf("length %d does not match numTypes %d", len(o.TypeNames), o.NumTypes),
		}
	}

	if len(o.TypeColors) != o.NumTypes {
		return &ConfigError{
			Field:   "typeColors",
			Message: fmt.Sprintf("length %d does not match numTypes %d", len(o.TypeColors), o.NumTypes),
		}
	}

	seen := make(map[string]bool, o.NumTypes)
	for _, name := range o.TypeNames {
		if name == "" {
			return &ConfigError{Field: "typeNames", Message: "empty type name"}
		}
		if seen[name] {
			return &ConfigError{Field: "typeNames", Message: fmt.Sprintf("duplicate type name %q", name)}
		}
		seen[name] = true
	}

	if o.Segment || o.Threshold {
		switch o.ThresholdMethod {
		case MethodLi, MethodOtsu, MethodMean, MethodTriangle:
		case MethodManual:
			if o.ManualThreshold < 0 || o.ManualThreshold > 255 {
				return &ConfigError{
					Field:   "manualThreshold",
					Message: fmt.Sprintf("must be within [0, 255], got %g", o.ManualThreshold),
				}
			}
		case "":
			return &ConfigError{Field: "thresholdMethod", Message: "required when segment or threshold is selected"}
		default:
			return &ConfigError{
				Field:   "thresholdMethod",
				Message: fmt.Sprintf("unknown method %q", o.ThresholdMethod),
			}
		}
	}

	if o.MinRegionSize < 0 {
		return &ConfigError{Field: "minRegionSize", Message: fmt.Sprintf("must be non-negative, got %d", o.MinRegionSize)}
	}
	if o.MaxRegionSize > 0 && o.MaxRegionSize < o.MinRegionSize {
		return &ConfigError{
			Field:   "maxRegionSize",
			Message: fmt.Sprintf("%d is below minRegionSize %d", o.MaxRegionSize, o.MinRegionSize),
		}
	}

	if o.Saturation < 0 || o.Saturation >= 100 {
		return &ConfigError{Field: "saturation", Message: fmt.Sprintf("must be within [0, 100), got %g", o.Saturation)}
	}

	if o.Workers < 0 {
		return &ConfigError{Field: "workers", Message: fmt.Sprintf("must be non-negative, got %d", o.Workers)}
	}

	return nil
}

// MeasureSelected reports whether any measurement operation is enabled.
func (o *Options) MeasureSelected() bool {
	return o.MeasureGrey || o.MeasureCircularity || o.MeasureDiameter
}

// Clone returns an independent copy so a validated snapshot can be held
// read-only for the duration of a run.
func (o *Options) Clone() *Options {
	dup := *o
	dup.TypeNames = append([]string(nil), o.TypeNames...)
	dup.TypeColors = append([]string(nil), o.TypeColors...)
	return &dup
}
