package config

import (
	"errors"
	"testing"
)

func validOptions() *Options {
	opts := Default()
	opts.Segment = true
	opts.Threshold = true
	opts.MeasureGrey = true
	return opts
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validOptions().Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{
			name:   "zero types",
			mutate: func(o *Options) { o.NumTypes = 0 },
			field:  "numTypes",
		},
		{
			name:   "negative types",
			mutate: func(o *Options) { o.NumTypes = -1 },
			field:  "numTypes",
		},
		{
			name:   "typeNames length mismatch",
			mutate: func(o *Options) { o.TypeNames = []string{"Tumor"} },
			field:  "typeNames",
		},
		{
			name:   "typeColors length mismatch",
			mutate: func(o *Options) { o.TypeColors = []string{"Red", "Green", "Blue"} },
			field:  "typeColors",
		},
		{
			name:   "empty type name",
			mutate: func(o *Options) { o.TypeNames = []string{"", "Tumor"} },
			field:  "typeNames",
		},
		{
			name:   "duplicate type name",
			mutate: func(o *Options) { o.TypeNames = []string{"Tumor", "Tumor"} },
			field:  "typeNames",
		},
		{
			name:   "unknown threshold method",
			mutate: func(o *Options) { o.ThresholdMethod = "isodata" },
			field:  "thresholdMethod",
		},
		{
			name:   "missing threshold method for selected op",
			mutate: func(o *Options) { o.ThresholdMethod = "" },
			field:  "thresholdMethod",
		},
		{
			name: "manual threshold out of range",
			mutate: func(o *Options) {
				o.ThresholdMethod = MethodManual
				o.ManualThreshold = 300
			},
			field: "manualThreshold",
		},
		{
			name:   "negative min region size",
			mutate: func(o *Options) { o.MinRegionSize = -1 },
			field:  "minRegionSize",
		},
		{
			name: "max region below min",
			mutate: func(o *Options) {
				o.MinRegionSize = 100
				o.MaxRegionSize = 50
			},
			field: "maxRegionSize",
		},
		{
			name:   "negative workers",
			mutate: func(o *Options) { o.Workers = -2 },
			field:  "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(opts)

			err := opts.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestValidateThresholdMethodIgnoredWhenUnused(t *testing.T) {
	opts := Default()
	opts.Segment = false
	opts.Threshold = false
	opts.ThresholdMethod = ""

	if err := opts.Validate(); err != nil {
		t.Fatalf("method should not be required without segment/threshold: %v", err)
	}
}

func TestFromMapAppliesRecognizedKeys(t *testing.T) {
	opts, err := FromMap(map[string]interface{}{
		"numTypes":        2,
		"typeNames":       []interface{}{"Tumor", "Vessels"},
		"typeColors":      []string{"Green", "Red"},
		"segment":         true,
		"merge":           true,
		"thresholdMethod": "otsu",
		"manualThreshold": 128.0,
		"minRegionSize":   25,
		"darkBackground":  false,
	})
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}

	if opts.NumTypes != 2 {
		t.Errorf("numTypes = %d, want 2", opts.NumTypes)
	}
	if len(opts.TypeNames) != 2 || opts.TypeNames[0] != "Tumor" {
		t.Errorf("typeNames = %v", opts.TypeNames)
	}
	if !opts.Segment {
		t.Error("segment flag not applied")
	}
	if !opts.Merge {
		t.Error("merge flag not applied")
	}
	if opts.ThresholdMethod != "otsu" {
		t.Errorf("thresholdMethod = %q", opts.ThresholdMethod)
	}
	if opts.MinRegionSize != 25 {
		t.Errorf("minRegionSize = %d", opts.MinRegionSize)
	}
	if opts.DarkBackground {
		t.Error("darkBackground should be false")
	}
}

func TestFromMapIgnoresUnknownKeys(t *testing.T) {
	opts, err := FromMap(map[string]interface{}{
		"numTypes":         1,
		"typeNames":        []string{"Tumor"},
		"typeColors":       []string{"Green"},
		"someFutureOption": "whatever",
		"show_threshold":   true,
	})
	if err != nil {
		t.Fatalf("unknown keys must be ignored: %v", err)
	}
	if opts.NumTypes != 1 {
		t.Errorf("numTypes = %d, want 1", opts.NumTypes)
	}
}

func TestFromMapRejectsWrongType(t *testing.T) {
	_, err := FromMap(map[string]interface{}{"numTypes": "two"})
	if err == nil {
		t.Fatal("expected error for mistyped recognized key")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	opts := validOptions()
	dup := opts.Clone()

	dup.TypeNames[0] = "changed"
	dup.NumTypes = 99

	if opts.TypeNames[0] == "changed" {
		t.Error("clone shares typeNames backing array")
	}
	if opts.NumTypes == 99 {
		t.Error("clone shares scalar state")
	}
}
