package config

// FromMap applies a loosely-typed key/value map, as produced by an external
// configuration collector, over the defaults. Keys that are not recognized
// are ignored; recognized keys with the wrong dynamic type surface as a
// ConfigError so a typo in the collector cannot silently fall back to a
// default.
func FromMap(raw map[string]interface{}) (*Options, error) {
	opts := Default()

	for key, value := range raw {
		var ok bool
		switch key {
		case "numTypes":
			opts.NumTypes, ok = asInt(value)
		case "typeNames":
			opts.TypeNames, ok = asStringSlice(value)
		case "typeColors":
			opts.TypeColors, ok = asStringSlice(value)
		case "segment":
			opts.Segment, ok = value.(bool)
		case "threshold":
			opts.Threshold, ok = value.(bool)
		case "measureGrey":
			opts.MeasureGrey, ok = value.(bool)
		case "measureCircularity":
			opts.MeasureCircularity, ok = value.(bool)
		case "measureDiameter":
			opts.MeasureDiameter, ok = value.(bool)
		case "merge":
			opts.Merge, ok = value.(bool)
		case "thresholdMethod":
			opts.ThresholdMethod, ok = value.(string)
		case "manualThreshold":
			opts.ManualThreshold, ok = asFloat(value)
		case "darkBackground":
			opts.DarkBackground, ok = value.(bool)
		case "minRegionSize":
			opts.MinRegionSize, ok = asInt(value)
		case "maxRegionSize":
			opts.MaxRegionSize, ok = asInt(value)
		case "saturation":
			opts.Saturation, ok = asFloat(value)
		case "rootDir":
			opts.RootDir, ok = value.(string)
		case "processSubdirectories":
			opts.ProcessSubdirectories, ok = value.(bool)
		case "workers":
			opts.Workers, ok = asInt(value)
		case "verbose":
			opts.Verbose, ok = value.(bool)
		default:
			continue
		}

		if !ok {
			return nil, &ConfigError{Field: key, Message: "unexpected value type"}
		}
	}

	return opts, nil
}

func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func asStringSlice(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
