package threshold

import (
	"math"
	"testing"

	"github.com/aforsythe/HughesLabTools/internal/config"
)

// bimodal builds a histogram with two populations: lowCount pixels at
// lowBin and highCount pixels at highBin.
func bimodal(lowBin, lowCount, highBin, highCount int) [256]int {
	var hist [256]int
	hist[lowBin] = lowCount
	hist[highBin] = highCount
	return hist
}

func TestForMethodUnknown(t *testing.T) {
	if _, err := ForMethod("isodata"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestCalculatorsSplitBimodalHistogram(t *testing.T) {
	hist := bimodal(10, 800, 200, 200)

	for _, method := range []string{"li", "otsu", "mean", "triangle"} {
		t.Run(method, func(t *testing.T) {
			calc, err := ForMethod(method)
			if err != nil {
				t.Fatalf("ForMethod(%q): %v", method, err)
			}

			level, err := calc.Calculate(hist)
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			if level <= 10 || level > 200 {
				t.Errorf("%s threshold %g does not separate modes at 10 and 200", method, level)
			}
		})
	}
}

func TestCalculatorsRejectEmptyHistogram(t *testing.T) {
	var empty [256]int
	for _, method := range []string{"li", "otsu", "mean", "triangle"} {
		calc, err := ForMethod(method)
		if err != nil {
			t.Fatalf("ForMethod(%q): %v", method, err)
		}
		if _, err := calc.Calculate(empty); err == nil {
			t.Errorf("%s accepted an empty histogram", method)
		}
	}
}

func TestMeanCalculator(t *testing.T) {
	hist := bimodal(0, 500, 100, 500)

	calc := &MeanCalculator{}
	level, err := calc.Calculate(hist)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if math.Abs(level-50) > 1e-9 {
		t.Errorf("mean threshold = %g, want 50", level)
	}
}

func TestOtsuDeterministic(t *testing.T) {
	hist := bimodal(30, 600, 180, 400)

	calc := &OtsuCalculator{}
	first, err := calc.Calculate(hist)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := calc.Calculate(hist)
		if err != nil {
			t.Fatalf("Calculate: %v", err)
		}
		if again != first {
			t.Fatalf("otsu not deterministic: %g then %g", first, again)
		}
	}
}

func TestSelectManualBypassesHistogram(t *testing.T) {
	opts := config.Default()
	opts.ThresholdMethod = config.MethodManual
	opts.ManualThreshold = 77

	var hist [256]int // empty on purpose; manual must not consult it
	level, err := Select(hist, opts)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if level != 77 {
		t.Errorf("manual threshold = %g, want 77", level)
	}
}

func TestSelectUsesConfiguredMethod(t *testing.T) {
	opts := config.Default()
	opts.ThresholdMethod = config.MethodMean

	hist := bimodal(0, 500, 100, 500)
	level, err := Select(hist, opts)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if math.Abs(level-50) > 1e-9 {
		t.Errorf("selected threshold = %g, want 50", level)
	}
}
