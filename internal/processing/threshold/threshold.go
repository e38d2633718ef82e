// Package threshold implements the automatic threshold selection methods.
// Every calculator is a pure, deterministic function of a 256-bin intensity
// histogram, so identical images always produce identical thresholds.
package threshold

import (
	"fmt"
	"math"
)

// Calculator selects a threshold level from an intensity histogram.
type Calculator interface {
	Name() string
	Calculate(hist [256]int) (float64, error)
}

// ForMethod resolves a configured method name to its calculator. Manual
// thresholds bypass histogram analysis entirely and are not served here.
func ForMethod(method string) (Calculator, error) {
	switch method {
	case "li":
		return &LiCalculator{}, nil
	case "otsu":
		return &OtsuCalculator{}, nil
	case "mean":
		return &MeanCalculator{}, nil
	case "triangle":
		return &TriangleCalculator{}, nil
	default:
		return nil, fmt.Errorf("unknown threshold method: %s", method)
	}
}

func histogramTotals(hist [256]int) (total int, sum float64) {
	for i, count := range hist {
		total += count
		sum += float64(i) * float64(count)
	}
	return total, sum
}

// LiCalculator implements Li's minimum cross-entropy method, the historical
// default for vessel thresholding, via the usual fixed-point iteration.
type LiCalculator struct{}

func (c *LiCalculator) Name() string { return "li" }

func (c *LiCalculator) Calculate(hist [256]int) (float64, error) {
	total, sum := histogramTotals(hist)
	if total == 0 {
		return 0, fmt.Errorf("empty histogram")
	}

	t := sum / float64(total)
	const tolerance = 0.5

	for iter := 0; iter < 100; iter++ {
		cut := int(t + 0.5)
		if cut > 255 {
			cut = 255
		}

		var backCount, foreCount int
		var backSum, foreSum float64
		for i := 0; i <= cut; i++ {
			backCount += hist[i]
			backSum += float64(i) * float64(hist[i])
		}
		for i := cut + 1; i < 256; i++ {
			foreCount += hist[i]
			foreSum += float64(i) * float64(hist[i])
		}

		meanBack := 1.0
		if backCount > 0 {
			meanBack = backSum / float64(backCount)
		}
		meanFore := 1.0
		if foreCount > 0 {
			meanFore = foreSum / float64(foreCount)
		}
		// Guard the logarithms against the zero bin.
		if meanBack < 1.0 {
			meanBack = 1.0
		}
		if meanFore < 1.0 {
			meanFore = 1.0
		}
		if meanBack == meanFore {
			break
		}

		next := (meanBack - meanFore) / (math.Log(meanBack) - math.Log(meanFore))
		if math.Abs(next-t) < tolerance {
			t = next
			break
		}
		t = next
	}

	return clampLevel(t), nil
}

// OtsuCalculator maximizes between-class variance over all split points.
type OtsuCalculator struct{}

func (c *OtsuCalculator) Name() string { return "otsu" }

func (c *OtsuCalculator) Calculate(hist [256]int) (float64, error) {
	total, sum := histogramTotals(hist)
	if total == 0 {
		return 0, fmt.Errorf("empty histogram")
	}

	bestThreshold := 0.0
	maxVariance := 0.0

	var backCount int
	var backSum float64
	for t := 0; t < 256; t++ {
		backCount += hist[t]
		backSum += float64(t) * float64(hist[t])

		foreCount := total - backCount
		if backCount == 0 || foreCount == 0 {
			continue
		}

		meanBack := backSum / float64(backCount)
		meanFore := (sum - backSum) / float64(foreCount)
		meanDiff := meanBack - meanFore

		wBack := float64(backCount) / float64(total)
		wFore := float64(foreCount) / float64(total)
		variance := wBack * wFore * meanDiff * meanDiff

		if variance > maxVariance {
			maxVariance = variance
			bestThreshold = float64(t) + 1
		}
	}

	return clampLevel(bestThreshold), nil
}

// MeanCalculator uses the global mean intensity as the threshold.
type MeanCalculator struct{}

func (c *MeanCalculator) Name() string { return "mean" }

func (c *MeanCalculator) Calculate(hist [256]int) (float64, error) {
	total, sum := histogramTotals(hist)
	if total == 0 {
		return 0, fmt.Errorf("empty histogram")
	}
	return clampLevel(sum / float64(total)), nil
}

// TriangleCalculator finds the bin with maximum distance from the line
// between the histogram peak and the far tail.
type TriangleCalculator struct{}

func (c *TriangleCalculator) Name() string { return "triangle" }

func (c *TriangleCalculator) Calculate(hist [256]int) (float64, error) {
	total, _ := histogramTotals(hist)
	if total == 0 {
		return 0, fmt.Errorf("empty histogram")
	}

	peak := 0
	for i := 1; i < 256; i++ {
		if hist[i] > hist[peak] {
			peak = i
		}
	}

	// Walk toward the longer tail of the distribution.
	first, last := 0, 255
	for first < 255 && hist[first] == 0 {
		first++
	}
	for last > 0 && hist[last] == 0 {
		last--
	}

	tail := last
	if peak-first > last-peak {
		tail = first
	}
	if tail == peak {
		return clampLevel(float64(peak)), nil
	}

	// Perpendicular distance from each bin to the peak-tail line.
	dx := float64(tail - peak)
	dy := float64(hist[tail] - hist[peak])
	norm := math.Hypot(dx, dy)

	bestBin := peak
	maxDist := 0.0
	step := 1
	if tail < peak {
		step = -1
	}
	for i := peak; i != tail; i += step {
		px := float64(i - peak)
		py := float64(hist[i] - hist[peak])
		dist := math.Abs(px*dy-py*dx) / norm
		if dist > maxDist {
			maxDist = dist
			bestBin = i
		}
	}

	return clampLevel(float64(bestBin)), nil
}

func clampLevel(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 255 {
		return 255
	}
	return t
}
