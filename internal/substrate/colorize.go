package substrate

import (
	"fmt"
	"image"
	"strings"

	"gocv.io/x/gocv"
)

// channelWeights maps a display color name to its BGR channel mask.
var channelWeights = map[string][3]bool{
	"red":     {false, false, true},
	"green":   {false, true, false},
	"blue":    {true, false, false},
	"cyan":    {true, true, false},
	"magenta": {true, false, true},
	"yellow":  {false, true, true},
	"grays":   {true, true, true},
}

// Colorize renders a grayscale substrate into a BGR image tinted with the
// named display color, after a contrast stretch that saturates the given
// fraction of pixels (half at each end of the histogram).
func Colorize(src *Mat, colorName string, saturation float64) (*Mat, error) {
	if err := ValidateForOperation(src, "colorize"); err != nil {
		return nil, err
	}

	weights, ok := channelWeights[strings.ToLower(colorName)]
	if !ok {
		return nil, fmt.Errorf("unknown display color: %s", colorName)
	}

	gray, err := ToGrayscale(src)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	low, high, err := saturationBounds(gray, saturation)
	if err != nil {
		return nil, err
	}

	dst, err := NewMat(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC3)
	if err != nil {
		return nil, err
	}

	grayMat := gray.Inner()
	dstMat := dst.Inner()
	scale := 0.0
	if high > low {
		scale = 255.0 / float64(high-low)
	}

	rows, cols := gray.Rows(), gray.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := grayMat.GetUCharAt(y, x)
			stretched := uint8(0)
			switch {
			case v >= high:
				stretched = 255
			case v > low:
				stretched = uint8(float64(v-low)*scale + 0.5)
			}
			for c := 0; c < 3; c++ {
				if weights[c] {
					dstMat.SetUCharAt3(y, x, c, stretched)
				}
			}
		}
	}

	return dst, nil
}

// MergeSum sum-projects same-typed substrates into one image. Inputs may
// differ in size; every one is cropped to the smallest common dimensions
// before accumulation, and the 8-bit sum saturates at 255.
func MergeSum(mats []*Mat) (*Mat, error) {
	if len(mats) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}

	minRows, minCols := 0, 0
	for i, m := range mats {
		if err := ValidateForOperation(m, "merge"); err != nil {
			return nil, err
		}
		if m.Type() != mats[0].Type() {
			return nil, fmt.Errorf("merge input %d has type %v, first input has %v",
				i, m.Type(), mats[0].Type())
		}
		if i == 0 || m.Rows() < minRows {
			minRows = m.Rows()
		}
		if i == 0 || m.Cols() < minCols {
			minCols = m.Cols()
		}
	}

	out, err := NewMat(minRows, minCols, mats[0].Type())
	if err != nil {
		return nil, fmt.Errorf("merge buffer creation failed: %w", err)
	}

	outMat := out.Inner()
	for _, m := range mats {
		region := m.Inner().Region(image.Rect(0, 0, minCols, minRows))
		gocv.Add(outMat, region, &outMat)
		region.Close()
	}

	return out, nil
}

// saturationBounds finds the intensity range that clips sat percent of pixels
// split evenly between the dark and bright tails.
func saturationBounds(gray *Mat, sat float64) (uint8, uint8, error) {
	hist, err := Histogram256(gray)
	if err != nil {
		return 0, 0, err
	}

	total := gray.Rows() * gray.Cols()
	clip := int(float64(total) * sat / 100.0 / 2.0)

	low := 0
	acc := 0
	for low < 255 && acc+hist[low] <= clip {
		acc += hist[low]
		low++
	}

	high := 255
	acc = 0
	for high > low && acc+hist[high] <= clip {
		acc += hist[high]
		high--
	}

	return uint8(low), uint8(high), nil
}
