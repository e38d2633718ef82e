package substrate

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ToGrayscale converts a multi-channel substrate to single-channel 8-bit.
// Single-channel inputs are cloned so the caller always owns the result.
func ToGrayscale(src *Mat) (*Mat, error) {
	if err := ValidateForOperation(src, "grayscale conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	dst, err := NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.Inner()
	dstMat := dst.Inner()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		temp := gocv.NewMat()
		defer temp.Close()
		gocv.CvtColor(srcMat, &temp, gocv.ColorBGRAToBGR)
		gocv.CvtColor(temp, &dstMat, gocv.ColorBGRToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}

	return dst, nil
}

// Histogram256 counts pixel intensities of an 8-bit single-channel substrate
// into 256 bins.
func Histogram256(src *Mat) ([256]int, error) {
	var hist [256]int

	if err := ValidateForOperation(src, "histogram"); err != nil {
		return hist, err
	}
	if src.Channels() != 1 {
		return hist, fmt.Errorf("histogram requires single-channel Mat, got %d channels", src.Channels())
	}

	inner := src.Inner()
	rows, cols := inner.Rows(), inner.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			hist[inner.GetUCharAt(y, x)]++
		}
	}

	return hist, nil
}

// ApplyThreshold derives a 0/255 binary mask from an 8-bit grayscale
// substrate without modifying the source. With darkBackground true, pixels at
// or above the threshold become foreground; with false the polarity inverts.
func ApplyThreshold(src *Mat, threshold float64, darkBackground bool) (*Mat, error) {
	if err := ValidateForOperation(src, "threshold"); err != nil {
		return nil, err
	}
	if src.Channels() != 1 {
		return nil, fmt.Errorf("threshold requires single-channel Mat, got %d channels", src.Channels())
	}

	mask, err := src.NewDerived()
	if err != nil {
		return nil, fmt.Errorf("mask creation failed: %w", err)
	}

	thresholdType := gocv.ThresholdBinary
	if !darkBackground {
		thresholdType = gocv.ThresholdBinaryInv
	}

	srcMat := src.Inner()
	maskMat := mask.Inner()
	// OpenCV binarizes strictly-greater-than; shift by half a level so the
	// threshold value itself lands in the foreground class.
	gocv.Threshold(srcMat, &maskMat, threshold-0.5, 255, thresholdType)

	return mask, nil
}

// CountForeground returns the number of non-zero pixels in a mask.
func CountForeground(mask *Mat) (int, error) {
	if err := ValidateForOperation(mask, "foreground count"); err != nil {
		return 0, err
	}
	return gocv.CountNonZero(mask.Inner()), nil
}

// MeanMasked computes the mean intensity of src over the foreground pixels of
// mask. The caller is responsible for rejecting empty masks first.
func MeanMasked(src, mask *Mat) (float64, error) {
	if err := ValidateSameDimensions(src, mask, "masked mean"); err != nil {
		return 0, err
	}

	srcMat := src.Inner()
	maskMat := mask.Inner()

	var sum float64
	var count int
	rows, cols := srcMat.Rows(), srcMat.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if maskMat.GetUCharAt(y, x) != 0 {
				sum += float64(srcMat.GetUCharAt(y, x))
				count++
			}
		}
	}

	if count == 0 {
		return 0, fmt.Errorf("mask has no foreground pixels")
	}
	return sum / float64(count), nil
}
