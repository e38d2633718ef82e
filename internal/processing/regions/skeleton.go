package regions

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

// Skeleton reduces a binary mask to its medial skeleton by iterative
// morphological thinning: at each step the pixels an opening would remove
// are accumulated, then the working image is eroded, until nothing remains.
func Skeleton(mask *substrate.Mat) (*substrate.Mat, error) {
	if err := substrate.ValidateForOperation(mask, "skeletonization"); err != nil {
		return nil, err
	}

	rows, cols := mask.Rows(), mask.Cols()

	skel, err := substrate.NewMat(rows, cols, gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, fmt.Errorf("skeleton buffer creation failed: %w", err)
	}

	working, err := mask.Clone()
	if err != nil {
		skel.Close()
		return nil, fmt.Errorf("working copy creation failed: %w", err)
	}
	defer working.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3))
	defer kernel.Close()

	opened := gocv.NewMat()
	residue := gocv.NewMat()
	eroded := gocv.NewMat()
	defer opened.Close()
	defer residue.Close()
	defer eroded.Close()

	skelMat := skel.Inner()
	workingMat := working.Inner()

	// Upper bound on iterations: each erosion strips at least one pixel of
	// thickness, so max(rows, cols) passes always suffice.
	maxIter := rows
	if cols > maxIter {
		maxIter = cols
	}

	for iter := 0; iter < maxIter; iter++ {
		if gocv.CountNonZero(workingMat) == 0 {
			break
		}

		gocv.MorphologyEx(workingMat, &opened, gocv.MorphOpen, kernel)
		gocv.Subtract(workingMat, opened, &residue)
		gocv.BitwiseOr(skelMat, residue, &skelMat)
		gocv.Erode(workingMat, &eroded, kernel)
		eroded.CopyTo(&workingMat)
	}

	return skel, nil
}

// DistanceMap computes the L2 distance from every foreground pixel to the
// nearest background pixel.
func DistanceMap(mask *substrate.Mat) (*substrate.Mat, error) {
	if err := substrate.ValidateForOperation(mask, "distance transform"); err != nil {
		return nil, err
	}

	dist := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV32F)
	labels := gocv.NewMat()
	defer labels.Close()

	gocv.DistanceTransform(mask.Inner(), &dist, &labels,
		gocv.DistL2, gocv.DistanceMask5, gocv.DistanceLabelCComp)

	wrapped, err := substrate.NewMatFromMat(dist)
	dist.Close()
	if err != nil {
		return nil, fmt.Errorf("distance map wrap failed: %w", err)
	}
	return wrapped, nil
}

// Diameters estimates the local width of each foreground structure. For
// every component at least minSize pixels large, the mean over its skeleton
// pixels of twice the distance-to-background is reported, in raster
// discovery order. Sub-minSize specks are excluded rather than reported as
// vessels. Returns ErrEmptyMask when the mask has no foreground.
func Diameters(mask *substrate.Mat, minSize int) ([]float64, error) {
	labelMap, err := Components(mask)
	if err != nil {
		return nil, err
	}
	defer labelMap.Close()

	skel, err := Skeleton(mask)
	if err != nil {
		return nil, err
	}
	defer skel.Close()

	dist, err := DistanceMap(mask)
	if err != nil {
		return nil, err
	}
	defer dist.Close()

	skelMat := skel.Inner()
	distMat := dist.Inner()
	rows, cols := mask.Rows(), mask.Cols()

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if skelMat.GetUCharAt(y, x) == 0 {
				continue
			}
			label := labelMap.LabelAt(y, x)
			if label == 0 {
				continue
			}
			sums[label] += 2 * float64(distMat.GetFloatAt(y, x))
			counts[label]++
		}
	}

	diameters := make([]float64, 0, len(labelMap.regions))
	for _, region := range labelMap.regions {
		if region.Area < minSize {
			continue
		}
		if counts[region.Label] == 0 {
			// Thinning consumed the component entirely; fall back to the
			// widest point of the structure.
			diameters = append(diameters, maxDiameterInRegion(labelMap, distMat, region))
			continue
		}
		diameters = append(diameters, sums[region.Label]/float64(counts[region.Label]))
	}

	return diameters, nil
}

func maxDiameterInRegion(labelMap *LabelMap, distMat gocv.Mat, region Region) float64 {
	maxDist := 0.0
	for y := region.Bounds.Min.Y; y < region.Bounds.Max.Y; y++ {
		for x := region.Bounds.Min.X; x < region.Bounds.Max.X; x++ {
			if labelMap.LabelAt(y, x) != region.Label {
				continue
			}
			if d := float64(distMat.GetFloatAt(y, x)); d > maxDist {
				maxDist = d
			}
		}
	}
	return 2 * maxDist
}
