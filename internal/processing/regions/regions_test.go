package regions

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

func newMask(t *testing.T, rows, cols int, foreground func(y, x int) bool) *substrate.Mat {
	t.Helper()

	mask, err := substrate.NewMat(rows, cols, gocv.MatTypeCV8UC1)
	if err != nil {
		t.Fatalf("NewMat: %v", err)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if foreground(y, x) {
				if err := mask.SetUCharAt(y, x, 255); err != nil {
					t.Fatalf("SetUCharAt: %v", err)
				}
			}
		}
	}
	return mask
}

func diskMask(t *testing.T, size, cx, cy, r int) *substrate.Mat {
	return newMask(t, size, size, func(y, x int) bool {
		dx, dy := float64(x-cx), float64(y-cy)
		return math.Sqrt(dx*dx+dy*dy) <= float64(r)
	})
}

func TestComponentsEmptyMask(t *testing.T) {
	mask := newMask(t, 16, 16, func(y, x int) bool { return false })
	defer mask.Close()

	if _, err := Components(mask); !errors.Is(err, ErrEmptyMask) {
		t.Fatalf("expected ErrEmptyMask, got %v", err)
	}
}

func TestComponentsRasterDiscoveryOrder(t *testing.T) {
	// Three blobs: top-right, middle-left, bottom-right. Raster order must
	// report them top to bottom regardless of horizontal position.
	mask := newMask(t, 30, 30, func(y, x int) bool {
		switch {
		case y >= 2 && y < 6 && x >= 20 && x < 24:
			return true
		case y >= 12 && y < 16 && x >= 2 && x < 6:
			return true
		case y >= 22 && y < 26 && x >= 20 && x < 24:
			return true
		default:
			return false
		}
	})
	defer mask.Close()

	labelMap, err := Components(mask)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	defer labelMap.Close()

	regions := labelMap.Regions()
	if len(regions) != 3 {
		t.Fatalf("got %d regions, want 3", len(regions))
	}

	tops := []int{2, 12, 22}
	for i, region := range regions {
		if region.Bounds.Min.Y != tops[i] {
			t.Errorf("region %d top = %d, want %d", i, region.Bounds.Min.Y, tops[i])
		}
		if region.Area != 16 {
			t.Errorf("region %d area = %d, want 16", i, region.Area)
		}
	}
}

func TestRegionMaskIsolatesOneComponent(t *testing.T) {
	mask := newMask(t, 20, 20, func(y, x int) bool {
		return (y < 5 && x < 5) || (y >= 10 && x >= 10)
	})
	defer mask.Close()

	labelMap, err := Components(mask)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	defer labelMap.Close()

	first := labelMap.Regions()[0]
	regionMask, err := labelMap.RegionMask(first.Label)
	if err != nil {
		t.Fatalf("RegionMask: %v", err)
	}
	defer regionMask.Close()

	count, err := substrate.CountForeground(regionMask)
	if err != nil {
		t.Fatalf("CountForeground: %v", err)
	}
	if count != first.Area {
		t.Errorf("region mask has %d pixels, region area is %d", count, first.Area)
	}
}

func TestSumIntensity(t *testing.T) {
	mask := newMask(t, 10, 10, func(y, x int) bool { return y < 2 && x < 2 })
	defer mask.Close()

	src, err := substrate.NewMat(10, 10, gocv.MatTypeCV8UC1)
	if err != nil {
		t.Fatalf("NewMat: %v", err)
	}
	defer src.Close()
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if err := src.SetUCharAt(y, x, 100); err != nil {
				t.Fatalf("SetUCharAt: %v", err)
			}
		}
	}

	labelMap, err := Components(mask)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	defer labelMap.Close()

	sum, err := labelMap.SumIntensity(src, labelMap.Regions()[0].Label)
	if err != nil {
		t.Fatalf("SumIntensity: %v", err)
	}
	if sum != 400 {
		t.Errorf("intensity sum = %g, want 400", sum)
	}
}

func TestCircularityFormulaAndClamp(t *testing.T) {
	// A perfect continuous circle: 4*pi*(pi*r^2) / (2*pi*r)^2 == 1.
	r := 10.0
	c := Circularity(math.Pi*r*r, 2*math.Pi*r)
	if math.Abs(c-1.0) > 1e-9 {
		t.Errorf("perfect circle circularity = %g, want 1", c)
	}

	// Perimeter underestimation can push the raw ratio past 1; the clamp
	// must hold it at exactly 1.
	if c := Circularity(1000, 10); c != 1.0 {
		t.Errorf("clamped circularity = %g, want 1", c)
	}

	if c := Circularity(100, 0); c != 0 {
		t.Errorf("zero perimeter circularity = %g, want 0", c)
	}

	// An elongated shape scores low.
	if c := Circularity(100, 202); c > 0.1 {
		t.Errorf("bar circularity = %g, want < 0.1", c)
	}
}

func TestDiskCircularityNearOne(t *testing.T) {
	mask := diskMask(t, 64, 32, 32, 20)
	defer mask.Close()

	labelMap, err := Components(mask)
	if err != nil {
		t.Fatalf("Components: %v", err)
	}
	defer labelMap.Close()

	region := labelMap.Regions()[0]
	perimeter, err := labelMap.Perimeter(region.Label)
	if err != nil {
		t.Fatalf("Perimeter: %v", err)
	}

	c := Circularity(float64(region.Area), perimeter)
	if c < 0.85 || c > 1.0 {
		t.Errorf("digitized disk circularity = %g, want within [0.85, 1.0]", c)
	}
}

func TestSkeletonStaysInsideMask(t *testing.T) {
	mask := newMask(t, 40, 40, func(y, x int) bool { return x >= 10 && x < 22 })
	defer mask.Close()

	skel, err := Skeleton(mask)
	if err != nil {
		t.Fatalf("Skeleton: %v", err)
	}
	defer skel.Close()

	count, err := substrate.CountForeground(skel)
	if err != nil {
		t.Fatalf("CountForeground: %v", err)
	}
	if count == 0 {
		t.Fatal("skeleton is empty for a solid bar")
	}

	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			s, _ := skel.GetUCharAt(y, x)
			m, _ := mask.GetUCharAt(y, x)
			if s != 0 && m == 0 {
				t.Fatalf("skeleton pixel (%d,%d) outside mask", x, y)
			}
		}
	}
}

func TestDiametersOnStraightBar(t *testing.T) {
	// Vertical bar 10 pixels wide spanning the full image height.
	mask := newMask(t, 60, 60, func(y, x int) bool { return x >= 20 && x < 30 })
	defer mask.Close()

	diameters, err := Diameters(mask, 10)
	if err != nil {
		t.Fatalf("Diameters: %v", err)
	}
	if len(diameters) != 1 {
		t.Fatalf("got %d structures, want 1", len(diameters))
	}
	if diameters[0] < 8 || diameters[0] > 12 {
		t.Errorf("bar diameter = %g, want near 10", diameters[0])
	}
}

func TestDiametersExcludesSpecks(t *testing.T) {
	mask := newMask(t, 60, 60, func(y, x int) bool {
		if x >= 20 && x < 30 {
			return true
		}
		return y == 5 && x >= 40 && x < 43 // 3-pixel speck
	})
	defer mask.Close()

	diameters, err := Diameters(mask, 10)
	if err != nil {
		t.Fatalf("Diameters: %v", err)
	}
	if len(diameters) != 1 {
		t.Errorf("speck not excluded: got %d structures, want 1", len(diameters))
	}
}

func TestDiametersEmptyMask(t *testing.T) {
	mask := newMask(t, 16, 16, func(y, x int) bool { return false })
	defer mask.Close()

	if _, err := Diameters(mask, 1); !errors.Is(err, ErrEmptyMask) {
		t.Fatalf("expected ErrEmptyMask, got %v", err)
	}
}
