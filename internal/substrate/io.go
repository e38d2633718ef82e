package substrate

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// LoadGrayscale reads an image file as 8-bit grayscale.
func LoadGrayscale(path string) (*Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("image file not accessible: %w", err)
	}

	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to decode image: %s", path)
	}

	return wrap(mat), nil
}

// Load reads an image file preserving its channel layout.
func Load(path string) (*Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("image file not accessible: %w", err)
	}

	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to decode image: %s", path)
	}

	return wrap(mat), nil
}

// Save writes the substrate to disk, creating parent directories as needed.
// The format follows the file extension.
func Save(mat *Mat, path string) error {
	if err := ValidateForOperation(mat, "save"); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if ok := gocv.IMWrite(path, mat.Inner()); !ok {
		return fmt.Errorf("failed to write image: %s", path)
	}
	return nil
}
