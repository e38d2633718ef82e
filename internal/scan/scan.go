// Package scan discovers microscopy image files on disk and groups them into
// devices. Images are gathered in natural sort order and every consecutive
// run of numTypes files forms one device, one image per declared type.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aforsythe/HughesLabTools/internal/logger"
)

const component = "scan"

// Output directories produced by earlier runs are never treated as input.
var skipDirs = map[string]bool{
	"colored":     true,
	"merged":      true,
	"thresholded": true,
	"segmented":   true,
}

var defaultFormats = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Device is one grouped acquisition: the directory it came from and its
// image paths keyed by declared type name, in declaration order.
type Device struct {
	Name      string
	Dir       string
	TypeNames []string
	Paths     map[string]string
}

// PathFor returns the image path assigned to a type name.
func (d *Device) PathFor(typeName string) (string, bool) {
	p, ok := d.Paths[typeName]
	return p, ok
}

type Scanner struct {
	log logger.Logger
}

func NewScanner(log logger.Logger) *Scanner {
	return &Scanner{log: log}
}

// Scan walks rootDir, collects image files in natural sort order, and groups
// every len(typeNames) consecutive files into a device. The total image
// count must be a multiple of the type count; a remainder means the capture
// set is incomplete and grouping would misalign every following device.
func (s *Scanner) Scan(rootDir string, typeNames []string, subdirectories bool) ([]Device, error) {
	if len(typeNames) == 0 {
		return nil, fmt.Errorf("no type names declared")
	}

	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == rootDir {
				return nil
			}
			if skipDirs[d.Name()] || !subdirectories {
				return filepath.SkipDir
			}
			return nil
		}
		if defaultFormats[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", rootDir, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return naturalLess(files[i], files[j])
	})

	numTypes := len(typeNames)
	if len(files)%numTypes != 0 {
		return nil, fmt.Errorf("found %d images, not a multiple of %d types", len(files), numTypes)
	}

	devices := make([]Device, 0, len(files)/numTypes)
	for deviceIdx := 0; deviceIdx < len(files)/numTypes; deviceIdx++ {
		device := Device{
			Name:      fmt.Sprintf("Device_%d", deviceIdx+1),
			Dir:       filepath.Dir(files[deviceIdx*numTypes]),
			TypeNames: append([]string(nil), typeNames...),
			Paths:     make(map[string]string, numTypes),
		}
		for typeIdx, typeName := range typeNames {
			device.Paths[typeName] = files[deviceIdx*numTypes+typeIdx]
		}
		devices = append(devices, device)
	}

	s.log.Info(component, "scan complete", map[string]interface{}{
		"root":    rootDir,
		"images":  len(files),
		"devices": len(devices),
	})
	return devices, nil
}

var naturalChunks = regexp.MustCompile(`([0-9]+|[^0-9]+)`)

// naturalLess orders strings so embedded numbers compare numerically:
// img2.tif sorts before img10.tif.
func naturalLess(a, b string) bool {
	aChunks := naturalChunks.FindAllString(strings.ToLower(a), -1)
	bChunks := naturalChunks.FindAllString(strings.ToLower(b), -1)

	for i := 0; i < len(aChunks) && i < len(bChunks); i++ {
		ac, bc := aChunks[i], bChunks[i]
		if ac == bc {
			continue
		}

		an, aErr := strconv.Atoi(ac)
		bn, bErr := strconv.Atoi(bc)
		if aErr == nil && bErr == nil {
			if an != bn {
				return an < bn
			}
			continue
		}
		return ac < bc
	}
	return len(aChunks) < len(bChunks)
}
