// Package export writes run products to disk: a measurements CSV per device
// and the derived mask/colored images. Only the CLI calls this; the
// processing core itself never touches the filesystem.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aforsythe/HughesLabTools/internal/channel"
	"github.com/aforsythe/HughesLabTools/internal/orchestrator"
	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

// WriteCSV emits one row per recorded measurement plus a status row for
// channels that produced none, so failed and skipped channels stay visible
// in the output.
func WriteCSV(w io.Writer, device string, report *orchestrator.RunReport) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"device", "channel", "type", "status", "metric", "value"}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, cr := range report.Channels {
		if len(cr.Measurements) == 0 {
			row := []string{device, cr.Name, cr.Type.String(), cr.Status.String(), "", ""}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
			continue
		}
		for _, m := range cr.Measurements {
			row := []string{
				device, cr.Name, cr.Type.String(), cr.Status.String(),
				m.Name, strconv.FormatFloat(m.Value, 'f', 3, 64),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the device report to dir/<device>_results.csv.
func WriteCSVFile(dir, device string, report *orchestrator.RunReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}

	path := filepath.Join(dir, device+"_results.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating results file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, device, report); err != nil {
		return "", err
	}
	return path, nil
}

// SaveMasks writes each channel's derived mask under dir/thresholded. File
// names carry the device name so devices sharing one source directory never
// overwrite each other's output.
func SaveMasks(dir, device string, channels []*channel.Channel) error {
	outDir := filepath.Join(dir, "thresholded")
	for _, ch := range channels {
		if ch.Mask == nil {
			continue
		}
		path := filepath.Join(outDir, device+"_"+ch.Name+"_mask.tif")
		if err := substrate.Save(ch.Mask, path); err != nil {
			return fmt.Errorf("saving mask for channel %s: %w", ch.ID, err)
		}
	}
	return nil
}

// SaveColored renders each channel's source in its display color under
// dir/colored.
func SaveColored(dir, device string, channels []*channel.Channel, saturation float64) error {
	outDir := filepath.Join(dir, "colored")
	for _, ch := range channels {
		colored, err := substrate.Colorize(ch.Source(), ch.Color, saturation)
		if err != nil {
			return fmt.Errorf("coloring channel %s: %w", ch.ID, err)
		}
		path := filepath.Join(outDir, device+"_"+ch.Name+"_colored.tif")
		saveErr := substrate.Save(colored, path)
		colored.Close()
		if saveErr != nil {
			return fmt.Errorf("saving colored channel %s: %w", ch.ID, saveErr)
		}
	}
	return nil
}

// SaveMerged sum-projects the display-colored channels of one device into
// dir/merged/<device>_merged.tif. Channels of differing dimensions are
// cropped to the smallest common size before projection.
func SaveMerged(dir, device string, channels []*channel.Channel, saturation float64) error {
	colored := make([]*substrate.Mat, 0, len(channels))
	defer func() {
		for _, m := range colored {
			m.Close()
		}
	}()

	for _, ch := range channels {
		m, err := substrate.Colorize(ch.Source(), ch.Color, saturation)
		if err != nil {
			return fmt.Errorf("coloring channel %s: %w", ch.ID, err)
		}
		colored = append(colored, m)
	}

	merged, err := substrate.MergeSum(colored)
	if err != nil {
		return fmt.Errorf("merging device %s: %w", device, err)
	}
	defer merged.Close()

	path := filepath.Join(dir, "merged", device+"_merged.tif")
	if err := substrate.Save(merged, path); err != nil {
		return fmt.Errorf("saving merged image for device %s: %w", device, err)
	}
	return nil
}
