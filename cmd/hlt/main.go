package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aforsythe/HughesLabTools/internal/algorithms"
	"github.com/aforsythe/HughesLabTools/internal/config"
	"github.com/aforsythe/HughesLabTools/internal/export"
	"github.com/aforsythe/HughesLabTools/internal/logger"
	"github.com/aforsythe/HughesLabTools/internal/orchestrator"
	"github.com/aforsythe/HughesLabTools/internal/scan"
	"github.com/aforsythe/HughesLabTools/internal/substrate"
)

func main() {
	configPath := flag.String("config", "", "YAML options file (defaults used when omitted)")
	inputDir := flag.String("input", "", "Directory containing the microscopy images")
	segment := flag.Bool("segment", false, "Segment tumor channels")
	thresholdOp := flag.Bool("threshold", false, "Threshold vessel channels")
	measure := flag.Bool("measure", false, "Record measurements (grey level, circularity, diameters)")
	color := flag.Bool("color", false, "Write display-colored copies of each channel")
	merge := flag.Bool("merge", false, "Sum-project the colored channels into one merged image per device")
	saveMasks := flag.Bool("save-masks", true, "Write derived masks next to each device directory")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	opts, err := loadOptions(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *inputDir != "" {
		opts.RootDir = *inputDir
	}
	if *segment {
		opts.Segment = true
	}
	if *thresholdOp {
		opts.Threshold = true
	}
	if *measure {
		opts.MeasureGrey = true
		opts.MeasureCircularity = true
		opts.MeasureDiameter = true
	}
	if *merge {
		opts.Merge = true
	}
	if *verbose {
		opts.Verbose = true
	}

	if opts.RootDir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewConsoleLogger(opts.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, log, *color, *saveMasks); err != nil {
		log.Error("main", err, nil)
		os.Exit(1)
	}
}

func loadOptions(path string) (*config.Options, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, opts *config.Options, log logger.Logger, color, saveMasks bool) error {
	scanner := scan.NewScanner(log)
	devices, err := scanner.Scan(opts.RootDir, opts.TypeNames, opts.ProcessSubdirectories)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices found under %s", opts.RootDir)
	}

	registry := algorithms.NewRegistry(log)

	failures := 0
	for _, device := range devices {
		if ctx.Err() != nil {
			log.Warning("main", "cancelled, stopping device processing", nil)
			break
		}
		if err := processDevice(ctx, device, opts, registry, log, color, saveMasks); err != nil {
			log.Error("main", err, map[string]interface{}{"device": device.Name})
			failures++
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d devices failed", failures, len(devices))
	}
	return nil
}

func processDevice(ctx context.Context, device scan.Device, opts *config.Options,
	registry *algorithms.Registry, log logger.Logger, color, saveMasks bool) error {

	sources := make([]*substrate.Mat, 0, len(device.TypeNames))
	for _, typeName := range device.TypeNames {
		path, ok := device.PathFor(typeName)
		if !ok {
			return fmt.Errorf("device %s has no image for type %s", device.Name, typeName)
		}
		source, err := substrate.LoadGrayscale(path)
		if err != nil {
			for _, m := range sources {
				m.Close()
			}
			return fmt.Errorf("loading %s: %w", path, err)
		}
		sources = append(sources, source)
	}

	orch := orchestrator.New(registry, log)
	defer orch.Reset()

	if err := orch.Configure(opts, sources); err != nil {
		for _, m := range sources {
			m.Close()
		}
		return err
	}

	plan, err := orch.BuildPlan()
	if err != nil {
		return err
	}

	report, err := orch.Run(ctx, plan)
	if err != nil {
		return err
	}

	for _, cr := range report.Channels {
		fields := map[string]interface{}{
			"device":  device.Name,
			"channel": cr.Name,
			"status":  cr.Status.String(),
		}
		for _, m := range cr.Measurements {
			fields[m.Name] = m.Value
		}
		if cr.Err != nil {
			fields["error"] = cr.Err.Error()
		}
		log.Info("main", "channel processed", fields)
	}

	resultsPath, err := export.WriteCSVFile(device.Dir, device.Name, report)
	if err != nil {
		return err
	}
	log.Debug("main", "results written", map[string]interface{}{"path": resultsPath})

	channels := orch.Channels()
	if saveMasks {
		if err := export.SaveMasks(device.Dir, device.Name, channels); err != nil {
			return err
		}
	}
	if color {
		if err := export.SaveColored(device.Dir, device.Name, channels, opts.Saturation); err != nil {
			return err
		}
	}
	if opts.Merge {
		if err := export.SaveMerged(device.Dir, device.Name, channels, opts.Saturation); err != nil {
			return err
		}
	}

	return nil
}
