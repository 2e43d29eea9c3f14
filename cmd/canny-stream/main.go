// Command canny-stream runs image files through the streaming Canny edge
// detector and writes one edge map per input.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"canny-stream/internal/logger"
	"canny-stream/internal/models"
	"canny-stream/internal/pipeline"
	"canny-stream/internal/services"
	"canny-stream/internal/shutdown"
	"canny-stream/internal/stream"
)

const (
	AppName    = "canny-stream"
	AppVersion = "1.0.0"
)

type options struct {
	configPath string
	width      int
	height     int
	high       int
	low        int
	margin     int
	history    string
	mode       string
	stall      string
	strict     bool
	logLevel   string
	logFormat  string
	outDir     string
	format     string
	useOpenCV  bool
	fit        bool
	references string
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "TOML or YAML configuration file")
	fs.IntVar(&opts.width, "width", 0, "frame width bound (default: first input's width)")
	fs.IntVar(&opts.height, "height", 0, "frame height bound (default: first input's height)")
	fs.IntVar(&opts.high, "high", 80, "high hysteresis threshold")
	fs.IntVar(&opts.low, "low", 20, "low hysteresis threshold")
	fs.IntVar(&opts.margin, "margin", 5, "border margin zeroed after suppression")
	fs.StringVar(&opts.history, "history", string(models.HistoryClear), "line-buffer history across frames: clear or carry")
	fs.StringVar(&opts.mode, "mode", string(models.ModeConcurrent), "execution mode: concurrent or fused")
	fs.StringVar(&opts.stall, "stall-timeout", "2s", "maximum wait for a sample inside a frame, 0 disables")
	fs.BoolVar(&opts.strict, "strict-thresholds", false, "reject high < low instead of warning")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&opts.logFormat, "log-format", "console", "console or json")
	fs.StringVar(&opts.outDir, "out-dir", ".", "directory for edge maps, empty to skip writing")
	fs.StringVar(&opts.format, "format", "png", "output format: png, jpeg, bmp or tiff")
	fs.BoolVar(&opts.useOpenCV, "opencv", false, "read and write images with OpenCV")
	fs.BoolVar(&opts.fit, "fit", false, "with -opencv, resize inputs to the frame bounds")
	fs.StringVar(&opts.references, "reference", "", "comma-separated reference edge maps, one per input")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] image...\n", AppName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Printf("%s %s (%s)\n", AppName, AppVersion, runtime.Version())
		return 0
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := buildConfiguration(fs, &opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log, err := logger.NewFromSettings(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if err := process(cfg, &opts, inputs, log); err != nil {
		log.Error("Main", err, map[string]interface{}{
			"framing": stream.IsFramingError(err),
		})
		if errors.Is(err, models.ErrInvalidConfiguration) {
			return 2
		}
		return 1
	}
	return 0
}

// buildConfiguration layers explicitly set flags over the configuration file
// over the defaults.
func buildConfiguration(fs *flag.FlagSet, opts *options) (*models.Configuration, error) {
	cfg := models.DefaultConfiguration()
	if opts.configPath != "" {
		loaded, err := models.LoadConfiguration(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = opts.width
		case "height":
			cfg.Height = opts.height
		case "high":
			cfg.HighThreshold = &opts.high
		case "low":
			cfg.LowThreshold = &opts.low
		case "margin":
			cfg.BorderMargin = &opts.margin
		case "history":
			cfg.History = models.HistoryPolicy(opts.history)
		case "mode":
			cfg.Mode = models.ExecutionMode(opts.mode)
		case "stall-timeout":
			cfg.StallTimeout = opts.stall
		case "strict-thresholds":
			cfg.StrictThresholds = opts.strict
		case "log-level":
			cfg.LogLevel = opts.logLevel
		case "log-format":
			cfg.LogFormat = opts.logFormat
		}
	})
	cfg.Normalize()
	return cfg, nil
}

func process(cfg *models.Configuration, opts *options, inputs []string, log logger.Logger) error {
	mgr := shutdown.NewManager(context.Background(), log)
	mgr.Listen()
	defer mgr.Shutdown()
	ctx := mgr.Context()

	var store services.FrameStore = services.NewImageService(log)
	if opts.useOpenCV {
		store = services.NewOpenCVService(log, 0, 0)
	}

	if cfg.Width == 0 || cfg.Height == 0 {
		first, err := store.LoadImage(ctx, inputs[0])
		if err != nil {
			return fmt.Errorf("%s: %w", inputs[0], err)
		}
		if cfg.Width == 0 {
			cfg.Width = first.Width
		}
		if cfg.Height == 0 {
			cfg.Height = first.Height
		}
	}
	if opts.useOpenCV && opts.fit {
		store = services.NewOpenCVService(log, cfg.Width, cfg.Height)
	}

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	svc := services.NewProcessingService(p, store, log)
	mgr.Register("processing", svc)

	log.Info("Main", "processing started", map[string]interface{}{
		"version": AppVersion,
		"inputs":  len(inputs),
		"opencv":  opts.useOpenCV,
	})

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	batch, err := svc.ProcessFiles(ctx, inputs, opts.outDir, opts.format, cfg.GetThresholds())
	if err != nil {
		return err
	}

	if opts.references != "" {
		refs := strings.Split(opts.references, ",")
		if len(refs) != len(batch.Results) {
			return fmt.Errorf("got %d reference maps for %d inputs", len(refs), len(batch.Results))
		}
		for i := range batch.Results {
			if err := svc.CompareWithReference(ctx, &batch.Results[i], strings.TrimSpace(refs[i])); err != nil {
				return err
			}
		}
	}

	m := batch.Metrics
	log.Info("Main", "processing finished", map[string]interface{}{
		"run_id":            batch.RunID,
		"frames":            m.FramesOut,
		"edge_pixels":       m.EdgePixels,
		"samples_held":      m.SamplesHeld,
		"samples_drained":   m.SamplesDrained,
		"samples_discarded": m.SamplesDiscarded,
		"duration":          batch.Duration.String(),
	})
	for _, r := range batch.Results {
		if r.Output != "" {
			fmt.Println(r.Output)
		}
	}
	return nil
}
