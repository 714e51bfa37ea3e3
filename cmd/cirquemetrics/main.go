// Command cirquemetrics analyses a batch of cirque cross-section profiles and writes
// the morphometric tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/chrissnell/cirquemetrics/internal/app"
	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/log"
	"github.com/chrissnell/cirquemetrics/internal/managers"
	"github.com/chrissnell/cirquemetrics/internal/profileio"
	"github.com/chrissnell/cirquemetrics/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

type options struct {
	cfgFile       string
	cfgBackend    string
	input         string
	inputFormat   string
	outputDir     string
	format        string
	boundaryMode  string
	minHeight     float64
	epsilon       float64
	turningPoints int
	clusterRadius float64
	cellSize      float64
	workers       int
	noHalves      bool
	store         bool
}

func main() {
	var o options
	flag.StringVar(&o.cfgFile, "config", "", "Path to configuration source (YAML file or SQLite database); defaults are used when empty")
	flag.StringVar(&o.cfgBackend, "config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	flag.StringVar(&o.input, "input", "", "Profile file to analyse (csv, json or msgpack); '-' reads stdin (required)")
	flag.StringVar(&o.inputFormat, "input-format", "", "Input format; detected from the file extension when empty")
	flag.StringVar(&o.outputDir, "output-dir", "", "Directory for CSV tables or the report file")
	flag.StringVar(&o.format, "format", "", "Output format: csv, json or msgpack")
	flag.StringVar(&o.boundaryMode, "boundary-mode", "", "Boundary points used to refine cross sections: none, highest or convex")
	flag.Float64Var(&o.minHeight, "min-height", -1, "Floor band excluded from convex detection, in elevation units")
	flag.Float64Var(&o.epsilon, "epsilon", 0, "Turning point tolerance")
	flag.IntVar(&o.turningPoints, "turning-points", 0, "Convex boundary points kept per half")
	flag.Float64Var(&o.clusterRadius, "cluster-radius", 0, "Turning point suppression radius; 0 derives it from the cell size")
	flag.Float64Var(&o.cellSize, "cellsize", 0, "Terrain resolution of the sampled surface")
	flag.IntVar(&o.workers, "workers", 0, "Worker pool size; 0 uses one per CPU")
	flag.BoolVar(&o.noHalves, "no-half-profiles", false, "Skip half-profile metrics")
	flag.BoolVar(&o.store, "store", false, "Save the report to the configured storage backends")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cirquemetrics %s\n", version)
		os.Exit(0)
	}

	if o.input == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -input <profiles.csv> [-output-dir out]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(o.cfgFile, o.cfgBackend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	err = log.InitWithFile(*debug || cfg.Logging.Debug, log.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, cfg); err != nil {
		log.Errorf("%v", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, cfg *config.ConfigData) error {
	applyOverrides(o, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	params, err := app.Params(cfg.Analysis)
	if err != nil {
		return err
	}

	profiles, err := readInput(o.input, o.inputFormat)
	if err != nil {
		return err
	}
	log.Infof("read %d profiles from %s", len(profiles), o.input)

	analyzer := cirque.NewAnalyzer(params, log.GetSugaredLogger())
	res, err := analyzer.AnalyzeBatch(ctx, profiles)
	if err != nil {
		return err
	}
	rep := cirque.NewReport(res)

	if err := writeOutput(rep, cfg.Output); err != nil {
		return err
	}

	if o.store {
		if err := storeReport(ctx, rep, cfg.Storage); err != nil {
			return err
		}
	}

	log.Infof("run %s: %d cross sections, %d half profiles, %d failures",
		rep.RunID, len(rep.CrossSections), len(rep.HalfProfiles), len(rep.Failures))
	return nil
}

// applyOverrides lays the command line flags over the configuration
func applyOverrides(o options, cfg *config.ConfigData) {
	a := &cfg.Analysis
	if o.boundaryMode != "" {
		a.BoundaryMode = o.boundaryMode
	}
	if o.minHeight >= 0 {
		a.MinHeight = o.minHeight
	}
	if o.epsilon > 0 {
		a.Epsilon = o.epsilon
	}
	if o.turningPoints > 0 {
		a.TurningPointCount = o.turningPoints
	}
	if o.clusterRadius > 0 {
		a.ClusterRadius = o.clusterRadius
	}
	if o.cellSize > 0 {
		a.CellSize = o.cellSize
	}
	if o.workers > 0 {
		a.Workers = o.workers
	}
	if o.noHalves {
		off := false
		a.HalfProfiles = &off
	}
	if o.outputDir != "" {
		cfg.Output.Directory = o.outputDir
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
}

func readInput(path, format string) ([]cirque.Profile, error) {
	var f profileio.Format
	var err error
	switch {
	case format != "":
		f, err = profileio.ParseFormat(format)
	case path == "-":
		f = profileio.FormatCSV
	default:
		f, err = profileio.FormatFromPath(path)
	}
	if err != nil {
		return nil, err
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("could not open input: %w", err)
		}
		defer file.Close()
		r = file
	}

	profiles, err := profileio.ReadProfiles(r, f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return profiles, nil
}

func writeOutput(rep cirque.Report, out config.OutputData) error {
	f, err := profileio.ParseFormat(out.Format)
	if err != nil {
		return err
	}

	if f == profileio.FormatCSV {
		dir := out.Directory
		if dir == "" {
			dir = "."
		}
		written, err := profileio.WriteTables(dir, rep)
		if err != nil {
			return err
		}
		for _, path := range written {
			log.Infof("wrote %s", path)
		}
		return nil
	}

	if out.Directory == "" {
		return profileio.WriteReport(os.Stdout, rep, f)
	}
	if err := os.MkdirAll(out.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(out.Directory, "report."+string(f))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := profileio.WriteReport(file, rep, f); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Infof("wrote %s", path)
	return file.Close()
}

func storeReport(ctx context.Context, rep cirque.Report, c config.StorageData) error {
	sm, err := managers.NewStorageManager(ctx, c, log.GetSugaredLogger())
	if err != nil {
		return err
	}
	defer sm.Close()

	if !sm.Enabled() {
		return fmt.Errorf("-store was given but no storage backend is configured")
	}
	if err := sm.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("could not store report: %w", err)
	}
	return nil
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	if cfgFile == "" {
		cfg := &config.ConfigData{}
		cfg.ApplyDefaults()
		return cfg, nil
	}

	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
