package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/smfetch/internal/config"
	"github.com/pfrederiksen/smfetch/internal/event"
	"github.com/pfrederiksen/smfetch/internal/fetcher"
	"github.com/pfrederiksen/smfetch/internal/logger"
	"github.com/pfrederiksen/smfetch/internal/observability"
	"github.com/pfrederiksen/smfetch/internal/station"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitNoData  = 2
)

// errNoData makes Run exit with ExitNoData after a fetch that found nothing.
var errNoData = errors.New("no data")

// timeLayouts are tried in order when parsing --time. Values without a zone
// are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type fetchOptions struct {
	lat         float64
	lon         float64
	when        string
	radius      float64
	window      time.Duration
	outDir      string
	configPath  string
	format      string
	metricsFile string
	verbose     bool
}

type parseOptions struct {
	format  string
	sortBy  string
	verbose bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smfetch",
		Short: "Fetch strong-motion records from the Turkish national network portal",
		Long: `A CLI tool to retrieve strong-motion station files for an earthquake.
Finds the event in the portal by origin time and epicenter, downloads the raw
file of every station that recorded it and summarizes downloaded files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newFetchCmd(), newParseCmd())
	return cmd
}

func newFetchCmd() *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Find an event and download its station files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.lat, "lat", 0, "Epicenter latitude in degrees (required)")
	cmd.Flags().Float64Var(&opts.lon, "lon", 0, "Epicenter longitude in degrees (required)")
	cmd.Flags().StringVar(&opts.when, "time", "", "Origin time, RFC3339 or 2006-01-02T15:04:05 in UTC (required)")
	cmd.Flags().Float64Var(&opts.radius, "radius", 50, "Distance tolerance in km")
	cmd.Flags().DurationVar(&opts.window, "window", 60*time.Second, "Origin time tolerance")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "Directory for downloaded station files")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")
	cmd.MarkFlagRequired("time")

	return cmd
}

func newParseCmd() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Summarize downloaded station files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "Sort by: station, time or pga (default: argument order)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Show per-channel details")

	return cmd
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or 2006-01-02T15:04:05)", s)
}

// runFetch is the main command logic
func runFetch(cmd *cobra.Command, opts *fetchOptions) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	when, err := parseTime(opts.when)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if opts.verbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)

	metrics := observability.NewMetrics()
	f, err := fetcher.New(cfg, log, metrics)
	if err != nil {
		return err
	}

	criteria := event.Criteria{
		Latitude:  opts.lat,
		Longitude: opts.lon,
		Time:      when,
		RadiusKm:  opts.radius,
		Window:    opts.window,
	}
	log.Debug("starting fetch", logger.Fields{
		"latitude":  criteria.Latitude,
		"longitude": criteria.Longitude,
		"time":      criteria.Time.Format(time.RFC3339),
		"radius_km": criteria.RadiusKm,
		"window_s":  criteria.Window.Seconds(),
		"out_dir":   opts.outDir,
	})

	res, runErr := f.Run(cmd.Context(), criteria, opts.outDir)

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			log.Error("writing metrics file", logger.Fields{"path": opts.metricsFile}, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	out := newFetchOutput(criteria, res)
	if err := WriteFetchOutput(cmd.OutOrStdout(), out, format, opts.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if out.FileCount == 0 {
		return errNoData
	}
	return nil
}

func runParse(cmd *cobra.Command, opts *parseOptions, paths []string) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	order := SortOrder(strings.ToLower(opts.sortBy))
	if !order.valid() {
		return fmt.Errorf("invalid sort: %s (must be 'station', 'time' or 'pga')", opts.sortBy)
	}

	summaries := make([]*StationSummary, 0, len(paths))
	for _, path := range paths {
		rec, err := station.ParseFile(path)
		if err != nil {
			return err
		}
		summaries = append(summaries, newStationSummary(path, rec))
	}
	sortSummaries(summaries, order)

	if err := WriteParseOutput(cmd.OutOrStdout(), summaries, format, opts.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errNoData):
		return ExitNoData
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
