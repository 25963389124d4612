package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opscart/finops-scan/pkg/config"
	"github.com/opscart/finops-scan/pkg/inventory"
	"github.com/opscart/finops-scan/pkg/logger"
	"github.com/opscart/finops-scan/pkg/profile"
	"github.com/opscart/finops-scan/pkg/reporter"
	"github.com/opscart/finops-scan/pkg/review"
	"github.com/opscart/finops-scan/pkg/storage"
	"github.com/opscart/finops-scan/pkg/telemetry"
)

var (
	// Review flags
	configPath    string
	profileName   string
	profilesFile  string
	partitionsCSV string
	inventoryFile string
	outputPath    string
	saveResults   bool
	perSubRows    bool
	verbose       bool

	// History flags
	historyLimit int

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finops-scan",
		Short: "Cloud resource rightsizing reviewer",
		Long:  `Review cloud resources against their usage telemetry and label each one with a capacity-mode recommendation.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run a review over one or more partitions",
		RunE:  runReview,
	}
	reviewCmd.Flags().StringVarP(&profileName, "profile", "p", "table", "Service profile to review (see 'profiles')")
	reviewCmd.Flags().StringVar(&profilesFile, "profiles-file", "", "YAML file with additional or overriding profiles")
	reviewCmd.Flags().StringVar(&partitionsCSV, "partitions", "", "Comma-separated partitions to review (required)")
	reviewCmd.Flags().StringVar(&inventoryFile, "inventory", "", "JSON inventory snapshot (overrides configured inventory)")
	reviewCmd.Flags().StringVarP(&outputPath, "output", "o", "", "CSV output file (default: stdout)")
	reviewCmd.Flags().BoolVar(&saveResults, "save", false, "Persist the run to the database")
	reviewCmd.Flags().BoolVar(&perSubRows, "per-sub", false, "Emit one extra row per sub-resource")

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List available service profiles",
		RunE:  runProfiles,
	}
	profilesCmd.Flags().StringVar(&profilesFile, "profiles-file", "", "YAML file with additional or overriding profiles")

	historyCmd := &cobra.Command{
		Use:   "history <resource-id>",
		Short: "Show a resource's labels across past runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of past labels to show")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved review runs for a profile",
		RunE:  runRuns,
	}
	runsCmd.Flags().StringVarP(&profileName, "profile", "p", "table", "Service profile")
	runsCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(runsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.App.LogLevel
	if verbose {
		level = "debug"
	}
	logger.Setup(level, cfg.App.Mode)

	return cfg.Validate()
}

func loadProfiles() ([]profile.Profile, error) {
	profiles := profile.Builtins()
	if profilesFile != "" {
		extra, err := profile.Load(profilesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		profiles = profile.Merge(profiles, extra)
	}
	return profiles, nil
}

func buildInventory(prof profile.Profile) (inventory.Source, error) {
	if inventoryFile != "" {
		return inventory.NewFileSource(inventoryFile)
	}
	switch cfg.Inventory.Type {
	case "file":
		return inventory.NewFileSource(cfg.Inventory.File)
	case "prometheus":
		return inventory.NewPrometheusSource(inventory.PrometheusConfig{
			URL:            cfg.Telemetry.PrometheusURL,
			DimensionKey:   prof.DimensionKey,
			PartitionLabel: cfg.Inventory.PartitionLabel,
			InfoMetric:     cfg.Inventory.InfoMetric,
			Service:        prof.Service,
			Lookback:       cfg.Inventory.Lookback,
		})
	default:
		return nil, fmt.Errorf("unknown inventory type %q", cfg.Inventory.Type)
	}
}

func runReview(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	partitions := splitCSV(partitionsCSV)
	if len(partitions) == 0 {
		return fmt.Errorf("--partitions is required")
	}

	profiles, err := loadProfiles()
	if err != nil {
		return err
	}
	prof, err := profile.Find(profiles, profileName)
	if err != nil {
		return err
	}

	inv, err := buildInventory(prof)
	if err != nil {
		return fmt.Errorf("failed to initialize inventory: %w", err)
	}

	prom, err := telemetry.NewPrometheusSource(cfg.Telemetry.PrometheusURL)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	source := telemetry.NewRetrySource(prom, telemetry.RetryConfig{
		MaxAttempts: cfg.Telemetry.Retry.MaxAttempts,
		BaseDelay:   cfg.Telemetry.Retry.BaseDelay,
		MaxDelay:    cfg.Telemetry.Retry.MaxDelay,
	})

	orch := review.New(inv, source, cfg.Thresholds, review.Config{
		Workers:           cfg.Review.Workers,
		PartitionTimeout:  cfg.Review.PartitionTimeout,
		MaxPointsPerCall:  cfg.Review.MaxPointsPerCall,
		MinGranularity:    cfg.Review.MinGranularity,
		CoverageThreshold: cfg.Review.CoverageThreshold,
		CacheSize:         cfg.Review.CacheSize,
		SubResourceRows:   perSubRows || cfg.Review.SubResourceRows,
	})

	started := time.Now().UTC()
	rows, err := orch.Run(cmd.Context(), prof, partitions)
	if err != nil {
		return err
	}
	finished := time.Now().UTC()

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := reporter.WriteCSV(out, prof, rows); err != nil {
		return err
	}
	if outputPath != "" {
		logger.Infof("wrote %d rows to %s", len(rows), outputPath)
		reporter.PrintSummary(os.Stdout, rows)
	} else {
		reporter.PrintSummary(os.Stderr, rows)
	}

	if saveResults {
		if !cfg.Storage.Enabled {
			return fmt.Errorf("--save requires storage.enabled in config")
		}
		store, err := storage.NewPostgresStore(cfg.Storage.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()

		run := &storage.Run{
			Profile:    prof.Service,
			Partitions: partitions,
			StartedAt:  started,
			FinishedAt: finished,
		}
		if err := store.SaveRun(cmd.Context(), run, rows); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logger.Infof("saved run %s (%d rows)", run.ID, run.RowCount)
	}

	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	profiles, err := loadProfiles()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Printf("%-10s %s\n", p.Service, p.Description)
		for _, ch := range p.Channels {
			fmt.Printf("    channel %-10s metric=%s stat=%s\n", ch.Name, ch.Metric, ch.Statistic)
		}
		for _, w := range p.Windows {
			fmt.Printf("    window  %-10s %s @ %s\n", w.Name, w.Duration, w.Granularity)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	store, err := storage.NewPostgresStore(cfg.Storage.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	labels, err := store.LabelHistory(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		fmt.Printf("no saved rows for %s\n", args[0])
		return nil
	}
	for i, label := range labels {
		fmt.Printf("%2d. %s\n", i+1, label)
	}
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	store, err := storage.NewPostgresStore(cfg.Storage.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), profileName, historyLimit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  partitions=%s  rows=%d  took=%s\n",
			run.ID, run.StartedAt.Format(time.RFC3339),
			strings.Join(run.Partitions, ","), run.RowCount,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
