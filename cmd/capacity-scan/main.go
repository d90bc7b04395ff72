package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tablewise/seating/internal/config"
	"github.com/tablewise/seating/internal/database"
	"github.com/tablewise/seating/internal/logger"
	"github.com/tablewise/seating/internal/repository"
	"github.com/tablewise/seating/internal/service"
)

// defaultProject is the project name the cleanup command refuses to run
// against, so corrective writes always name their target explicitly.
const defaultProject = "default"

type rootOptions struct {
	Project string
	EnvFile string
}

type scanOptions struct {
	UnitID    string
	FromKey   string
	ToKey     string
	Limit     int
	BatchSize int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "capacity-scan",
		Short: "Audit and repair stored capacity documents",
		Long: `Scans capacity documents for invariant violations left behind by
legacy writers: missing counters, negative or non-integer values, and slot
breakdowns that no longer sum to the day total.

scan is read-only and reports findings. cleanup writes the normalizer's
output back for every flagged document and requires explicit confirmation.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Project, "project", defaultProject, "project name the scan runs against")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "path to an env file (defaults to environment variables)")

	cmd.AddCommand(newScanCommand(opts))
	cmd.AddCommand(newCleanupCommand(opts))

	return cmd
}

func newScanCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report invariant findings without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), rootOpts, opts, false)
		},
	}
	bindScanFlags(cmd, opts)

	return cmd
}

func newCleanupCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &scanOptions{}
	var confirm bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Write the normalized form back for every flagged document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return fmt.Errorf("cleanup writes corrective fixes; re-run with --confirm")
			}
			if rootOpts.Project == defaultProject {
				return fmt.Errorf("cleanup requires an explicit --project, refusing to run against %q", defaultProject)
			}
			return run(cmd.Context(), rootOpts, opts, true)
		},
	}
	bindScanFlags(cmd, opts)
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm corrective writes")

	return cmd
}

func bindScanFlags(cmd *cobra.Command, opts *scanOptions) {
	cmd.Flags().StringVar(&opts.UnitID, "unit", "", "restrict to one unit id (default: all units)")
	cmd.Flags().StringVar(&opts.FromKey, "from", "", "start date key, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.ToKey, "to", "", "end date key, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "stop after this many documents (0 = no limit)")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "documents fetched per page (0 = service default)")
}

func run(ctx context.Context, rootOpts *rootOptions, opts *scanOptions, apply bool) error {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLog, err := logger.New(cfg.App.Environment, cfg.App.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLog.Sync()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(connectCtx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	capacityRepo := repository.NewPostgresCapacityRepository(db.Pool())
	cleanup := service.NewCleanupService(capacityRepo, appLog)

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = cfg.Allocation.ScanBatchSize
	}
	scanOpts := service.ScanOptions{
		UnitID:    opts.UnitID,
		FromKey:   opts.FromKey,
		ToKey:     opts.ToKey,
		BatchSize: batchSize,
		Limit:     opts.Limit,
	}

	var report *service.ScanReport
	if apply {
		report, err = cleanup.Cleanup(ctx, scanOpts)
	} else {
		report, err = cleanup.Scan(ctx, scanOpts)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Println(string(out))

	return nil
}

func loadConfig(rootOpts *rootOptions) (*config.Config, error) {
	if rootOpts.EnvFile != "" {
		return config.LoadWithPath(rootOpts.EnvFile)
	}
	return config.Load()
}
