package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/povarna/generative-ai-agents/course-agent/internal/config"
	"github.com/povarna/generative-ai-agents/course-agent/internal/database"
	"github.com/povarna/generative-ai-agents/course-agent/internal/setup"
	"github.com/povarna/generative-ai-agents/course-agent/internal/setup/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	log      zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "course-ingest",
	Short: "Manage the course index: schema, loading and inspection",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, "No .env file found")
		}
		log = logger.New(logLevel)
	},
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the pgvector extension, course tables and indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := setup.LoadConfig()

		db, err := database.NewWithBackoff(ctx, cfg.Database, cfg.DBMaxRetries)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx, cfg.EmbeddingDimensions); err != nil {
			return err
		}

		log.Info().Int("dimensions", cfg.EmbeddingDimensions).Msg("Schema migrated")
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <path>",
	Short: "Load a course JSON file or every course file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := wireIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Loader.IngestPath(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d courses with %d chunks (%d skipped, %d failed)\n",
			stats.Courses, stats.Chunks, stats.Skipped, stats.Failed)
		if stats.Failed > 0 {
			return fmt.Errorf("%d course files failed to load", stats.Failed)
		}
		return nil
	},
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List indexed course titles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := wireIndex(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total courses: %d\n", deps.Store.CourseCount(cmd.Context()))
		for _, title := range deps.Store.ExistingCourseTitles(cmd.Context()) {
			fmt.Fprintf(out, "  - %s\n", title)
		}
		return nil
	},
}

func wireIndex(ctx context.Context) (*setup.Dependencies, error) {
	prompts, err := config.LoadPromptsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts config: %w", err)
	}
	return setup.WireIndex(ctx, setup.LoadConfig(), prompts, &log)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(migrateCmd, loadCmd, coursesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
