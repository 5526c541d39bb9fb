package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/reader/internal/config"
	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/llm"
	"github.com/TobiSchelling/reader/internal/logging"
	"github.com/TobiSchelling/reader/internal/prompts"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	flushLogs  = func() {}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	flushLogs()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reader",
	Short:   "Personal article inbox ranked by pairwise comparison",
	Long:    "Reader collects articles from your feeds, ranks them with Elo ratings from pairwise LLM comparisons, and refines its criteria from your feedback.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		flush, err := logging.Setup(level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		flushLogs = flush
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(generationsCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reader", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/reader/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds and the judge backend.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and ranking status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Articles:")
		fmt.Printf("  Total collected: %d\n", stats.TotalArticles)
		fmt.Printf("  Scored: %d\n", stats.ScoredArticles)
		fmt.Printf("  Confident ratings: %d\n", stats.ConfidentArticles)
		fmt.Printf("  Comparisons: %d\n", stats.Comparisons)
		fmt.Println("\nCriteria:")
		fmt.Printf("  Generations: %d\n", stats.Generations)
		fmt.Printf("  Active: %d\n", stats.ActiveGeneration)
		fmt.Println("\nFeedback:")
		fmt.Printf("  Total: %d\n", stats.FeedbackTotal)
		fmt.Printf("  Awaiting refinement: %d\n", stats.FeedbackPending)
		fmt.Println("\nJudge:")
		fmt.Printf("  Backend: %s\n", cfg.Judge.Backend)
		return nil
	},
}

// openDB opens the database in the configured data directory and makes sure
// a generation of scoring criteria is active.
func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := database.Open(filepath.Join(dataDir, "reader.db"))
	if err != nil {
		return nil, err
	}
	if _, err := prompts.EnsureActive(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newJudge builds the configured judge and, when the backend supports it,
// checks that it is reachable.
func newJudge(ctx context.Context) (llm.Judge, error) {
	judge, err := llm.NewJudge(ctx, cfg.Judge)
	if err != nil {
		return nil, err
	}
	if c, ok := judge.(llm.Checker); ok {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := c.Check(checkCtx); err != nil {
			return nil, fmt.Errorf("judge %s unavailable: %w", judge.Name(), err)
		}
	}
	zap.S().Debugf("Judge %s ready", judge.Name())
	return judge, nil
}
