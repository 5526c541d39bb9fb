package main

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/reader/internal/collect"
	"github.com/TobiSchelling/reader/internal/pipeline"
	"github.com/TobiSchelling/reader/internal/scoring"
)

// --- collect command ---

var collectDaysBack int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect articles from configured feeds without scoring them",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Collecting articles from feeds...")
		result, err := collect.NewCollector(cfg, db, collectDaysBack).Collect(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New articles: %d\n", result.NewArticles)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nArticles by source:")
			names := make([]string, 0, len(result.Sources))
			for name := range result.Sources {
				names = append(names, name)
			}
			slices.SortFunc(names, func(a, b string) int {
				return cmp.Compare(result.Sources[b], result.Sources[a])
			})
			for _, name := range names {
				fmt.Printf("  %s: %d\n", name, result.Sources[name])
			}
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectDaysBack, "days-back", 7, "Ignore feed entries older than this many days (0 for no limit)")
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline: collect -> fetch -> score",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var result *pipeline.Result
		if dryRun {
			result = pipeline.New(cfg, db, nil).DryRun()
		} else {
			judge, err := newJudge(cmd.Context())
			if err != nil {
				return err
			}
			result = pipeline.New(cfg, db, judge).Run(cmd.Context())
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return errors.New("pipeline finished with errors")
		}
		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'reader serve' to read your inbox.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- score command ---

var (
	scorePending bool
	scoreLimit   int
)

var scoreCmd = &cobra.Command{
	Use:   "score [article-id]",
	Short: "Score one article, or every unscored article with --pending",
	Args: func(cmd *cobra.Command, args []string) error {
		if scorePending {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		judge, err := newJudge(cmd.Context())
		if err != nil {
			return err
		}
		scorer := scoring.NewScorer(db, judge, scoringOptions(), nil)

		if scorePending {
			br, err := scorer.ScorePending(cmd.Context(), scoreLimit)
			if err != nil {
				return err
			}
			fmt.Printf("Scored %d articles with %d comparisons\n", br.Articles, br.Comparisons)
			for _, msg := range br.Errors {
				fmt.Printf("  ! %s\n", msg)
			}
			return nil
		}

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid article ID: %s", args[0])
		}
		r, err := scorer.ScoreArticle(cmd.Context(), id)
		if err != nil {
			return err
		}
		confidence := "provisional"
		if r.Confident {
			confidence = "confident"
		}
		fmt.Printf("Article %d: %d comparisons completed, rating %.1f (%d total, %s)\n",
			r.ArticleID, r.Completed, r.Rating, r.Comparisons, confidence)
		for _, msg := range r.Errors {
			fmt.Printf("  ! %s\n", msg)
		}
		return nil
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scorePending, "pending", false, "Score every article that has not been scored yet")
	scoreCmd.Flags().IntVar(&scoreLimit, "limit", 50, "Maximum number of pending articles to score")
}

func scoringOptions() scoring.Options {
	return scoring.Options{
		KFactor:      cfg.Scoring.KFactor,
		Opponents:    cfg.Scoring.Opponents,
		PreviewChars: cfg.Scoring.PreviewChars,
		Workers:      cfg.Scoring.Workers,
	}
}
