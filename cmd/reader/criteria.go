package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/reader/internal/database"
	"github.com/TobiSchelling/reader/internal/feedback"
	"github.com/TobiSchelling/reader/internal/llm"
	"github.com/TobiSchelling/reader/internal/refine"
	"github.com/TobiSchelling/reader/internal/server"
)

// --- refine command ---

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Rewrite the scoring criteria from recent feedback",
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

		gen, err := refine.NewJob(db, judge, cfg.Refinement.Window()).Run(cmd.Context())
		if err != nil {
			return err
		}
		if gen == nil {
			fmt.Printf("No feedback in the last %s, criteria unchanged.\n", cfg.Refinement.Window())
			return nil
		}
		fmt.Printf("Created generation %d from %d feedback items.\n", gen.ID, gen.FeedbackCount)
		if gen.DiffFromPrevious != nil && *gen.DiffFromPrevious != "" {
			fmt.Println()
			fmt.Print(*gen.DiffFromPrevious)
		}
		return nil
	},
}

// --- generations command ---

var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "Inspect the history of scoring criteria",
}

var generationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all generations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		gens, err := db.ListGenerations()
		if err != nil {
			return err
		}
		for _, g := range gens {
			icon := " "
			if g.IsActive {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s  %d feedback items\n", g.ID, icon, g.CreatedAt.Format("2006-01-02 15:04"), g.FeedbackCount)
		}
		return nil
	},
}

var generationsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a generation's criteria and diff",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid generation ID: %s", args[0])
		}
		g, err := db.GetGeneration(id)
		if err != nil {
			return err
		}
		if g == nil {
			return fmt.Errorf("generation %d not found", id)
		}

		state := "inactive"
		if g.IsActive {
			state = "active"
		}
		fmt.Printf("Generation %d (%s), created %s from %d feedback items\n\n",
			g.ID, state, g.CreatedAt.Format("2006-01-02 15:04"), g.FeedbackCount)
		fmt.Println(g.PromptText)
		if g.DiffFromPrevious != nil && *g.DiffFromPrevious != "" {
			fmt.Println("\nChanges from previous:")
			fmt.Print(*g.DiffFromPrevious)
		}
		return nil
	},
}

func init() {
	generationsCmd.AddCommand(generationsListCmd)
	generationsCmd.AddCommand(generationsShowCmd)
}

// --- feedback command ---

var characterize bool

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and review feedback on articles",
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add [article-id] [text]",
	Short: "Record feedback on an article",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		articleID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid article ID: %s", args[0])
		}
		text := strings.Join(args[1:], " ")

		var judge llm.Judge
		if characterize {
			if judge, err = newJudge(cmd.Context()); err != nil {
				return err
			}
		}
		collector := feedback.NewCollector(db, judge)

		var scorecard *database.FiveWhats
		if characterize && strings.TrimSpace(text) != "" {
			if scorecard, err = collector.Characterize(cmd.Context(), articleID); err != nil {
				return err
			}
		}

		id, err := collector.Record(articleID, text, scorecard)
		if err != nil {
			return err
		}
		fmt.Printf("Recorded feedback [%d] on article %d.\n", id, articleID)
		if scorecard != nil {
			fmt.Printf("  topic=%s, style=%s, depth=%s, emotion=%s, level=%s\n",
				scorecard.Topic, scorecard.Style, scorecard.Depth, scorecard.Emotion, scorecard.Level)
		}
		return nil
	},
}

var feedbackPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List feedback not yet used by a refinement",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := feedback.NewCollector(db, nil).UnconsumedSince(time.Time{})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No pending feedback.")
			return nil
		}

		cutoff := time.Now().Add(-cfg.Refinement.Window())
		for _, f := range items {
			marker := " "
			if f.CreatedAt.Before(cutoff) {
				// Outside the window; the next refinement will not see it.
				marker = "-"
			}
			fmt.Printf("  [%d] %s %s article %d: %s\n", f.ID, marker, f.CreatedAt.Format("2006-01-02 15:04"), f.ArticleID, f.Text)
		}
		return nil
	},
}

func init() {
	feedbackAddCmd.Flags().BoolVar(&characterize, "characterize", false, "Ask the judge for a Five-Whats characterization of the article")
	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackPendingCmd)
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and the refinement scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		judge, err := newJudge(ctx)
		if err != nil {
			zap.S().Warnf("Judge unavailable, serving without characterization or refinement: %v", err)
		}

		if judge != nil {
			sched := refine.NewScheduler(refine.NewJob(db, judge, cfg.Refinement.Window()))
			if err := sched.Schedule(ctx, cfg.Refinement.Schedule); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()
			zap.S().Infof("Next refinement at %s", sched.Next().Format(time.RFC3339))
		}

		srv, err := server.New(db, judge)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")

		return server.Serve(ctx, srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}
