package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// scoreCmd groups the scoring subcommands.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Scoring pipeline operations",
	Long: `Run or inspect the scoring pipeline.

Subcommands:
  run     - Score the full universe for a date
  show    - Print one ticker's latest score

Example:
  go run ./cmd/engine score run
  go run ./cmd/engine score run --date 2026-08-01
  go run ./cmd/engine score show AAPL`,
}

var scoreDate string

var scoreRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Score the full universe",
	RunE:  runScoring,
}

var scoreShowCmd = &cobra.Command{
	Use:   "show [ticker]",
	Short: "Print one ticker's latest score",
	Args:  cobra.ExactArgs(1),
	RunE:  showScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.AddCommand(scoreRunCmd)
	scoreCmd.AddCommand(scoreShowCmd)
	scoreRunCmd.Flags().StringVar(&scoreDate, "date", "", "scoring date YYYY-MM-DD (default today)")
}

func runScoring(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	asOf := time.Now()
	if scoreDate != "" {
		asOf, err = time.Parse("2006-01-02", scoreDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", scoreDate, err)
		}
	}

	stats, err := a.pipeline.ComputeDailyScores(context.Background(), asOf)
	if err != nil {
		return fmt.Errorf("scoring run failed: %w", err)
	}

	fmt.Printf("Scored %d/%d tickers (%d skipped, %d failed, %d changes) in %s\n",
		stats.Scored, stats.Universe, stats.Skipped, stats.Failed, stats.Changes, stats.Elapsed)
	return nil
}

func showScore(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ticker := args[0]
	score, err := a.store.Scores.LatestScore(context.Background(), ticker, time.Now().AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("load score: %w", err)
	}
	if score == nil {
		return fmt.Errorf("no score for %s", ticker)
	}

	fmt.Printf("%s  %s\n", score.Ticker, score.Date.Format("2006-01-02"))
	fmt.Printf("  Score:      %.1f (%s)\n", score.OverallScore, score.Rating)
	fmt.Printf("  Raw:        %.1f\n", score.RawScore)
	fmt.Printf("  Stage:      %s\n", score.Lifecycle)
	fmt.Printf("  Confidence: %s (completeness %.0f%%)\n", score.Confidence, score.DataCompleteness*100)
	if score.SectorPercentile != nil {
		fmt.Printf("  Sector:     %s, rank %d/%d (p%.0f)\n",
			score.Sector, derefInt(score.SectorRank), derefInt(score.SectorTotal), *score.SectorPercentile)
	}
	return nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
