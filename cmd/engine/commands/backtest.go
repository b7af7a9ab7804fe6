package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// backtestCmd runs a backtest synchronously and prints the summary.
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a decile backtest",
	Long: `Run a decile backtest over historical scores and print the
per-decile performance table.

Example:
  go run ./cmd/engine backtest --start 2022-01-01 --end 2024-12-31
  go run ./cmd/engine backtest --start 2022-01-01 --end 2024-12-31 --frequency quarterly --raw`,
	RunE: runBacktest,
}

var (
	btStart     string
	btEnd       string
	btFrequency string
	btTxnCost   float64
	btSlippage  float64
	btBenchmark string
	btRaw       bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVar(&btStart, "start", "", "start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "end date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btFrequency, "frequency", "monthly", "rebalance frequency (daily|weekly|monthly|quarterly)")
	backtestCmd.Flags().Float64Var(&btTxnCost, "txn-cost", 10, "transaction cost in bps")
	backtestCmd.Flags().Float64Var(&btSlippage, "slippage", 5, "slippage in bps")
	backtestCmd.Flags().StringVar(&btBenchmark, "benchmark", "", "benchmark ticker (default from weights YAML)")
	backtestCmd.Flags().BoolVar(&btRaw, "raw", false, "rank on raw scores instead of smoothed")
	_ = backtestCmd.MarkFlagRequired("start")
	_ = backtestCmd.MarkFlagRequired("end")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start, err := time.Parse("2006-01-02", btStart)
	if err != nil {
		return fmt.Errorf("invalid --start %q: %w", btStart, err)
	}
	end, err := time.Parse("2006-01-02", btEnd)
	if err != nil {
		return fmt.Errorf("invalid --end %q: %w", btEnd, err)
	}

	benchmark := btBenchmark
	if benchmark == "" {
		benchmark = a.scoringCfg.Backtest.Benchmark
	}

	cfg := contracts.BacktestConfig{
		StartDate:          start,
		EndDate:            end,
		Frequency:          contracts.RebalanceFrequency(btFrequency),
		TransactionCostBps: btTxnCost,
		SlippageBps:        btSlippage,
		BenchmarkTicker:    benchmark,
		UseSmoothed:        !btRaw,
	}

	job, err := a.runner.Submit(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("submit backtest: %w", err)
	}

	fmt.Printf("Backtest %s running (%s to %s, %s)...\n",
		job.ID[:8], btStart, btEnd, cfg.Frequency)

	// Poll until the job settles. The runner works in its own
	// goroutine; this command just waits for it.
	for {
		time.Sleep(500 * time.Millisecond)
		current, err := a.runner.Job(context.Background(), job.ID)
		if err != nil {
			return fmt.Errorf("poll job: %w", err)
		}
		if current.Status == contracts.JobFailed {
			return fmt.Errorf("backtest failed: %s", current.Error)
		}
		if current.Status == contracts.JobCompleted {
			break
		}
	}

	summary, err := a.runner.Summary(context.Background(), job.ID)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}

	printSummary(summary)
	return nil
}

func printSummary(s *contracts.BacktestSummary) {
	fmt.Printf("\nPeriods: %d  Benchmark: %s (%.1f%% ann.)\n",
		len(s.Periods), s.Config.BenchmarkTicker, s.BenchmarkAnnualized*100)
	fmt.Printf("Monotonicity: %+.2f  HitRate(D1>D10): %.0f%%  IR: %.2f\n\n",
		s.Monotonicity, s.HitRate*100, s.InformationRatio)

	fmt.Println("Decile   AnnRet    Vol   Sharpe   MaxDD  Turnover  AvgScore")
	for _, d := range s.Deciles {
		fmt.Printf("  D%-2d   %+6.1f%%  %5.1f%%  %6.2f  %6.1f%%  %7.0f%%  %7.1f\n",
			d.Decile, d.AnnualizedReturn*100, d.Volatility*100, d.Sharpe,
			d.MaxDrawdown*100, d.AvgTurnover*100, d.AvgScore)
	}
}
