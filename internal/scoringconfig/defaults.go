package scoringconfig

import "github.com/investorcenter/ic-engine/internal/contracts"

// Default returns the built-in parameter set, identical to the shipped
// config/weights.yaml. Used by tests and as a fallback when no file is
// configured.
func Default() *Config {
	return &Config{
		Meta: Meta{Name: "ic-score-default", Version: "2.1"},
		Weights: WeightTables{
			Base: contracts.Weights{
				Value:               0.12,
				Growth:              0.12,
				Profitability:       0.11,
				FinancialHealth:     0.10,
				Momentum:            0.09,
				AnalystConsensus:    0.07,
				InsiderActivity:     0.05,
				Institutional:       0.05,
				NewsSentiment:       0.05,
				Technical:           0.07,
				EarningsRevisions:   0.07,
				HistoricalValuation: 0.06,
				DividendQuality:     0.04,
			},
			StageMultipliers: StageMultipliers{
				Hypergrowth: contracts.Weights{
					Value: 0.4, Growth: 1.5, Profitability: 0.5, FinancialHealth: 0.8,
					Momentum: 1.3, AnalystConsensus: 1.1, InsiderActivity: 1.0,
					Institutional: 1.0, NewsSentiment: 1.2, Technical: 1.0,
					EarningsRevisions: 1.3, HistoricalValuation: 0.4, DividendQuality: 0.2,
				},
				Growth: contracts.Weights{
					Value: 0.7, Growth: 1.3, Profitability: 0.8, FinancialHealth: 1.0,
					Momentum: 1.2, AnalystConsensus: 1.1, InsiderActivity: 1.0,
					Institutional: 1.0, NewsSentiment: 1.1, Technical: 1.0,
					EarningsRevisions: 1.2, HistoricalValuation: 0.8, DividendQuality: 0.6,
				},
				Turnaround: contracts.Weights{
					Value: 1.2, Growth: 0.6, Profitability: 0.7, FinancialHealth: 1.4,
					Momentum: 1.3, AnalystConsensus: 1.0, InsiderActivity: 1.3,
					Institutional: 1.2, NewsSentiment: 1.0, Technical: 1.1,
					EarningsRevisions: 1.0, HistoricalValuation: 1.0, DividendQuality: 0.5,
				},
				Value: contracts.Weights{
					Value: 1.4, Growth: 0.5, Profitability: 1.2, FinancialHealth: 1.1,
					Momentum: 0.8, AnalystConsensus: 1.0, InsiderActivity: 1.0,
					Institutional: 1.0, NewsSentiment: 0.9, Technical: 0.9,
					EarningsRevisions: 1.0, HistoricalValuation: 1.3, DividendQuality: 1.4,
				},
				Mature: contracts.Weights{
					Value: 1.1, Growth: 0.7, Profitability: 1.2, FinancialHealth: 1.2,
					Momentum: 0.9, AnalystConsensus: 1.0, InsiderActivity: 1.0,
					Institutional: 1.0, NewsSentiment: 1.0, Technical: 1.0,
					EarningsRevisions: 1.0, HistoricalValuation: 1.2, DividendQuality: 1.3,
				},
			},
		},
		Lifecycle: LifecycleParams{
			HypergrowthRevenueGrowth: 0.50,
			GrowthRevenueGrowth:      0.20,
			ValuePEMax:               12.0,
			ValueMarginMin:           0.05,
		},
		Smoothing: SmoothingParams{Alpha: 0.7, MinChange: 0.5, LookbackDays: 7},
		Completeness: CompletenessGate{MinRatio: 0.40, MinCoreFactors: 2},
		Sector: SectorParams{
			MinSampleSize: 5,
			Metrics: []string{
				"pe_ratio", "ps_ratio", "pb_ratio",
				"ev_ebitda", "peg_ratio", "debt_to_equity",
			},
			LowerIsBetter: []string{
				"pe_ratio", "ps_ratio", "pb_ratio",
				"ev_ebitda", "peg_ratio", "debt_to_equity",
			},
		},
		Explain:  ExplainParams{SignificantDelta: 3.0, TopDrivers: 5},
		Backtest: BacktestDefaults{TransactionCostBps: 10, SlippageBps: 5, Benchmark: "SPY"},
	}
}
