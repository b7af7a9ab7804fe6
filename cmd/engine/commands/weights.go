package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
	"github.com/investorcenter/ic-engine/pkg/config"
)

// weightsCmd validates and inspects the weights YAML without touching
// the database.
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Validate and inspect the weights YAML",
	Long: `Load the weights file, run full validation, and print the
parameter-set hash plus the normalized per-stage weight tables.

Example:
  go run ./cmd/engine weights
  go run ./cmd/engine weights --weights config/weights.yaml`,
	RunE: inspectWeights,
}

func init() {
	rootCmd.AddCommand(weightsCmd)
}

func inspectWeights(cmd *cobra.Command, args []string) error {
	path := weightsPath
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.Engine.WeightsPath
	}

	scoringCfg, _, err := scoringconfig.Load(path)
	if err != nil {
		return fmt.Errorf("weights file invalid: %w", err)
	}
	hash, err := scoringconfig.Hash(scoringCfg)
	if err != nil {
		return fmt.Errorf("hash weights: %w", err)
	}

	fmt.Printf("%s (%s %s)\n", path, scoringCfg.Meta.Name, scoringCfg.Meta.Version)
	fmt.Printf("Hash: %s\n\n", hash)

	fmt.Printf("%-22s", "factor")
	for _, stage := range contracts.AllStages {
		fmt.Printf("%12s", stage)
	}
	fmt.Println()

	stageWeights := make(map[contracts.Stage]contracts.Weights, len(contracts.AllStages))
	for _, stage := range contracts.AllStages {
		stageWeights[stage] = scoringCfg.Weights.StageWeights(stage)
	}
	for _, factor := range contracts.AllFactors {
		fmt.Printf("%-22s", factor)
		for _, stage := range contracts.AllStages {
			w := stageWeights[stage]
			fmt.Printf("%12.3f", w.Get(factor))
		}
		fmt.Println()
	}
	return nil
}
