package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// sectorCmd groups sector percentile operations.
var sectorCmd = &cobra.Command{
	Use:   "sector",
	Short: "Sector percentile operations",
	Long: `Rebuild or inspect sector metric distributions.

Example:
  go run ./cmd/engine sector refresh
  go run ./cmd/engine sector list`,
}

var sectorRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild all sector metric distributions",
	RunE:  refreshSectors,
}

var sectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sectors with computed distributions",
	RunE:  listSectors,
}

func init() {
	rootCmd.AddCommand(sectorCmd)
	sectorCmd.AddCommand(sectorRefreshCmd)
	sectorCmd.AddCommand(sectorListCmd)
}

func refreshSectors(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.refresher.Refresh(context.Background(), time.Now())
	if err != nil {
		return fmt.Errorf("sector refresh failed: %w", err)
	}

	fmt.Printf("Refreshed %d sector/metric distributions\n", n)
	return nil
}

func listSectors(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sectors, err := a.sectors.Sectors(context.Background())
	if err != nil {
		return fmt.Errorf("list sectors: %w", err)
	}
	for _, s := range sectors {
		fmt.Println(s)
	}
	return nil
}
