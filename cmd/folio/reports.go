package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	olderThanDays int
	listDays      int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect and maintain the report archive",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, log, a, err := bootstrap(ctx, nil)
		if err != nil {
			return err
		}
		defer log.Sync()

		if a.Archive() == nil {
			return fmt.Errorf("archive is disabled")
		}
		var from time.Time
		if listDays > 0 {
			from = time.Now().AddDate(0, 0, -listDays)
		}
		reports, err := a.Archive().Range(ctx, from, time.Time{})
		if err != nil {
			return err
		}

		type row struct {
			ID        string    `json:"id"`
			Timestamp time.Time `json:"timestamp"`
			Value     float64   `json:"current_value"`
			RiskLevel string    `json:"overall_risk_level"`
		}
		rows := make([]row, 0, len(reports))
		for _, r := range reports {
			rows = append(rows, row{r.ID, r.Timestamp, r.Performance.CurrentValue, r.RiskAnalysis.OverallRiskLevel})
		}
		return printJSON(cmd, rows)
	},
}

var reportsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete archived reports older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if olderThanDays <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		ctx := context.Background()
		_, log, a, err := bootstrap(ctx, nil)
		if err != nil {
			return err
		}
		defer log.Sync()

		if a.Archive() == nil {
			return fmt.Errorf("archive is disabled")
		}
		removed, err := a.Archive().Prune(ctx, time.Now().AddDate(0, 0, -olderThanDays))
		if err != nil {
			return err
		}
		log.Info("pruned archived reports", zap.Int("removed", removed), zap.Int("older_than_days", olderThanDays))
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d report(s)\n", removed)
		return nil
	},
}

func init() {
	reportsListCmd.Flags().IntVar(&listDays, "days", 0, "only list reports from the last N days")
	reportsPruneCmd.Flags().IntVar(&olderThanDays, "older-than", 90, "age in days")
	reportsCmd.AddCommand(reportsListCmd, reportsPruneCmd)
	rootCmd.AddCommand(reportsCmd)
}
