package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/folio/internal/analysis"
	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/report"
)

var (
	riskTolerance string
	timeHorizon   string
	timeout       time.Duration
)

// portfolioFile is either a bare list of positions or an object holding
// positions and an investor profile.
type portfolioFile struct {
	Positions []core.Position `json:"positions"`
	report.Profile
}

func readPortfolio(path string) (portfolioFile, error) {
	var pf portfolioFile
	data, err := os.ReadFile(path)
	if err != nil {
		return pf, fmt.Errorf("reading portfolio: %w", err)
	}
	if err := json.Unmarshal(data, &pf.Positions); err == nil {
		return pf, nil
	}
	if err := json.Unmarshal(data, &pf); err != nil {
		return pf, core.WrapError(core.ErrInvalidPosition, fmt.Errorf("decoding %s: %w", path, err))
	}
	return pf, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze PORTFOLIO.json",
	Short: "Run a full portfolio analysis and print the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pf, err := readPortfolio(args[0])
		if err != nil {
			return err
		}
		if riskTolerance != "" {
			pf.RiskTolerance = riskTolerance
		}
		if timeHorizon != "" {
			pf.TimeHorizon = timeHorizon
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, log, a, err := bootstrap(ctx, nil)
		if err != nil {
			return err
		}
		defer log.Sync()

		r, err := a.Service().Analyze(ctx, analysis.Request{Positions: pf.Positions, Profile: pf.Profile})
		if err != nil {
			return err
		}
		return printJSON(cmd, r)
	},
}

var riskCmd = &cobra.Command{
	Use:   "risk PORTFOLIO.json",
	Short: "Compute portfolio risk only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pf, err := readPortfolio(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, log, a, err := bootstrap(ctx, nil)
		if err != nil {
			return err
		}
		defer log.Sync()

		ra, err := a.Service().Risk(ctx, pf.Positions)
		if err != nil {
			return err
		}
		return printJSON(cmd, ra)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&riskTolerance, "risk-tolerance", "", "override the risk tolerance (conservative, moderate, aggressive)")
	analyzeCmd.Flags().StringVar(&timeHorizon, "time-horizon", "", "override the investment time horizon")
	for _, c := range []*cobra.Command{analyzeCmd, riskCmd} {
		c.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "analysis timeout")
	}
	rootCmd.AddCommand(analyzeCmd, riskCmd)
}
