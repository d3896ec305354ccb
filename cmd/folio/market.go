package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var historyDays int

var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL...",
	Short: "Fetch current quotes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, log, a, err := bootstrap(ctx, nil)
		if err != nil {
			return err
		}
		defer log.Sync()

		symbols := make([]string, len(args))
		for i, s := range args {
			symbols[i] = strings.ToUpper(strings.TrimSpace(s))
		}
		quotes, failed := a.Service().Quotes(ctx, symbols)
		return printJSON(cmd, map[string]any{"quotes": quotes, "errors": failed})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history SYMBOL",
	Short: "Fetch a historical price series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, log, a, err := bootstrap(ctx, nil)
		if err != nil {
			return err
		}
		defer log.Sync()

		series := a.History().GetHistory(ctx, strings.ToUpper(args[0]), historyDays)
		return printJSON(cmd, series)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 30, "number of trading days")
	rootCmd.AddCommand(quoteCmd, historyCmd)
}
