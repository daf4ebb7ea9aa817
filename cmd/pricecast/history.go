package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"PriceCast/internal/di"
	"PriceCast/internal/usecase"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		period string
		store  bool
	)
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Fetch daily history from Yahoo Finance",
		Long: `Prints the symbol's daily records with a summary, or with --store writes
them to the ClickHouse daily bar table for history.source clickhouse.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := root.load()
			if err != nil {
				return err
			}
			cfg.History.Source = "yahoo"
			cfg.History.CacheTTL = 0
			yahoo := di.ProvideHistoryProvider(cfg, nil, nil, l)

			if !store {
				res, err := usecase.NewHistoryUseCase(yahoo, nil, l).GetHistory(cmd.Context(), args[0], period)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			}

			cfg.ClickHouse.Enabled = true
			ch, err := di.ProvideClickHouseClient(cfg)
			if err != nil {
				return err
			}
			defer ch.Close()
			bars := di.ProvideDailyBarStore(ch, cfg, l)
			n, err := di.ProvideHistoryUseCase(yahoo, nil, bars, l).Ingest(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %d daily bars for %s in %s.%s\n",
				n, args[0], cfg.ClickHouse.Database, cfg.ClickHouse.Table)
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "1y", "history period (1mo 3mo 6mo 1y 2y 5y 10y max)")
	cmd.Flags().BoolVar(&store, "store", false, "write bars to ClickHouse instead of printing")
	return cmd
}
