package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/quant-sim/internal/backtest"
	"github.com/trogers1052/quant-sim/internal/database"
	"github.com/trogers1052/quant-sim/internal/strategy"
)

func backtestCmd() *cobra.Command {
	var (
		strategyName string
		symbols      []string
		startStr     string
		endStr       string
		benchmark    string
		shortPeriod  int
		longPeriod   int
		rsiPeriod    int
		oversold     float64
		overbought   float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a historical backtest and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			start, err := time.Parse("2006-01-02", startStr)
			if err != nil {
				return fmt.Errorf("invalid --start date: %w", err)
			}
			end, err := time.Parse("2006-01-02", endStr)
			if err != nil {
				return fmt.Errorf("invalid --end date: %w", err)
			}

			var strat strategy.Strategy
			switch strategyName {
			case "double_ma":
				strat, err = strategy.NewDoubleMA(shortPeriod, longPeriod)
			case "rsi":
				strat, err = strategy.NewRSIStrategy(rsiPeriod, oversold, overbought)
			default:
				return fmt.Errorf("unknown strategy: %q", strategyName)
			}
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database.ConnectionString())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			ctx := context.Background()
			req := backtest.Request{
				Strategy: strat,
				Symbols:  symbols,
				Start:    start,
				End:      end,
				Fetcher:  db,
			}
			if benchmark != "" {
				bars, err := db.GetSeries(ctx, benchmark, start, end)
				if err != nil {
					return fmt.Errorf("failed to load benchmark series: %w", err)
				}
				req.Benchmark = bars
			}

			result, err := backtest.New(cfg.Trading).Run(ctx, req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "double_ma", "Strategy: double_ma or rsi")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols to backtest (required)")
	cmd.Flags().StringVar(&startStr, "start", "", "Start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endStr, "end", "", "End date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&benchmark, "benchmark", "", "Benchmark symbol for alpha")
	cmd.Flags().IntVar(&shortPeriod, "short-period", 5, "Short MA period")
	cmd.Flags().IntVar(&longPeriod, "long-period", 20, "Long MA period")
	cmd.Flags().IntVar(&rsiPeriod, "rsi-period", 14, "RSI period")
	cmd.Flags().Float64Var(&oversold, "oversold", 30, "RSI oversold threshold")
	cmd.Flags().Float64Var(&overbought, "overbought", 70, "RSI overbought threshold")
	cmd.MarkFlagRequired("symbols")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}
