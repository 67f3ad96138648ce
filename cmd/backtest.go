package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"turtle-trading/internal/dto"
	"turtle-trading/internal/repository"
	"turtle-trading/internal/service"
	"turtle-trading/pkg/utils"

	"github.com/spf13/cobra"
)

var validRanges = []string{"1m", "2m", "3m", "6m", "1y", "2y", "5y"}

var (
	backtestSymbols    []string
	backtestRange      string
	backtestSystem     int
	backtestCapital    float64
	backtestRisk       float64
	backtestFilter     bool
	backtestCommission float64
	backtestOutput     string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a turtle backtest from the command line",
	Run:   RunBacktestCLI,
}

func init() {
	backtestCmd.Flags().StringSliceVarP(&backtestSymbols, "symbols", "s", nil, "symbols to backtest (required)")
	backtestCmd.Flags().StringVarP(&backtestRange, "range", "r", "2y", "history range, e.g. 1y, 2y, 5y")
	backtestCmd.Flags().IntVar(&backtestSystem, "system", 0, "turtle system: 1 (20-day) or 2 (55-day)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital")
	backtestCmd.Flags().Float64Var(&backtestRisk, "risk", 0, "risk fraction per unit, e.g. 0.01")
	backtestCmd.Flags().BoolVar(&backtestFilter, "filter", true, "System 1 skips breakouts after a winning trade")
	backtestCmd.Flags().Float64Var(&backtestCommission, "commission", 0, "commission fraction per fill, e.g. 0.001")
	backtestCmd.Flags().StringVarP(&backtestOutput, "output", "o", "", "write full JSON result to file")
	_ = backtestCmd.MarkFlagRequired("symbols")
}

// RunBacktestCLI runs a single backtest without the database or telegram,
// only the market data pipeline is wired.
func RunBacktestCLI(cmd *cobra.Command, args []string) {
	if !utils.ContainsString(validRanges, backtestRange) {
		log.Fatalf("Invalid range %q, expected one of %v", backtestRange, validRanges)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependencyLite(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	marketDataRepo := repository.NewYahooFinanceRepository(appDep.cfg, appDep.cache, appDep.log)
	backtestService := service.NewBacktestService(appDep.cfg, appDep.log, marketDataRepo)

	req := dto.BacktestRequest{
		Symbols:        backtestSymbols,
		Range:          backtestRange,
		System:         backtestSystem,
		InitialCapital: backtestCapital,
		RiskPercent:    backtestRisk,
	}
	// Unset flags leave the request fields nil so config defaults apply.
	if cmd.Flags().Changed("filter") {
		req.UseFilter = utils.BoolPtr(backtestFilter)
	}
	if cmd.Flags().Changed("commission") {
		req.CommissionPct = utils.Float64Ptr(backtestCommission)
	}

	result, err := backtestService.RunBacktest(ctx, req)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	printSummary(result)

	if backtestOutput != "" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		if err := os.WriteFile(backtestOutput, raw, 0o644); err != nil {
			log.Fatalf("Failed to write result file: %v", err)
		}
		fmt.Printf("Full result written to %s\n", backtestOutput)
	}
}

func printSummary(result *dto.BacktestResult) {
	fmt.Printf("System:         %d\n", result.Config.System)
	fmt.Printf("Final equity:   %.2f\n", result.FinalEquity)
	fmt.Printf("Total return:   %.2f%%\n", result.TotalReturn*100)
	fmt.Printf("CAGR:           %.2f%%\n", result.CAGR*100)
	fmt.Printf("Max drawdown:   %.2f%%\n", result.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:   %.2f\n", result.SharpeRatio)
	fmt.Printf("Trades:         %d (%d wins / %d losses)\n", result.TotalTrades, result.WinningTrades, result.LosingTrades)
	fmt.Printf("Win rate:       %.2f%%\n", result.WinRate*100)
	fmt.Printf("Profit factor:  %.2f\n", result.ProfitFactor)
	fmt.Printf("Avg win/loss:   %.2f / %.2f\n", result.AvgWin, result.AvgLoss)
}
