package service

import (
	"context"
	"fmt"
	"sync"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/internal/repository"
	"turtle-trading/internal/turtle"
	"turtle-trading/pkg/logger"

	"golang.org/x/sync/errgroup"
)

type BacktestService interface {
	RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error)
}

type backtestService struct {
	cfg            *config.Config
	log            *logger.Logger
	marketDataRepo repository.MarketDataRepository
}

func NewBacktestService(cfg *config.Config, log *logger.Logger, marketDataRepo repository.MarketDataRepository) BacktestService {
	return &backtestService{
		cfg:            cfg,
		log:            log,
		marketDataRepo: marketDataRepo,
	}
}

// RunBacktest fetches history for the requested symbols and runs one turtle
// backtest over them. Symbols with too little data are skipped, not fatal.
func (s *backtestService) RunBacktest(ctx context.Context, req dto.BacktestRequest) (*dto.BacktestResult, error) {
	data, err := s.fetchData(ctx, req.Symbols, req.Range)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to fetch backtest data", logger.ErrorField(err))
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no historical data available for symbols %v", req.Symbols)
	}

	config := s.buildConfig(req)
	result := turtle.NewBacktester(config).Run(data)

	s.log.InfoContext(ctx, "Backtest completed",
		logger.IntField("symbols", len(data)),
		logger.IntField("total_trades", result.TotalTrades),
		logger.Float64Field("final_equity", result.FinalEquity))

	return &result, nil
}

func (s *backtestService) buildConfig(req dto.BacktestRequest) dto.BacktestConfig {
	config := dto.DefaultBacktestConfig()
	config.System = s.cfg.Turtle.System
	config.MaxUnits = s.cfg.Turtle.MaxUnits
	config.PyramidIntervalN = s.cfg.Turtle.PyramidIntervalN
	config.StopDistanceN = s.cfg.Turtle.StopDistanceN
	config.UseFilter = s.cfg.Turtle.UseFilter
	config.CommissionPct = s.cfg.Turtle.CommissionPct

	if req.System != 0 {
		config.System = req.System
	}
	if req.InitialCapital > 0 {
		config.InitialCapital = req.InitialCapital
	}
	if req.RiskPercent > 0 {
		config.RiskPercent = req.RiskPercent
	}
	if req.UseFilter != nil {
		config.UseFilter = *req.UseFilter
	}
	if req.CommissionPct != nil {
		config.CommissionPct = *req.CommissionPct
	}
	return config
}

// fetchData loads candles for all symbols with bounded concurrency. The
// engine itself stays single-threaded; only this I/O fan-out is concurrent.
func (s *backtestService) fetchData(ctx context.Context, symbols []string, rng string) (map[string][]dto.Bar, error) {
	var mu sync.Mutex
	data := make(map[string][]dto.Bar, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scheduler.MaxConcurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			bars, err := s.marketDataRepo.GetCandles(gctx, dto.GetCandlesParam{
				Symbol:   symbol,
				Range:    rng,
				Interval: "1d",
			})
			if err != nil {
				s.log.WarnContext(gctx, "Skipping symbol, fetch failed",
					logger.StringField("symbol", symbol), logger.ErrorField(err))
				return nil
			}
			if len(bars) < 2 {
				s.log.WarnContext(gctx, "Skipping symbol, not enough bars",
					logger.StringField("symbol", symbol), logger.IntField("bars", len(bars)))
				return nil
			}

			mu.Lock()
			data[symbol] = bars
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
