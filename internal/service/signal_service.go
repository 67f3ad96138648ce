package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/internal/model"
	"turtle-trading/internal/repository"
	"turtle-trading/internal/turtle"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/telegram"
	"turtle-trading/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// SignalService runs the daily live check pass: exits for open positions,
// pyramid opportunities and filtered breakout entries, with portfolio risk
// admission. It shares the decision functions with the backtester.
type SignalService interface {
	CheckSignals(ctx context.Context) (*dto.SignalCheckResult, error)
	GetOpenPositions(ctx context.Context) ([]model.Position, error)
	GetPositionHistory(ctx context.Context, symbol string) ([]model.Position, error)
	GetRiskSummary(ctx context.Context) (*dto.RiskSummary, error)
}

type signalService struct {
	cfg            *config.Config
	log            *logger.Logger
	marketDataRepo repository.MarketDataRepository
	positionRepo   repository.PositionRepository
	notifier       *telegram.Notifier
	filter         *turtle.EntryExitFilter
	now            func() time.Time
}

func NewSignalService(
	cfg *config.Config,
	log *logger.Logger,
	marketDataRepo repository.MarketDataRepository,
	positionRepo repository.PositionRepository,
	notifier *telegram.Notifier,
) SignalService {
	filter := turtle.NewEntryExitFilter()
	filter.StopDistanceN = cfg.Turtle.StopDistanceN

	return &signalService{
		cfg:            cfg,
		log:            log,
		marketDataRepo: marketDataRepo,
		positionRepo:   positionRepo,
		notifier:       notifier,
		filter:         filter,
		now:            time.Now,
	}
}

func (s *signalService) GetOpenPositions(ctx context.Context) ([]model.Position, error) {
	return s.positionRepo.GetOpenPositions(ctx, "")
}

func (s *signalService) GetPositionHistory(ctx context.Context, symbol string) ([]model.Position, error) {
	return s.positionRepo.GetHistory(ctx, symbol)
}

func (s *signalService) GetRiskSummary(ctx context.Context) (*dto.RiskSummary, error) {
	openPositions, err := s.positionRepo.GetOpenPositions(ctx, "")
	if err != nil {
		return nil, err
	}
	riskManager := s.buildRiskManager(openPositions)
	summary := riskManager.GetRiskSummary()
	return &summary, nil
}

// CheckSignals evaluates every open position and every universe symbol
// against the latest daily bars.
func (s *signalService) CheckSignals(ctx context.Context) (*dto.SignalCheckResult, error) {
	result := &dto.SignalCheckResult{CheckedAt: s.now()}

	openPositions, err := s.positionRepo.GetOpenPositions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load open positions: %w", err)
	}

	// Existing exposure must be replayed into the risk manager before any
	// new-entry admission check, or the limits undercount.
	riskManager := s.buildRiskManager(openPositions)

	symbols := s.collectSymbols(openPositions)
	indicators := s.fetchIndicators(ctx, symbols, result)

	// The two systems trade independently: an open System 1 position blocks
	// only System 1 re-entry, never a System 2 breakout on the same symbol.
	heldSystems := make(map[string]map[int]bool, len(openPositions))
	for _, position := range openPositions {
		if heldSystems[position.Symbol] == nil {
			heldSystems[position.Symbol] = make(map[int]bool, 2)
		}
		heldSystems[position.Symbol][position.System] = true
	}

	for _, position := range openPositions {
		rows, ok := indicators[position.Symbol]
		if !ok {
			continue
		}
		today := rows[len(rows)-1]
		yesterday := rows[len(rows)-2]

		if exit := s.checkPositionExit(position, today, yesterday); exit != nil {
			result.Exits = append(result.Exits, *exit)
			continue
		}
		if pyramid := s.checkPositionPyramid(position, today); pyramid != nil {
			result.Pyramids = append(result.Pyramids, *pyramid)
		}
	}

	for _, symbol := range symbols {
		rows, ok := indicators[symbol]
		if !ok {
			continue
		}
		if !utils.IsMarketOpen(symbol, result.CheckedAt) {
			if len(heldSystems[symbol]) == 0 {
				result.Skipped = append(result.Skipped, symbol)
			}
			continue
		}

		today := rows[len(rows)-1]
		yesterday := rows[len(rows)-2]

		for _, system := range []int{1, 2} {
			if heldSystems[symbol][system] {
				continue
			}
			profitable := false
			if system == 1 {
				profitable, err = s.positionRepo.WasLastTradeProfitable(ctx, symbol, system)
				if err != nil {
					s.log.WarnContext(ctx, "Failed to query trade history, assuming not profitable",
						logger.StringField("symbol", symbol), logger.ErrorField(err))
				}
			}

			signals := s.filter.CheckEntry(today, yesterday, symbol, system, profitable, s.cfg.Turtle.UseFilter)
			for _, signal := range signals {
				admitted, reason := riskManager.CanAddPosition(symbol, 1, signal.N, signal.Direction)
				if !admitted {
					s.log.InfoContext(ctx, "Entry rejected by risk limits",
						logger.StringField("symbol", symbol), logger.StringField("reason", reason))
					continue
				}
				if err := riskManager.AddPosition(symbol, 1, signal.N, signal.Direction); err != nil {
					continue
				}
				result.Entries = append(result.Entries, signal)
			}
		}
	}

	s.log.InfoContext(ctx, "Signal check completed",
		logger.IntField("entries", len(result.Entries)),
		logger.IntField("exits", len(result.Exits)),
		logger.IntField("pyramids", len(result.Pyramids)))

	s.notify(ctx, result)
	return result, nil
}

func (s *signalService) buildRiskManager(openPositions []model.Position) *turtle.PortfolioRiskManager {
	limits := turtle.RiskLimits{
		MaxUnitsPerMarket:  s.cfg.Risk.MaxUnitsPerMarket,
		MaxUnitsCorrelated: s.cfg.Risk.MaxUnitsCorrelated,
		MaxUnitsDirection:  s.cfg.Risk.MaxUnitsDirection,
		MaxTotalNExposure:  s.cfg.Risk.MaxTotalNExposure,
	}

	symbolGroups := make(map[string]dto.AssetGroup)
	for groupName, groupSymbols := range s.cfg.Turtle.Groups {
		group := dto.ParseAssetGroup(groupName)
		for _, symbol := range groupSymbols {
			symbolGroups[symbol] = group
		}
	}

	riskManager := turtle.NewPortfolioRiskManager(limits, symbolGroups)
	for _, position := range openPositions {
		if err := riskManager.AddPosition(position.Symbol, position.Units, position.EntryN, position.Direction); err != nil {
			s.log.Warn("Skipping invalid open position during risk replay",
				logger.StringField("position_id", position.PositionID), logger.ErrorField(err))
		}
	}
	return riskManager
}

func (s *signalService) collectSymbols(openPositions []model.Position) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, symbol := range s.cfg.Turtle.Universe {
		if _, ok := seen[symbol]; !ok {
			seen[symbol] = struct{}{}
			symbols = append(symbols, symbol)
		}
	}
	for _, position := range openPositions {
		if _, ok := seen[position.Symbol]; !ok {
			seen[position.Symbol] = struct{}{}
			symbols = append(symbols, position.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// fetchIndicators loads candles with bounded concurrency and computes the
// turtle indicators. Symbols with fewer than two rows are recorded as
// skipped; missing data is a valid steady state, not an error.
func (s *signalService) fetchIndicators(ctx context.Context, symbols []string, result *dto.SignalCheckResult) map[string][]dto.IndicatorRow {
	var mu sync.Mutex
	indicators := make(map[string][]dto.IndicatorRow, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	if limit := s.cfg.Scheduler.MaxConcurrency; limit > 0 {
		g.SetLimit(limit)
	}

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			bars, err := s.marketDataRepo.GetCandles(gctx, dto.GetCandlesParam{
				Symbol:   symbol,
				Range:    "6m",
				Interval: "1d",
			})
			if err != nil || len(bars) < 2 {
				if err != nil {
					s.log.WarnContext(gctx, "Candle fetch failed",
						logger.StringField("symbol", symbol), logger.ErrorField(err))
				}
				mu.Lock()
				result.Skipped = append(result.Skipped, symbol)
				mu.Unlock()
				return nil
			}

			rows := turtle.ComputeIndicators(bars)
			mu.Lock()
			indicators[symbol] = rows
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return indicators
}

// checkPositionExit applies the channel exit first, then the stop-loss.
func (s *signalService) checkPositionExit(position model.Position, today, yesterday dto.IndicatorRow) *dto.ExitSignal {
	exit := s.filter.CheckExit(today, yesterday, position.Symbol, position.PositionID, position.Direction, position.System)
	if exit != nil {
		return exit
	}

	stopHit := false
	if position.Direction == dto.DirectionLong {
		stopHit = today.Low <= position.StopLoss
	} else {
		stopHit = today.High >= position.StopLoss
	}
	if !stopHit {
		return nil
	}

	return &dto.ExitSignal{
		Symbol:       position.Symbol,
		Type:         dto.SignalStopLoss,
		System:       position.System,
		PositionID:   position.PositionID,
		Price:        position.StopLoss,
		CurrentClose: today.Close,
		N:            today.N,
		Date:         today.Date,
		Message:      fmt.Sprintf("Stop loss hit at %.2f", position.StopLoss),
	}
}

func (s *signalService) checkPositionPyramid(position model.Position, today dto.IndicatorRow) *dto.PyramidSignal {
	if position.Units >= position.MaxUnits {
		return nil
	}
	if len(position.Entries) == 0 {
		return nil
	}

	lastEntry := position.Entries[0]
	for _, entry := range position.Entries {
		if entry.PyramidLevel > lastEntry.PyramidLevel {
			lastEntry = entry
		}
	}

	threshold := s.cfg.Turtle.PyramidIntervalN * position.EntryN
	eligible := false
	signalType := dto.SignalPyramidLong
	if position.Direction == dto.DirectionLong {
		eligible = today.Close >= lastEntry.EntryPrice+threshold
	} else {
		eligible = today.Close <= lastEntry.EntryPrice-threshold
		signalType = dto.SignalPyramidShort
	}
	if !eligible {
		return nil
	}

	return &dto.PyramidSignal{
		Symbol:       position.Symbol,
		Type:         signalType,
		PositionID:   position.PositionID,
		CurrentClose: today.Close,
		N:            today.N,
		Date:         today.Date,
		Message:      fmt.Sprintf("Pyramid level %d reached: %.2f", position.PyramidLevel+1, today.Close),
	}
}

func (s *signalService) notify(ctx context.Context, result *dto.SignalCheckResult) {
	if s.notifier == nil {
		return
	}
	if len(result.Entries) == 0 && len(result.Exits) == 0 && len(result.Pyramids) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Turtle signal check</b>\n")
	for _, signal := range result.Exits {
		sb.WriteString(fmt.Sprintf("EXIT %s: %s\n", signal.Symbol, signal.Message))
	}
	for _, signal := range result.Pyramids {
		sb.WriteString(fmt.Sprintf("PYRAMID %s: %s\n", signal.Symbol, signal.Message))
	}
	for _, signal := range result.Entries {
		sb.WriteString(fmt.Sprintf("ENTRY %s %s @ %.2f (stop %.2f)\n",
			signal.Symbol, signal.Direction, signal.Price, signal.StopLoss))
	}

	if err := s.notifier.Send(ctx, sb.String()); err != nil {
		s.log.WarnContext(ctx, "Failed to send signal alert", logger.ErrorField(err))
	}
}
