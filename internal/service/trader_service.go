package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/internal/model"
	"turtle-trading/internal/repository"
	"turtle-trading/internal/turtle"
	"turtle-trading/pkg/logger"

	"gorm.io/datatypes"
)

// TraderService wraps order execution. It defaults to dry-run: orders are
// sized, validated and logged but never sent to the broker.
type TraderService interface {
	ExecuteEntry(ctx context.Context, signal dto.EntrySignal, accountEquity float64) (*dto.OrderResult, error)
	ExecuteExit(ctx context.Context, signal dto.ExitSignal, shares int) (*dto.OrderResult, error)
	ExecuteSignals(ctx context.Context, result *dto.SignalCheckResult) error
	ListOrders(ctx context.Context, limit int) ([]model.OrderLog, error)
}

type traderService struct {
	cfg          *config.Config
	log          *logger.Logger
	brokerRepo   repository.BrokerRepository
	orderLogRepo repository.OrderLogRepository
	positionRepo repository.PositionRepository
	sizer        *turtle.PositionSizer
	orderCounter atomic.Int64
}

func NewTraderService(cfg *config.Config, log *logger.Logger, brokerRepo repository.BrokerRepository, orderLogRepo repository.OrderLogRepository, positionRepo repository.PositionRepository) TraderService {
	if !cfg.KIS.DryRun {
		log.Warn("LIVE MODE enabled: orders will be sent to the broker")
	}
	return &traderService{
		cfg:          cfg,
		log:          log,
		brokerRepo:   brokerRepo,
		orderLogRepo: orderLogRepo,
		positionRepo: positionRepo,
		sizer:        turtle.NewPositionSizer(cfg.Turtle.RiskPercent),
	}
}

func (s *traderService) nextOrderID() string {
	mode := "LIVE"
	if s.cfg.KIS.DryRun {
		mode = "DRY"
	}
	return fmt.Sprintf("%s_%s_%04d", mode, time.Now().Format("20060102150405"), s.orderCounter.Add(1))
}

// ExecuteEntry sizes and places a buy/sell-short order for an admitted entry
// signal.
func (s *traderService) ExecuteEntry(ctx context.Context, signal dto.EntrySignal, accountEquity float64) (*dto.OrderResult, error) {
	quantity := s.sizer.OrderQuantity(accountEquity, signal.N, 1.0)
	if quantity <= 0 {
		return nil, fmt.Errorf("cannot size order for %s: N=%v equity=%v", signal.Symbol, signal.N, accountEquity)
	}

	side := dto.OrderSideBuy
	if signal.Direction == dto.DirectionShort {
		side = dto.OrderSideSell
	}

	return s.placeOrder(ctx, dto.PlaceOrderParam{
		Symbol:    signal.Symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     signal.Price,
		OrderType: "MARKET",
		Reason:    signal.Message,
	})
}

// ExecuteExit closes an open position's full share count.
func (s *traderService) ExecuteExit(ctx context.Context, signal dto.ExitSignal, shares int) (*dto.OrderResult, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("cannot exit %s with %d shares", signal.Symbol, shares)
	}

	side := dto.OrderSideSell
	if signal.Type == dto.SignalExitShort {
		side = dto.OrderSideBuy
	}

	return s.placeOrder(ctx, dto.PlaceOrderParam{
		Symbol:    signal.Symbol,
		Side:      side,
		Quantity:  shares,
		Price:     signal.CurrentClose,
		OrderType: "MARKET",
		Reason:    signal.Message,
	})
}

// ExecuteSignals turns one check pass into orders and keeps the position
// store in sync: exits close positions, pyramids add units, entries open new
// positions. Order failures skip the store update for that signal but do not
// abort the pass.
func (s *traderService) ExecuteSignals(ctx context.Context, result *dto.SignalCheckResult) error {
	equity := s.accountEquity(ctx)

	for _, signal := range result.Exits {
		position, err := s.positionRepo.GetByPositionID(ctx, signal.PositionID)
		if err != nil {
			s.log.WarnContext(ctx, "Exit signal for unknown position",
				logger.StringField("position_id", signal.PositionID), logger.ErrorField(err))
			continue
		}

		order, err := s.ExecuteExit(ctx, signal, position.TotalShares)
		if err != nil || !orderAccepted(order) {
			continue
		}
		// Close at the signal's modeled fill: the breakout channel value for
		// channel exits, the stop level for stop-loss exits.
		if _, err := s.positionRepo.Close(ctx, signal.PositionID, signal.Price, signal.Message); err != nil {
			s.log.ErrorContext(ctx, "Failed to close position after exit order",
				logger.StringField("position_id", signal.PositionID), logger.ErrorField(err))
		}
	}

	for _, signal := range result.Pyramids {
		position, err := s.positionRepo.GetByPositionID(ctx, signal.PositionID)
		if err != nil {
			continue
		}

		shares := s.sizer.OrderQuantity(equity, signal.N, 1.0)
		if shares <= 0 {
			continue
		}

		side := dto.OrderSideBuy
		if position.Direction == dto.DirectionShort {
			side = dto.OrderSideSell
		}
		order, err := s.placeOrder(ctx, dto.PlaceOrderParam{
			Symbol:    signal.Symbol,
			Side:      side,
			Quantity:  shares,
			Price:     signal.CurrentClose,
			OrderType: "MARKET",
			Reason:    signal.Message,
		})
		if err != nil || !orderAccepted(order) {
			continue
		}
		if _, err := s.positionRepo.AddPyramid(ctx, signal.PositionID, signal.CurrentClose, signal.N, shares); err != nil {
			s.log.ErrorContext(ctx, "Failed to record pyramid entry",
				logger.StringField("position_id", signal.PositionID), logger.ErrorField(err))
		}
	}

	for _, signal := range result.Entries {
		order, err := s.ExecuteEntry(ctx, signal, equity)
		if err != nil || !orderAccepted(order) {
			continue
		}

		shares := s.sizer.OrderQuantity(equity, signal.N, 1.0)
		if _, err := s.positionRepo.Open(ctx, repository.OpenPositionParam{
			Symbol:        signal.Symbol,
			System:        signal.System,
			Direction:     signal.Direction,
			EntryPrice:    signal.Price,
			N:             signal.N,
			Shares:        shares,
			MaxUnits:      s.cfg.Turtle.MaxUnits,
			StopDistanceN: s.cfg.Turtle.StopDistanceN,
		}); err != nil {
			s.log.ErrorContext(ctx, "Failed to record opened position",
				logger.StringField("symbol", signal.Symbol), logger.ErrorField(err))
		}
	}

	return nil
}

func (s *traderService) ListOrders(ctx context.Context, limit int) ([]model.OrderLog, error) {
	return s.orderLogRepo.List(ctx, limit)
}

// accountEquity asks the broker in live mode and falls back to the configured
// capital in dry-run, where no real account exists.
func (s *traderService) accountEquity(ctx context.Context) float64 {
	if s.cfg.KIS.DryRun {
		return s.cfg.Turtle.InitialCapital
	}
	balance, err := s.brokerRepo.GetBalance(ctx)
	if err != nil || balance.TotalEquity <= 0 {
		s.log.WarnContext(ctx, "Balance inquiry failed, using configured capital", logger.ErrorField(err))
		return s.cfg.Turtle.InitialCapital
	}
	return balance.TotalEquity
}

func orderAccepted(order *dto.OrderResult) bool {
	if order == nil {
		return false
	}
	switch order.Status {
	case dto.OrderDryRun, dto.OrderPending, dto.OrderFilled, dto.OrderPartiallyFilled:
		return true
	default:
		return false
	}
}

func (s *traderService) placeOrder(ctx context.Context, param dto.PlaceOrderParam) (*dto.OrderResult, error) {
	result := &dto.OrderResult{
		OrderID:   s.nextOrderID(),
		Timestamp: time.Now(),
		DryRun:    s.cfg.KIS.DryRun,
	}

	orderAmount := float64(param.Quantity) * param.Price
	if orderAmount > s.cfg.KIS.MaxOrderAmount {
		result.Status = dto.OrderFailed
		result.Error = fmt.Sprintf("order amount %.0f exceeds limit %.0f", orderAmount, s.cfg.KIS.MaxOrderAmount)
		s.log.ErrorContext(ctx, "Order rejected by amount guard",
			logger.StringField("symbol", param.Symbol),
			logger.Float64Field("amount", orderAmount))
		s.logOrder(ctx, param, result)
		return result, nil
	}

	if s.cfg.KIS.DryRun {
		result.Status = dto.OrderDryRun
		fillPrice := param.Price
		result.FillPrice = &fillPrice
		s.log.InfoContext(ctx, "Dry-run order simulated",
			logger.StringField("symbol", param.Symbol),
			logger.StringField("side", string(param.Side)),
			logger.IntField("quantity", param.Quantity),
			logger.Float64Field("price", param.Price))
		s.logOrder(ctx, param, result)
		return result, nil
	}

	brokerID, err := s.brokerRepo.PlaceOrder(ctx, param)
	if err != nil {
		result.Status = dto.OrderFailed
		result.Error = err.Error()
		s.log.ErrorContext(ctx, "Broker order failed",
			logger.StringField("symbol", param.Symbol), logger.ErrorField(err))
		s.logOrder(ctx, param, result)
		return result, nil
	}

	result.BrokerID = brokerID
	result.Status = dto.OrderPending
	s.log.InfoContext(ctx, "Order submitted",
		logger.StringField("symbol", param.Symbol),
		logger.StringField("broker_id", brokerID))
	s.logOrder(ctx, param, result)
	return result, nil
}

func (s *traderService) logOrder(ctx context.Context, param dto.PlaceOrderParam, result *dto.OrderResult) {
	raw, _ := json.Marshal(result)

	record := &model.OrderLog{
		OrderID:     result.OrderID,
		Symbol:      param.Symbol,
		Side:        param.Side,
		Quantity:    param.Quantity,
		Price:       param.Price,
		OrderType:   param.OrderType,
		Status:      result.Status,
		DryRun:      result.DryRun,
		FillPrice:   result.FillPrice,
		Reason:      param.Reason,
		RawResponse: datatypes.JSON(raw),
	}
	if result.Error != "" {
		record.ErrorMsg = &result.Error
	}
	if result.FillPrice != nil {
		now := result.Timestamp
		record.FillTime = &now
	}

	if err := s.orderLogRepo.Create(ctx, record); err != nil {
		s.log.ErrorContext(ctx, "Failed to persist order log", logger.ErrorField(err))
	}
}
