package repository

import (
	"context"
	"fmt"
	"time"

	"turtle-trading/internal/dto"
	"turtle-trading/internal/model"

	"gorm.io/gorm"
)

// PositionRepository is the persisted position store behind the live
// pipeline. The backtester keeps its ladders in memory; only live positions
// are stored here.
type PositionRepository interface {
	GetOpenPositions(ctx context.Context, symbol string) ([]model.Position, error)
	GetHistory(ctx context.Context, symbol string) ([]model.Position, error)
	GetByPositionID(ctx context.Context, positionID string) (*model.Position, error)
	Open(ctx context.Context, param OpenPositionParam) (*model.Position, error)
	AddPyramid(ctx context.Context, positionID string, entryPrice, n float64, shares int) (*model.Position, error)
	Close(ctx context.Context, positionID string, exitPrice float64, reason string) (*model.Position, error)
	WasLastTradeProfitable(ctx context.Context, symbol string, system int) (bool, error)
}

type OpenPositionParam struct {
	Symbol        string
	System        int
	Direction     dto.Direction
	EntryPrice    float64
	N             float64
	Shares        int
	MaxUnits      int
	StopDistanceN float64
}

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

func (r *positionRepository) GetOpenPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	var positions []model.Position
	query := r.db.WithContext(ctx).Where("status = ?", dto.PositionOpen)
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}
	if err := query.Preload("Entries").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *positionRepository) GetHistory(ctx context.Context, symbol string) ([]model.Position, error) {
	var positions []model.Position
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Order("entry_date ASC").Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *positionRepository) GetByPositionID(ctx context.Context, positionID string) (*model.Position, error) {
	var position model.Position
	err := r.db.WithContext(ctx).Preload("Entries").Where("position_id = ?", positionID).First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *positionRepository) Open(ctx context.Context, param OpenPositionParam) (*model.Position, error) {
	now := time.Now()
	positionID := fmt.Sprintf("%s_%d_%s_%s", param.Symbol, param.System, param.Direction, now.Format("20060102_150405"))

	exitPeriod := 10
	if param.System == 2 {
		exitPeriod = 20
	}

	stopLoss := param.EntryPrice - param.StopDistanceN*param.N
	if param.Direction == dto.DirectionShort {
		stopLoss = param.EntryPrice + param.StopDistanceN*param.N
	}

	position := model.Position{
		PositionID:    positionID,
		Symbol:        param.Symbol,
		System:        param.System,
		Direction:     param.Direction,
		EntryDate:     now,
		EntryPrice:    param.EntryPrice,
		EntryN:        param.N,
		Units:         1,
		MaxUnits:      param.MaxUnits,
		SharesPerUnit: param.Shares,
		TotalShares:   param.Shares,
		StopLoss:      stopLoss,
		PyramidLevel:  0,
		ExitPeriod:    exitPeriod,
		Status:        dto.PositionOpen,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&position).Error; err != nil {
			return err
		}
		entry := model.PositionEntry{
			EntryID:      fmt.Sprintf("%s_0", positionID),
			PositionRef:  positionID,
			EntryDate:    now,
			EntryPrice:   param.EntryPrice,
			Shares:       param.Shares,
			PyramidLevel: 0,
			NValue:       param.N,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open position: %w", err)
	}

	return &position, nil
}

// AddPyramid appends a pyramid entry and trails the position stop to the new
// rung's stop when more favorable. Returns nil without error when the
// position is already at max units.
func (r *positionRepository) AddPyramid(ctx context.Context, positionID string, entryPrice, n float64, shares int) (*model.Position, error) {
	var position model.Position
	err := r.db.WithContext(ctx).Where("position_id = ? AND status = ?", positionID, dto.PositionOpen).First(&position).Error
	if err != nil {
		return nil, err
	}

	if position.Units >= position.MaxUnits {
		return nil, nil
	}

	position.Units++
	position.TotalShares += shares
	position.PyramidLevel++

	newStop := entryPrice - 2*n
	if position.Direction == dto.DirectionShort {
		newStop = entryPrice + 2*n
	}
	if position.Direction == dto.DirectionLong && newStop > position.StopLoss {
		position.StopLoss = newStop
	}
	if position.Direction == dto.DirectionShort && newStop < position.StopLoss {
		position.StopLoss = newStop
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&position).Error; err != nil {
			return err
		}
		entry := model.PositionEntry{
			EntryID:      fmt.Sprintf("%s_%d", positionID, position.PyramidLevel),
			PositionRef:  positionID,
			EntryDate:    time.Now(),
			EntryPrice:   entryPrice,
			Shares:       shares,
			PyramidLevel: position.PyramidLevel,
			NValue:       n,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add pyramid: %w", err)
	}

	return &position, nil
}

func (r *positionRepository) Close(ctx context.Context, positionID string, exitPrice float64, reason string) (*model.Position, error) {
	var position model.Position
	err := r.db.WithContext(ctx).Where("position_id = ? AND status = ?", positionID, dto.PositionOpen).First(&position).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pnl := position.CalculatePnL(exitPrice)
	pnlPct := 0.0
	if position.EntryPrice > 0 && position.TotalShares > 0 {
		pnlPct = pnl / (position.EntryPrice * float64(position.TotalShares)) * 100
	}
	rMultiple := position.CalculateRMultiple(exitPrice)

	position.Status = dto.PositionClosed
	position.ExitDate = &now
	position.ExitPrice = &exitPrice
	position.ExitReason = &reason
	position.PnL = &pnl
	position.PnLPct = &pnlPct
	position.RMultiple = &rMultiple

	if err := r.db.WithContext(ctx).Save(&position).Error; err != nil {
		return nil, fmt.Errorf("failed to close position: %w", err)
	}

	return &position, nil
}

// WasLastTradeProfitable reports whether the most recently closed trade for
// the symbol under the given system ended with a profit. Feeds the System-1
// entry filter; only System 1 consults it.
func (r *positionRepository) WasLastTradeProfitable(ctx context.Context, symbol string, system int) (bool, error) {
	var position model.Position
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND system = ? AND status = ?", symbol, system, dto.PositionClosed).
		Order("exit_date DESC").
		First(&position).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return position.PnL != nil && *position.PnL > 0, nil
}
