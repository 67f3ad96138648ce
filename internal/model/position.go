package model

import (
	"time"

	"turtle-trading/internal/dto"
)

// Position is one open or closed directional exposure in one symbol under one
// system. Status, direction and exit-reason strings follow the dto constants;
// the stored values are a compatibility contract with older exports.
type Position struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	PositionID string        `gorm:"uniqueIndex;not null" json:"position_id"`
	Symbol     string        `gorm:"index;not null" json:"symbol"`
	System     int           `gorm:"not null" json:"system"`
	Direction  dto.Direction `gorm:"not null" json:"direction"`

	EntryDate  time.Time `gorm:"not null" json:"entry_date"`
	EntryPrice float64   `gorm:"not null" json:"entry_price"`
	EntryN     float64   `gorm:"not null" json:"entry_n"`

	Units         int `gorm:"not null" json:"units"`
	MaxUnits      int `gorm:"not null" json:"max_units"`
	SharesPerUnit int `gorm:"not null" json:"shares_per_unit"`
	TotalShares   int `gorm:"not null" json:"total_shares"`

	StopLoss     float64 `gorm:"not null" json:"stop_loss"`
	PyramidLevel int     `gorm:"not null" json:"pyramid_level"`
	ExitPeriod   int     `gorm:"not null" json:"exit_period"`

	Status dto.PositionStatus `gorm:"index;not null" json:"status"`

	ExitDate   *time.Time `json:"exit_date"`
	ExitPrice  *float64   `json:"exit_price"`
	ExitReason *string    `json:"exit_reason"`
	PnL        *float64   `json:"pnl"`
	PnLPct     *float64   `json:"pnl_pct"`
	RMultiple  *float64   `json:"r_multiple"`

	Entries []PositionEntry `gorm:"foreignKey:PositionRef;references:PositionID" json:"entries,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// CalculatePnL returns the realized profit for an exit at the given price,
// based on the first entry price across all shares.
func (p *Position) CalculatePnL(exitPrice float64) float64 {
	if p.Direction == dto.DirectionLong {
		return (exitPrice - p.EntryPrice) * float64(p.TotalShares)
	}
	return (p.EntryPrice - exitPrice) * float64(p.TotalShares)
}

// CalculateRMultiple expresses the per-share profit as a multiple of the
// initial 2N risk.
func (p *Position) CalculateRMultiple(exitPrice float64) float64 {
	riskPerShare := 2 * p.EntryN
	if riskPerShare <= 0 {
		return 0
	}
	pnlPerShare := exitPrice - p.EntryPrice
	if p.Direction == dto.DirectionShort {
		pnlPerShare = p.EntryPrice - exitPrice
	}
	return pnlPerShare / riskPerShare
}

// PositionEntry is one rung of a position's pyramid ladder.
type PositionEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EntryID      string    `gorm:"uniqueIndex;not null" json:"entry_id"`
	PositionRef  string    `gorm:"column:position_id;index;not null" json:"position_id"`
	EntryDate    time.Time `gorm:"not null" json:"entry_date"`
	EntryPrice   float64   `gorm:"not null" json:"entry_price"`
	Shares       int       `gorm:"not null" json:"shares"`
	PyramidLevel int       `gorm:"not null" json:"pyramid_level"`
	NValue       float64   `gorm:"not null" json:"n_value"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PositionEntry) TableName() string {
	return "position_entries"
}
