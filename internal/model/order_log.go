package model

import (
	"time"

	"turtle-trading/internal/dto"

	"gorm.io/datatypes"
)

// OrderLog records every order attempt, including dry-run simulations.
type OrderLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     string          `gorm:"uniqueIndex;not null" json:"order_id"`
	Symbol      string          `gorm:"index;not null" json:"symbol"`
	Side        dto.OrderSide   `gorm:"not null" json:"side"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       float64         `gorm:"not null" json:"price"`
	OrderType   string          `gorm:"not null" json:"order_type"`
	Status      dto.OrderStatus `gorm:"not null" json:"status"`
	DryRun      bool            `gorm:"not null" json:"dry_run"`
	FillPrice   *float64        `json:"fill_price"`
	FillTime    *time.Time      `json:"fill_time"`
	ErrorMsg    *string         `json:"error_message"`
	Reason      string          `json:"reason"`
	RawResponse datatypes.JSON  `gorm:"type:jsonb" json:"raw_response"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderLog) TableName() string {
	return "order_logs"
}
