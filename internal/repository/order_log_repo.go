package repository

import (
	"context"

	"turtle-trading/internal/model"

	"gorm.io/gorm"
)

type OrderLogRepository interface {
	Create(ctx context.Context, orderLog *model.OrderLog) error
	List(ctx context.Context, limit int) ([]model.OrderLog, error)
}

type orderLogRepository struct {
	db *gorm.DB
}

func NewOrderLogRepository(db *gorm.DB) OrderLogRepository {
	return &orderLogRepository{db: db}
}

func (r *orderLogRepository) Create(ctx context.Context, orderLog *model.OrderLog) error {
	return r.db.WithContext(ctx).Create(orderLog).Error
}

func (r *orderLogRepository) List(ctx context.Context, limit int) ([]model.OrderLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []model.OrderLog
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
