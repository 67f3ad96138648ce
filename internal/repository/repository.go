package repository

import (
	"turtle-trading/config"
	"turtle-trading/pkg/cache"
	"turtle-trading/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	MarketDataRepo MarketDataRepository
	PositionRepo   PositionRepository
	OrderLogRepo   OrderLogRepository
	BrokerRepo     BrokerRepository
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{
		MarketDataRepo: NewYahooFinanceRepository(cfg, inmemoryCache, log),
		PositionRepo:   NewPositionRepository(db),
		OrderLogRepo:   NewOrderLogRepository(db),
		BrokerRepo:     NewKISRepository(cfg, inmemoryCache, log),
	}
}
