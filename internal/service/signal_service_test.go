package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/internal/model"
	"turtle-trading/internal/repository"
	"turtle-trading/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubMarketDataRepo struct {
	bars map[string][]dto.Bar
}

func (r *stubMarketDataRepo) GetCandles(_ context.Context, param dto.GetCandlesParam) ([]dto.Bar, error) {
	return r.bars[param.Symbol], nil
}

type closeCall struct {
	positionID string
	exitPrice  float64
	reason     string
}

type stubPositionRepo struct {
	open       []model.Position
	byID       map[string]*model.Position
	profitable map[string]bool
	closeCalls []closeCall
}

func (r *stubPositionRepo) GetOpenPositions(context.Context, string) ([]model.Position, error) {
	return r.open, nil
}

func (r *stubPositionRepo) GetHistory(context.Context, string) ([]model.Position, error) {
	return nil, nil
}

func (r *stubPositionRepo) GetByPositionID(_ context.Context, positionID string) (*model.Position, error) {
	if position, ok := r.byID[positionID]; ok {
		return position, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubPositionRepo) Open(context.Context, repository.OpenPositionParam) (*model.Position, error) {
	return nil, nil
}

func (r *stubPositionRepo) AddPyramid(context.Context, string, float64, float64, int) (*model.Position, error) {
	return nil, nil
}

func (r *stubPositionRepo) Close(_ context.Context, positionID string, exitPrice float64, reason string) (*model.Position, error) {
	r.closeCalls = append(r.closeCalls, closeCall{positionID: positionID, exitPrice: exitPrice, reason: reason})
	return nil, nil
}

func (r *stubPositionRepo) WasLastTradeProfitable(_ context.Context, symbol string, system int) (bool, error) {
	return r.profitable[fmt.Sprintf("%s_%d", symbol, system)], nil
}

// quietBreakoutBars is a flat 100-level series whose final bar clears every
// entry channel: with count > 55 the last bar is a fresh 20-day and 55-day
// breakout at once.
func quietBreakoutBars(count int) []dto.Bar {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]dto.Bar, count)
	for i := range bars {
		bars[i] = dto.Bar{Date: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	last := &bars[count-1]
	last.Open, last.High, last.Low, last.Close = 105, 107, 104.5, 106
	return bars
}

func openTestPosition(symbol string, system int) model.Position {
	return model.Position{
		PositionID:  fmt.Sprintf("%s_%d_LONG_20260105_160000", symbol, system),
		Symbol:      symbol,
		System:      system,
		Direction:   dto.DirectionLong,
		EntryDate:   time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC),
		EntryPrice:  100,
		EntryN:      2.0,
		Units:       1,
		MaxUnits:    4,
		TotalShares: 10,
		StopLoss:    95,
		Status:      dto.PositionOpen,
	}
}

func signalTestConfig() *config.Config {
	return &config.Config{
		Scheduler: config.Scheduler{MaxConcurrency: 2},
		Turtle: config.Turtle{
			Universe:         []string{"AAPL"},
			UseFilter:        true,
			MaxUnits:         4,
			PyramidIntervalN: 0.5,
			StopDistanceN:    2.0,
		},
		Risk: config.RiskLimits{
			MaxUnitsPerMarket:  4,
			MaxUnitsCorrelated: 6,
			MaxUnitsDirection:  12,
			MaxTotalNExposure:  10.0,
		},
	}
}

func newSignalServiceForTest(t *testing.T, marketRepo repository.MarketDataRepository, positionRepo repository.PositionRepository) *signalService {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	svc := NewSignalService(signalTestConfig(), log, marketRepo, positionRepo, nil).(*signalService)
	// Wednesday 10:00 New York time, inside the regular session.
	svc.now = func() time.Time { return time.Date(2026, 1, 7, 15, 0, 0, 0, time.UTC) }
	return svc
}

func TestSignalService_CheckSignals_SystemsEnterIndependently(t *testing.T) {
	tests := []struct {
		name        string
		heldSystems []int
		wantSystems []int
	}{
		{
			name:        "no open position emits both systems",
			heldSystems: nil,
			wantSystems: []int{1, 2},
		},
		{
			name:        "open System 1 position leaves the System 2 breakout live",
			heldSystems: []int{1},
			wantSystems: []int{2},
		},
		{
			name:        "open System 2 position leaves the System 1 breakout live",
			heldSystems: []int{2},
			wantSystems: []int{1},
		},
		{
			name:        "both systems held blocks every entry",
			heldSystems: []int{1, 2},
			wantSystems: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positionRepo := &stubPositionRepo{}
			for _, system := range tt.heldSystems {
				positionRepo.open = append(positionRepo.open, openTestPosition("AAPL", system))
			}
			marketRepo := &stubMarketDataRepo{bars: map[string][]dto.Bar{
				"AAPL": quietBreakoutBars(61),
			}}
			svc := newSignalServiceForTest(t, marketRepo, positionRepo)

			result, err := svc.CheckSignals(context.Background())
			require.NoError(t, err)

			var gotSystems []int
			for _, entry := range result.Entries {
				assert.Equal(t, "AAPL", entry.Symbol)
				assert.Equal(t, dto.DirectionLong, entry.Direction)
				gotSystems = append(gotSystems, entry.System)
			}
			assert.ElementsMatch(t, tt.wantSystems, gotSystems)
			assert.Empty(t, result.Exits)
			assert.Empty(t, result.Pyramids)
		})
	}
}

func TestSignalService_CheckSignals_SkipsSymbolsWithoutData(t *testing.T) {
	positionRepo := &stubPositionRepo{}
	marketRepo := &stubMarketDataRepo{bars: map[string][]dto.Bar{}}
	svc := newSignalServiceForTest(t, marketRepo, positionRepo)

	result, err := svc.CheckSignals(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Entries)
	assert.Equal(t, []string{"AAPL"}, result.Skipped)
}
