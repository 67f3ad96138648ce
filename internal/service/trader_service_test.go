package service

import (
	"context"
	"testing"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/internal/model"
	"turtle-trading/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBrokerRepo struct {
	placed []dto.PlaceOrderParam
}

func (r *stubBrokerRepo) PlaceOrder(_ context.Context, param dto.PlaceOrderParam) (string, error) {
	r.placed = append(r.placed, param)
	return "KIS0001", nil
}

func (r *stubBrokerRepo) GetBalance(context.Context) (*dto.Balance, error) {
	return &dto.Balance{TotalEquity: 100000}, nil
}

func (r *stubBrokerRepo) GetOrderStatus(context.Context, string) (dto.OrderStatus, error) {
	return dto.OrderFilled, nil
}

type stubOrderLogRepo struct {
	created []model.OrderLog
}

func (r *stubOrderLogRepo) Create(_ context.Context, orderLog *model.OrderLog) error {
	r.created = append(r.created, *orderLog)
	return nil
}

func (r *stubOrderLogRepo) List(context.Context, int) ([]model.OrderLog, error) {
	return nil, nil
}

func traderTestConfig() *config.Config {
	return &config.Config{
		KIS: config.KIS{
			DryRun:         true,
			MaxOrderAmount: 1_000_000,
		},
		Turtle: config.Turtle{
			InitialCapital: 100000,
			RiskPercent:    0.01,
			MaxUnits:       4,
			StopDistanceN:  2.0,
		},
	}
}

func TestTraderService_ExecuteSignals_ClosesAtSignalPrice(t *testing.T) {
	tests := []struct {
		name   string
		signal dto.ExitSignal
	}{
		{
			name: "channel exit closes at the exit channel value",
			signal: dto.ExitSignal{
				Symbol:       "AAPL",
				Type:         dto.SignalExitLong,
				System:       1,
				PositionID:   "AAPL_1_LONG_20260105_160000",
				Price:        98.5,
				CurrentClose: 97.2,
				N:            2.0,
				Message:      "System 1 long exit: fell below 98.50",
			},
		},
		{
			name: "stop loss closes at the stop level",
			signal: dto.ExitSignal{
				Symbol:       "AAPL",
				Type:         dto.SignalStopLoss,
				System:       1,
				PositionID:   "AAPL_1_LONG_20260105_160000",
				Price:        95.0,
				CurrentClose: 96.4,
				N:            2.0,
				Message:      "Stop loss hit at 95.00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			position := openTestPosition("AAPL", 1)
			positionRepo := &stubPositionRepo{
				byID: map[string]*model.Position{position.PositionID: &position},
			}
			broker := &stubBrokerRepo{}
			orderLog := &stubOrderLogRepo{}

			log, err := logger.New("error", "console")
			require.NoError(t, err)
			svc := NewTraderService(traderTestConfig(), log, broker, orderLog, positionRepo)

			err = svc.ExecuteSignals(context.Background(), &dto.SignalCheckResult{
				Exits: []dto.ExitSignal{tt.signal},
			})
			require.NoError(t, err)

			require.Len(t, positionRepo.closeCalls, 1)
			call := positionRepo.closeCalls[0]
			assert.Equal(t, tt.signal.PositionID, call.positionID)
			assert.Equal(t, tt.signal.Price, call.exitPrice)
			assert.Equal(t, tt.signal.Message, call.reason)

			// Dry-run mode never reaches the broker but still logs the order.
			assert.Empty(t, broker.placed)
			require.Len(t, orderLog.created, 1)
			assert.Equal(t, dto.OrderDryRun, orderLog.created[0].Status)
			assert.Equal(t, position.TotalShares, orderLog.created[0].Quantity)
		})
	}
}

func TestTraderService_ExecuteSignals_SkipsUnknownPosition(t *testing.T) {
	positionRepo := &stubPositionRepo{}
	broker := &stubBrokerRepo{}
	orderLog := &stubOrderLogRepo{}

	log, err := logger.New("error", "console")
	require.NoError(t, err)
	svc := NewTraderService(traderTestConfig(), log, broker, orderLog, positionRepo)

	err = svc.ExecuteSignals(context.Background(), &dto.SignalCheckResult{
		Exits: []dto.ExitSignal{{
			Symbol:     "AAPL",
			Type:       dto.SignalExitLong,
			System:     1,
			PositionID: "AAPL_1_LONG_unknown",
			Price:      98.5,
		}},
	})
	require.NoError(t, err)

	assert.Empty(t, positionRepo.closeCalls)
	assert.Empty(t, orderLog.created)
}
