package turtle

import (
	"math"
	"sort"
	"time"

	"turtle-trading/internal/dto"
)

// Backtester drives the indicator engine, sizer, pyramid manager and the
// shared entry/exit filter bar by bar over historical data. One instance is
// one run; it is not safe for concurrent use.
type Backtester struct {
	config  dto.BacktestConfig
	filter  *EntryExitFilter
	ladders *PyramidManager

	cash        float64
	realizedPnL float64

	trades      []dto.Trade
	equityCurve []dto.EquityPoint

	lastTradeProfitable map[string]bool
	lastClose           map[string]float64
}

func NewBacktester(config dto.BacktestConfig) *Backtester {
	filter := NewEntryExitFilter()
	filter.StopDistanceN = config.StopDistanceN

	return &Backtester{
		config:              config,
		filter:              filter,
		ladders:             NewPyramidManager(config.MaxUnits, config.PyramidIntervalN, config.StopDistanceN),
		cash:                config.InitialCapital,
		lastTradeProfitable: make(map[string]bool),
		lastClose:           make(map[string]float64),
	}
}

// Run executes the backtest over all symbols across a unioned, sorted date
// index and returns trades, the equity curve and summary metrics.
func (b *Backtester) Run(data map[string][]dto.Bar) dto.BacktestResult {
	indicators := make(map[string][]dto.IndicatorRow, len(data))
	dateIndex := make(map[string]map[time.Time]int, len(data))
	dateSet := make(map[time.Time]struct{})

	symbols := make([]string, 0, len(data))
	for symbol, bars := range data {
		symbols = append(symbols, symbol)
		rows := ComputeIndicators(bars)
		indicators[symbol] = rows

		index := make(map[time.Time]int, len(rows))
		for i, row := range rows {
			index[row.Date] = i
			dateSet[row.Date] = struct{}{}
		}
		dateIndex[symbol] = index
	}
	sort.Strings(symbols)

	dates := make([]time.Time, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for di := 1; di < len(dates); di++ {
		date := dates[di]

		for _, symbol := range symbols {
			idx, ok := dateIndex[symbol][date]
			if !ok || idx < 1 {
				continue
			}

			today := indicators[symbol][idx]
			yesterday := indicators[symbol][idx-1]
			b.lastClose[symbol] = today.Close

			if position := b.ladders.GetPosition(symbol); position != nil {
				if b.checkClose(symbol, date, today, yesterday, position) {
					// No same-day re-entry after a close.
					continue
				}
				if ok, _ := position.CanPyramid(today.Close, today.N); ok {
					b.addPyramid(position, date, today.Close, today.N)
				}
				continue
			}

			signals := b.filter.CheckEntry(today, yesterday, symbol, b.config.System, b.lastTradeProfitable[symbol], b.config.UseFilter)
			if len(signals) > 0 {
				b.openPosition(symbol, date, today.Close, today.N, signals[0].Direction)
			}
		}

		b.recordEquity(date)
	}

	return b.calculateResults()
}

// checkClose applies the stop-loss first, then the channel exit. Returns true
// if the position was closed.
func (b *Backtester) checkClose(symbol string, date time.Time, today, yesterday dto.IndicatorRow, position *PyramidPosition) bool {
	stopHit := false
	if position.Direction == dto.DirectionLong {
		stopHit = today.Low <= position.CurrentStop()
	} else {
		stopHit = today.High >= position.CurrentStop()
	}
	if stopHit {
		b.closePosition(symbol, date, today.Close, string(dto.SignalStopLoss))
		return true
	}

	if exit := b.filter.CheckExit(today, yesterday, symbol, "", position.Direction, b.config.System); exit != nil {
		b.closePosition(symbol, date, today.Close, string(exit.Type))
		return true
	}

	return false
}

func (b *Backtester) openPosition(symbol string, date time.Time, price, n float64, direction dto.Direction) {
	shares := UnitSize(b.currentEquity(), n, b.config.RiskPercent, 1.0)
	if shares <= 0 {
		return
	}

	cost := float64(shares) * price * (1 + b.config.CommissionPct)
	if cost > b.cash {
		return
	}

	b.cash -= cost
	b.ladders.CreatePosition(symbol, direction, date, price, shares, n)
}

func (b *Backtester) addPyramid(position *PyramidPosition, date time.Time, price, n float64) {
	shares := UnitSize(b.currentEquity(), n, b.config.RiskPercent, 1.0)
	if shares <= 0 {
		return
	}

	cost := float64(shares) * price * (1 + b.config.CommissionPct)
	if cost > b.cash {
		return
	}

	if _, err := position.AddEntry(date, price, shares, n); err != nil {
		return
	}
	b.cash -= cost
}

func (b *Backtester) closePosition(symbol string, date time.Time, price float64, reason string) {
	position := b.ladders.GetPosition(symbol)
	if position == nil {
		return
	}

	shares := position.TotalShares()
	avgEntry := position.AverageEntryPrice()

	var pnl float64
	if position.Direction == dto.DirectionLong {
		pnl = (price - avgEntry) * float64(shares)
	} else {
		pnl = (avgEntry - price) * float64(shares)
	}
	pnl -= price * float64(shares) * b.config.CommissionPct

	pnlPct := 0.0
	if avgEntry > 0 {
		pnlPct = pnl / (avgEntry * float64(shares))
	}

	b.trades = append(b.trades, dto.Trade{
		Symbol:     symbol,
		EntryDate:  position.Entries[0].EntryDate,
		EntryPrice: avgEntry,
		ExitDate:   date,
		ExitPrice:  price,
		Direction:  position.Direction,
		Quantity:   shares,
		PnL:        pnl,
		PnLPct:     pnlPct,
		ExitReason: reason,
	})

	b.cash += price * float64(shares)
	b.realizedPnL += pnl
	b.lastTradeProfitable[symbol] = pnl > 0

	b.ladders.ClosePosition(symbol)
}

// currentEquity marks every open position to its latest known close.
func (b *Backtester) currentEquity() float64 {
	equity := b.cash
	for symbol, position := range b.ladders.Positions() {
		price, ok := b.lastClose[symbol]
		if !ok {
			price = position.AverageEntryPrice()
		}

		shares := float64(position.TotalShares())
		avgEntry := position.AverageEntryPrice()
		var unrealized float64
		if position.Direction == dto.DirectionLong {
			unrealized = (price - avgEntry) * shares
		} else {
			unrealized = (avgEntry - price) * shares
		}
		equity += shares*avgEntry + unrealized
	}
	return equity
}

func (b *Backtester) recordEquity(date time.Time) {
	b.equityCurve = append(b.equityCurve, dto.EquityPoint{
		Date:   date,
		Equity: b.currentEquity(),
		Cash:   b.cash,
	})
}

func (b *Backtester) calculateResults() dto.BacktestResult {
	result := dto.BacktestResult{
		Config: b.config,
		Trades: b.trades,
	}
	if len(b.equityCurve) == 0 {
		return result
	}

	result.EquityCurve = b.equityCurve
	result.FinalEquity = b.equityCurve[len(b.equityCurve)-1].Equity
	result.TotalReturn = (result.FinalEquity - b.config.InitialCapital) / b.config.InitialCapital

	peak := b.equityCurve[0].Equity
	maxDrawdown := 0.0
	for _, point := range b.equityCurve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak > 0 {
			if dd := (peak - point.Equity) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}
	result.MaxDrawdown = maxDrawdown

	var sumWins, sumLosses float64
	for _, trade := range b.trades {
		result.TotalTrades++
		if trade.PnL > 0 {
			result.WinningTrades++
			sumWins += trade.PnL
		} else {
			result.LosingTrades++
			sumLosses += math.Abs(trade.PnL)
		}
	}
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
	}
	if result.WinningTrades > 0 {
		result.AvgWin = sumWins / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AvgLoss = sumLosses / float64(result.LosingTrades)
	}
	if sumLosses > 0 {
		result.ProfitFactor = sumWins / sumLosses
	} else {
		result.ProfitFactor = sumWins
	}

	days := b.equityCurve[len(b.equityCurve)-1].Date.Sub(b.equityCurve[0].Date).Hours() / 24
	if days > 0 && b.config.InitialCapital > 0 && result.FinalEquity > 0 {
		years := days / 365.25
		result.CAGR = math.Pow(result.FinalEquity/b.config.InitialCapital, 1/years) - 1
	}

	result.SharpeRatio = sharpeRatio(b.equityCurve)

	return result
}

// sharpeRatio annualizes daily equity returns with sqrt(252); 0 when the
// return series is flat.
func sharpeRatio(curve []dto.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity != 0 {
			returns = append(returns, (curve[i].Equity-curve[i-1].Equity)/curve[i-1].Equity)
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std < 1e-12 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}
