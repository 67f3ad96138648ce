package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/pkg/cache"
	"turtle-trading/pkg/httpclient"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/ratelimit"
	"turtle-trading/pkg/utils"
)

// MarketDataRepository fetches OHLCV candles for a symbol. An empty result is
// a valid outcome; the decision engine treats missing data as "no signal".
type MarketDataRepository interface {
	GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]dto.Bar, error)
}

type yahooFinanceRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	cache      cache.Cache
	logger     *logger.Logger
	limiter    *ratelimit.Limiter
}

func NewYahooFinanceRepository(cfg *config.Config, inmemoryCache cache.Cache, log *logger.Logger) MarketDataRepository {
	return &yahooFinanceRepository{
		httpClient: httpclient.New(cfg.Yahoo.BaseURL, cfg.Yahoo.Timeout, ""),
		cfg:        cfg,
		cache:      inmemoryCache,
		logger:     log,
		limiter:    ratelimit.NewPerMinute(cfg.Yahoo.MaxRequestPerMinute),
	}
}

func (r *yahooFinanceRepository) GetCandles(ctx context.Context, param dto.GetCandlesParam) ([]dto.Bar, error) {
	cacheKey := fmt.Sprintf("candles:%s:%s:%s", param.Symbol, param.Range, param.Interval)
	if bars, ok := cache.GetTyped[[]dto.Bar](r.cache, cacheKey); ok {
		return bars, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	period1, period2 := rangeToUnix(param.Range)
	if period1 == 0 {
		return nil, fmt.Errorf("invalid range: %s", param.Range)
	}

	interval := param.Interval
	if interval == "" {
		interval = "1d"
	}

	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", period1),
		"period2":        fmt.Sprintf("%d", period2),
		"interval":       interval,
		"includePrePost": "false",
		"events":         "div,split",
	}

	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://finance.yahoo.com/",
	}

	var yahooResp dto.YahooChartResponse
	resp, err := r.httpClient.Get(ctx, "/"+param.Symbol, queryParams, headers, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("symbol", param.Symbol))
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}

	if yahooResp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo finance api error: %v", yahooResp.Chart.Error)
	}
	if len(yahooResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data returned for symbol: %s", param.Symbol)
	}

	result := yahooResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data available for symbol: %s", param.Symbol)
	}

	quote := result.Indicators.Quote[0]
	bars := make([]dto.Bar, 0, len(result.Timestamp))
	for i, timestamp := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}
		// Zero prices mean a gap row in the Yahoo payload.
		if quote.Open[i] == 0 || quote.High[i] == 0 || quote.Low[i] == 0 || quote.Close[i] == 0 {
			continue
		}

		bars = append(bars, dto.Bar{
			Date:   utils.TruncateToDay(time.Unix(timestamp, 0).UTC()),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: quote.Volume[i],
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	r.cache.Set(cacheKey, bars, r.cfg.Yahoo.CacheDuration)
	return bars, nil
}

func rangeToUnix(rng string) (int64, int64) {
	now := time.Now()
	days := map[string]int{
		"1m": 30, "2m": 60, "3m": 90, "6m": 180,
		"1y": 365, "2y": 730, "5y": 1825,
	}
	d, ok := days[rng]
	if !ok {
		return 0, 0
	}
	return now.AddDate(0, 0, -d).Unix(), now.Unix()
}
