package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"turtle-trading/config"
	"turtle-trading/internal/dto"
	"turtle-trading/pkg/cache"
	"turtle-trading/pkg/httpclient"
	"turtle-trading/pkg/logger"
	"turtle-trading/pkg/ratelimit"
)

const kisTokenCacheKey = "kis:access_token"

// BrokerRepository is the KIS (Korea Investment & Securities) order API.
// Only the excluded execution layer calls it; the decision engine never does.
type BrokerRepository interface {
	PlaceOrder(ctx context.Context, param dto.PlaceOrderParam) (string, error)
	GetBalance(ctx context.Context) (*dto.Balance, error)
	GetOrderStatus(ctx context.Context, brokerOrderID string) (dto.OrderStatus, error)
}

type kisRepository struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	cache      cache.Cache
	logger     *logger.Logger
	limiter    *ratelimit.Limiter
}

func NewKISRepository(cfg *config.Config, inmemoryCache cache.Cache, log *logger.Logger) BrokerRepository {
	return &kisRepository{
		httpClient: httpclient.New(cfg.KIS.BaseURL, cfg.KIS.Timeout, ""),
		cfg:        cfg,
		cache:      inmemoryCache,
		logger:     log,
		limiter:    ratelimit.NewPerSecond(cfg.KIS.MaxRequestPerSec),
	}
}

func (r *kisRepository) accessToken(ctx context.Context) (string, error) {
	if token, ok := cache.GetTyped[string](r.cache, kisTokenCacheKey); ok {
		return token, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     r.cfg.KIS.AppKey,
		"appsecret":  r.cfg.KIS.AppSecret,
	}

	var tokenResp dto.KISTokenResponse
	resp, err := r.httpClient.Post(ctx, "/oauth2/tokenP", body, nil, &tokenResp)
	if err != nil {
		return "", fmt.Errorf("failed to request KIS access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tokenResp.AccessToken == "" {
		return "", fmt.Errorf("KIS token endpoint returned status %d", resp.StatusCode)
	}

	r.cache.Set(kisTokenCacheKey, tokenResp.AccessToken, r.cfg.KIS.TokenCacheTTL)
	return tokenResp.AccessToken, nil
}

func (r *kisRepository) headers(token, trID string) map[string]string {
	return map[string]string{
		"authorization": "Bearer " + token,
		"appkey":        r.cfg.KIS.AppKey,
		"appsecret":     r.cfg.KIS.AppSecret,
		"tr_id":         trID,
	}
}

// PlaceOrder submits a cash order and returns the broker order number.
func (r *kisRepository) PlaceOrder(ctx context.Context, param dto.PlaceOrderParam) (string, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return "", err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	trID := "TTTC0802U" // buy
	if param.Side == dto.OrderSideSell {
		trID = "TTTC0801U"
	}

	orderDivision := "01" // market
	price := "0"
	if strings.EqualFold(param.OrderType, "LIMIT") {
		orderDivision = "00"
		price = strconv.FormatFloat(param.Price, 'f', 0, 64)
	}

	body := map[string]string{
		"CANO":     r.cfg.KIS.AccountNo,
		"PDNO":     strings.TrimSuffix(strings.TrimSuffix(param.Symbol, ".KS"), ".KQ"),
		"ORD_DVSN": orderDivision,
		"ORD_QTY":  strconv.Itoa(param.Quantity),
		"ORD_UNPR": price,
	}

	var orderResp dto.KISOrderResponse
	resp, err := r.httpClient.Post(ctx, "/uapi/domestic-stock/v1/trading/order-cash", body, r.headers(token, trID), &orderResp)
	if err != nil {
		return "", fmt.Errorf("failed to place KIS order: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("KIS order endpoint returned status %d", resp.StatusCode)
	}
	if orderResp.RtCd != "0" {
		return "", fmt.Errorf("KIS order rejected: %s (%s)", orderResp.Msg1, orderResp.MsgCd)
	}

	return orderResp.Output.OrderNo, nil
}

func (r *kisRepository) GetBalance(ctx context.Context) (*dto.Balance, error) {
	token, err := r.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	queryParams := map[string]string{
		"CANO":              r.cfg.KIS.AccountNo,
		"INQR_DVSN":         "02",
		"UNPR_DVSN":         "01",
		"OFL_YN":            "",
		"FUND_STTL_ICLD_YN": "N",
	}

	var balanceResp dto.KISBalanceResponse
	resp, err := r.httpClient.Get(ctx, "/uapi/domestic-stock/v1/trading/inquire-balance", queryParams, r.headers(token, "TTTC8434R"), &balanceResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch KIS balance: %w", err)
	}
	if resp.StatusCode != http.StatusOK || balanceResp.RtCd != "0" {
		return nil, fmt.Errorf("KIS balance endpoint returned status %d", resp.StatusCode)
	}
	if len(balanceResp.Output2) == 0 {
		return nil, fmt.Errorf("KIS balance response missing account summary")
	}

	cash, _ := strconv.ParseFloat(balanceResp.Output2[0].CashBalance, 64)
	total, _ := strconv.ParseFloat(balanceResp.Output2[0].TotalEvaluation, 64)

	return &dto.Balance{Cash: cash, TotalEquity: total}, nil
}

func (r *kisRepository) GetOrderStatus(ctx context.Context, brokerOrderID string) (dto.OrderStatus, error) {
	// KIS has no lightweight single-order status endpoint; daily order
	// inquiry is left to the reporting layer. Submitted orders are treated
	// as pending until reconciled.
	if brokerOrderID == "" {
		return dto.OrderUnknown, fmt.Errorf("empty broker order id")
	}
	return dto.OrderPending, nil
}
