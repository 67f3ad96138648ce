package dto

import "time"

type PlaceOrderParam struct {
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	OrderType string    `json:"order_type"` // MARKET or LIMIT
	Reason    string    `json:"reason"`
}

type OrderResult struct {
	OrderID   string      `json:"order_id"`
	BrokerID  string      `json:"broker_id,omitempty"`
	Status    OrderStatus `json:"status"`
	FillPrice *float64    `json:"fill_price,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	DryRun    bool        `json:"dry_run"`
}

type Balance struct {
	Cash        float64 `json:"cash"`
	TotalEquity float64 `json:"total_equity"`
}

// KIS API payloads (order placement and balance inquiry).

type KISTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type KISOrderResponse struct {
	RtCd   string `json:"rt_cd"`
	MsgCd  string `json:"msg_cd"`
	Msg1   string `json:"msg1"`
	Output struct {
		OrderNo string `json:"ODNO"`
	} `json:"output"`
}

type KISBalanceResponse struct {
	RtCd    string `json:"rt_cd"`
	Output2 []struct {
		TotalEvaluation string `json:"tot_evlu_amt"`
		CashBalance     string `json:"dnca_tot_amt"`
	} `json:"output2"`
}
