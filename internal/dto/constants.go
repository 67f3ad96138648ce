package dto

// String values below are a serialization contract with the persisted
// position store and order log; do not rename them.

type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

type SignalType string

const (
	SignalEntryLong    SignalType = "entry_long"
	SignalEntryShort   SignalType = "entry_short"
	SignalExitLong     SignalType = "exit_long"
	SignalExitShort    SignalType = "exit_short"
	SignalPyramidLong  SignalType = "pyramid_long"
	SignalPyramidShort SignalType = "pyramid_short"
	SignalStopLoss     SignalType = "stop_loss"
)

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

type AssetGroup string

const (
	GroupKREquity   AssetGroup = "kr_equity"
	GroupUSEquity   AssetGroup = "us_equity"
	GroupAsiaEquity AssetGroup = "asia_equity"
	GroupCrypto     AssetGroup = "crypto"
	GroupCommodity  AssetGroup = "commodity"
	GroupBond       AssetGroup = "bond"
	GroupInverse    AssetGroup = "inverse"
	GroupCurrency   AssetGroup = "currency"
)

// ParseAssetGroup maps a config group name to an AssetGroup, defaulting to
// the generic equity group for unmapped names.
func ParseAssetGroup(name string) AssetGroup {
	switch name {
	case "kr_equity":
		return GroupKREquity
	case "us_equity", "us_etf", "us_tech":
		return GroupUSEquity
	case "asia_equity":
		return GroupAsiaEquity
	case "crypto":
		return GroupCrypto
	case "commodity":
		return GroupCommodity
	case "bond":
		return GroupBond
	case "inverse":
		return GroupInverse
	case "currency":
		return GroupCurrency
	default:
		return GroupUSEquity
	}
}

type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderFilled          OrderStatus = "filled"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFailed          OrderStatus = "failed"
	OrderRejected        OrderStatus = "rejected"
	OrderCancelled       OrderStatus = "cancelled"
	OrderDryRun          OrderStatus = "dry_run"
	OrderUnknown         OrderStatus = "unknown"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)
