// Package models provides domain models for the trading journal.
package models

// Side represents the side of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide resolves the side strings found in broker exports.
// Returns false when the value cannot be resolved.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "BUY", "Buy", "buy", "B", "b", "LONG", "long", "L":
		return SideBuy, true
	case "SELL", "Sell", "sell", "S", "s", "SHORT", "short", "SH":
		return SideSell, true
	}
	return "", false
}

// Direction represents the direction of a round-trip trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// TradeType classifies a trade by its holding period relative to
// trading-day boundaries.
type TradeType string

const (
	TradeTypeDay      TradeType = "day_trade"
	TradeTypeSwing    TradeType = "swing"
	TradeTypeLongTerm TradeType = "long_term"
)

// ValidTradeType reports whether t is an accepted trade type value.
// User overrides are restricted to this set.
func ValidTradeType(t TradeType) bool {
	switch t {
	case TradeTypeDay, TradeTypeSwing, TradeTypeLongTerm:
		return true
	}
	return false
}

// FillStatus values as reported by the broker export.
const (
	StatusFilled   = "Filled"
	StatusCanceled = "Canceled"
	StatusRejected = "Rejected"
	StatusWorking  = "Working"
)
