package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Trade represents one closed round-trip position assembled from entry and
// exit fills. Trades are created atomically by the assembler and never
// structurally mutated afterward; only TradeType may later be overridden
// by the user.
type Trade struct {
	ID         string
	Account    string
	Instrument string
	Direction  Direction
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64 // quantity-weighted average over entry legs
	ExitPrice  float64 // quantity-weighted average over exit legs
	Quantity   int     // matched quantity (sum over exit legs)
	PnL        float64
	IsScaled   bool // closed via more than one exit fill
	TradeType  TradeType
	FillIDs    []string // constituent fills, entry legs then exit legs
}

// NewTradeID generates a trade identity.
func NewTradeID() string {
	return "trade-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// HoldDuration returns the time between entry and exit.
func (t *Trade) HoldDuration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
