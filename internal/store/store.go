// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"tradovate-journal/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Fills
	SaveFills(ctx context.Context, fills []*models.Fill) (SaveResult, error)
	GetFills(ctx context.Context, filter FillFilter) ([]*models.Fill, error)
	LoadUnmatchedFills(ctx context.Context, filter FillFilter) ([]*models.Fill, error)

	// Matching. SaveMatchResult persists the trades from one matching run
	// together with the matched-state updates of their constituent fills
	// in a single transaction.
	SaveMatchResult(ctx context.Context, trades []*models.Trade, fills []*models.Fill) error

	// Trades
	GetTrades(ctx context.Context, filter TradeFilter) ([]*models.Trade, error)
	GetTradeByID(ctx context.Context, id string) (*models.Trade, error)
	UpdateTradeType(ctx context.Context, tradeID string, tradeType models.TradeType) error

	// Lifecycle
	Close() error
}

// SaveResult reports the outcome of an idempotent fill save.
type SaveResult struct {
	Inserted   int
	Duplicates int
}

// FillFilter represents filters for querying fills.
type FillFilter struct {
	Account    string
	Instrument string
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Account    string
	Instrument string
	TradeType  models.TradeType
	// Start and End bound the trade's exit time, both inclusive. Zero
	// values leave the bound open.
	Start time.Time
	End   time.Time
	Limit int
}
