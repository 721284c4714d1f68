package models

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fill represents one individual execution from the broker.
//
// A Fill is immutable after ingestion except for the matched state
// (Matched, MatchedQuantity, TradeID), which the matching engine sets as
// trades consume it. MatchedQuantity tracks partial consumption by a
// position-flip fill whose remainder is still attached to an open position.
type Fill struct {
	ID         string
	OrderID    string
	Account    string
	Instrument string
	Side       Side
	Quantity   int
	Price      float64
	FillTime   time.Time
	Status     string

	Matched         bool
	MatchedQuantity int
	TradeID         string
}

// RemainingQuantity returns the quantity not yet consumed by a trade.
func (f *Fill) RemainingQuantity() int {
	return f.Quantity - f.MatchedQuantity
}

// SignedQuantity returns the remaining quantity signed by side
// (positive for buys, negative for sells).
func (f *Fill) SignedQuantity() int {
	if f.Side == SideSell {
		return -f.RemainingQuantity()
	}
	return f.RemainingQuantity()
}

// IsFilled reports whether the broker marked this execution as filled.
func (f *Fill) IsFilled() bool {
	return f.Status == StatusFilled
}

// GroupKey returns the matching-group key. Matching is fully independent
// per (account, instrument).
func (f *Fill) GroupKey() GroupKey {
	return GroupKey{Account: f.Account, Instrument: f.Instrument}
}

// GroupKey identifies one independent matching group.
type GroupKey struct {
	Account    string
	Instrument string
}

func (k GroupKey) String() string {
	return k.Account + "/" + k.Instrument
}

// StableFillID derives a deterministic fill identity from row content.
// Broker exports carry non-unique order IDs (scientific-notation mangling),
// so the primary key is a content hash: re-importing the same row always
// produces the same ID, which makes ingestion idempotent.
func StableFillID(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.TrimSpace(fields[k]))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "fill-" + hex.EncodeToString(sum[:])[:24]
}

// FillContentFields builds the canonical content map for StableFillID from
// a typed fill. Used when fills are constructed programmatically rather
// than parsed from a CSV row.
func FillContentFields(account, instrument string, side Side, quantity int, price float64, fillTime time.Time, orderID string) map[string]string {
	return map[string]string{
		"account":    account,
		"instrument": instrument,
		"side":       string(side),
		"quantity":   fmt.Sprintf("%d", quantity),
		"price":      fmt.Sprintf("%g", price),
		"fill_time":  fillTime.UTC().Format(time.RFC3339Nano),
		"order_id":   orderID,
	}
}
