// Package pnl aggregates realized trade PnL into trading-day buckets.
// Buckets are bounded by the session close, not midnight, so an evening
// trade counts toward the next day's result. PnL accumulates at full
// precision and is rounded only at the report boundary.
package pnl

import (
	"context"
	"math"
	"sort"
	"time"

	"tradovate-journal/internal/models"
	"tradovate-journal/internal/store"
	"tradovate-journal/internal/tradingday"
)

// Aggregator computes daily PnL reports from closed trades.
type Aggregator struct {
	store      store.DataStore
	classifier *tradingday.Classifier
}

// NewAggregator creates a PnL aggregator.
func NewAggregator(st store.DataStore, classifier *tradingday.Classifier) *Aggregator {
	return &Aggregator{store: st, classifier: classifier}
}

// Filter selects the trades included in a report. Day bounds are trading
// day labels; they are translated to exit-time bounds through the
// session-close classifier.
type Filter struct {
	Account    string
	Instrument string
	StartDay   string
	EndDay     string
}

// DayPnL is one trading day's aggregated result.
type DayPnL struct {
	Day           tradingday.Day
	PnL           float64
	TradeCount    int
	WinningTrades int
	LosingTrades  int
	Trades        []*models.Trade
}

// Report is a daily PnL report over a label range.
type Report struct {
	Days        []DayPnL
	TotalPnL    float64
	TotalTrades int
}

// Daily groups closed trades by the trading day of their exit and sums
// realized PnL per day. Days are sorted ascending; only days with at
// least one trade appear. The grand total is the rounded sum of the
// unrounded day values, so it never drifts from the per-day figures by
// more than the final rounding step.
func (a *Aggregator) Daily(ctx context.Context, filter Filter) (*Report, error) {
	tradeFilter := store.TradeFilter{
		Account:    filter.Account,
		Instrument: filter.Instrument,
	}
	if filter.StartDay != "" {
		day, err := tradingday.ParseDay(filter.StartDay)
		if err != nil {
			return nil, err
		}
		tradeFilter.Start, _ = a.classifier.RangeOf(day)
	}
	if filter.EndDay != "" {
		day, err := tradingday.ParseDay(filter.EndDay)
		if err != nil {
			return nil, err
		}
		_, tradeFilter.End = a.classifier.RangeOf(day)
	}

	trades, err := a.store.GetTrades(ctx, tradeFilter)
	if err != nil {
		return nil, err
	}
	return a.buildReport(trades), nil
}

// Calendar reports the trading days of one calendar month.
func (a *Aggregator) Calendar(ctx context.Context, filter Filter, year int, month time.Month) (*Report, error) {
	start, end := a.classifier.MonthRange(year, month)
	trades, err := a.store.GetTrades(ctx, store.TradeFilter{
		Account:    filter.Account,
		Instrument: filter.Instrument,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, err
	}
	return a.buildReport(trades), nil
}

func (a *Aggregator) buildReport(trades []*models.Trade) *Report {
	buckets := make(map[tradingday.Day]*DayPnL)
	var total float64

	for _, t := range trades {
		day := a.classifier.DayOf(t.ExitTime)
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DayPnL{Day: day}
			buckets[day] = bucket
		}
		bucket.PnL += t.PnL
		bucket.TradeCount++
		if t.PnL > 0 {
			bucket.WinningTrades++
		} else if t.PnL < 0 {
			bucket.LosingTrades++
		}
		bucket.Trades = append(bucket.Trades, t)
		total += t.PnL
	}

	report := &Report{
		Days:        make([]DayPnL, 0, len(buckets)),
		TotalPnL:    Round2(total),
		TotalTrades: len(trades),
	}
	for _, bucket := range buckets {
		sort.Slice(bucket.Trades, func(i, j int) bool {
			return bucket.Trades[i].ExitTime.Before(bucket.Trades[j].ExitTime)
		})
		bucket.PnL = Round2(bucket.PnL)
		report.Days = append(report.Days, *bucket)
	}
	sort.Slice(report.Days, func(i, j int) bool {
		return report.Days[i].Day.Before(report.Days[j].Day)
	})
	return report
}

// Round2 rounds to two decimal places, the report output precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
