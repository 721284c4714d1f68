// Package matching converts broker fills into closed round-trip trades
// using position-delta tracking. Each (account, instrument) group is an
// independent position ledger: fills accumulate into the open position
// until the net quantity returns to zero, at which point a trade is
// closed from everything that participated.
package matching

import (
	"sort"

	"tradovate-journal/internal/models"
)

// leg is one fill's participation in the current position. A position
// flip splits a single fill into a closing leg and an opening leg, so a
// leg may carry less than the fill's full quantity.
type leg struct {
	fill *models.Fill
	qty  int
}

// Engine matches one group's fills into trades. It is not safe for
// concurrent use; the runner creates one per group.
type Engine struct {
	assembler *Assembler
}

// NewEngine creates a matching engine using the given trade assembler.
func NewEngine(assembler *Assembler) *Engine {
	return &Engine{assembler: assembler}
}

// GroupResult is the outcome of matching one (account, instrument) group.
type GroupResult struct {
	Trades []*models.Trade
	// Consumed holds fills whose matched state changed and must be
	// persisted alongside the trades.
	Consumed []*models.Fill
	// OpenQuantity is the signed net position left after the last fill,
	// zero when the group ended flat.
	OpenQuantity int
}

// MatchGroup replays the group's fills in chronological order and returns
// the closed trades. Fills must all share one (account, instrument) key
// and carry a valid timestamp; the runner filters before calling.
//
// Fills left attached to an open position are not consumed: their matched
// state is untouched so a later run can replay them once the position
// closes.
func (e *Engine) MatchGroup(fills []*models.Fill) GroupResult {
	ordered := make([]*models.Fill, 0, len(fills))
	for _, f := range fills {
		if f.RemainingQuantity() > 0 {
			ordered = append(ordered, f)
		}
	}
	// Stable sort: equal timestamps keep their arrival order.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FillTime.Before(ordered[j].FillTime)
	})

	var (
		result   GroupResult
		position int
		legs     []leg
	)

	for _, f := range ordered {
		q := f.SignedQuantity()

		switch {
		case position == 0 || sameSign(position, q):
			// Opening or adding to the position.
			legs = append(legs, leg{fill: f, qty: f.RemainingQuantity()})
			position += q

		case abs(q) < abs(position):
			// Partial exit, position stays open.
			legs = append(legs, leg{fill: f, qty: f.RemainingQuantity()})
			position += q

		case abs(q) == abs(position):
			// Exact close.
			legs = append(legs, leg{fill: f, qty: f.RemainingQuantity()})
			e.close(&result, legs)
			legs = nil
			position = 0

		default:
			// Flip: the fill closes the position and opens the opposite
			// one. Split it into a closing leg and an opening leg.
			closing := abs(position)
			legs = append(legs, leg{fill: f, qty: closing})
			e.close(&result, legs)

			remainder := abs(q) - closing
			legs = []leg{{fill: f, qty: remainder}}
			if q > 0 {
				position = remainder
			} else {
				position = -remainder
			}
		}
	}

	result.OpenQuantity = position
	return result
}

// close assembles a trade from the accumulated legs and records fill
// consumption. MatchedQuantity advances by each leg's quantity; a fill is
// marked fully matched only when its whole quantity has been consumed,
// which for a flip fill happens in a later trade.
func (e *Engine) close(result *GroupResult, legs []leg) {
	trade := e.assembler.Assemble(legs)
	result.Trades = append(result.Trades, trade)

	for _, l := range legs {
		l.fill.MatchedQuantity += l.qty
		if l.fill.MatchedQuantity >= l.fill.Quantity {
			l.fill.Matched = true
			l.fill.TradeID = trade.ID
		}
		result.Consumed = appendFillOnce(result.Consumed, l.fill)
	}
}

func appendFillOnce(fills []*models.Fill, f *models.Fill) []*models.Fill {
	for _, existing := range fills {
		if existing.ID == f.ID {
			return fills
		}
	}
	return append(fills, f)
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
