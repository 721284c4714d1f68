package matching

import (
	"tradovate-journal/internal/models"
	"tradovate-journal/internal/tradingday"
)

// Assembler builds closed trades from matched legs. Prices are
// quantity-weighted averages and PnL is accumulated at full float
// precision; rounding happens only at report output.
type Assembler struct {
	classifier *tradingday.Classifier
}

// NewAssembler creates a trade assembler. The classifier decides the
// initial trade type from entry and exit timestamps.
func NewAssembler(classifier *tradingday.Classifier) *Assembler {
	return &Assembler{classifier: classifier}
}

// Assemble builds one trade from the legs that closed a position. The
// first leg sets the direction; legs on that side are entries and the
// rest are exits. Legs arrive in chronological order, so entry time is
// the first leg's timestamp and exit time the last one's.
func (a *Assembler) Assemble(legs []leg) *models.Trade {
	first := legs[0]
	direction := models.DirectionLong
	if first.fill.Side == models.SideSell {
		direction = models.DirectionShort
	}

	entrySide := models.SideBuy
	if direction == models.DirectionShort {
		entrySide = models.SideSell
	}

	var (
		entryNotional, exitNotional float64
		entryQty, exitQty           int
		exitLegs                    int
		entryIDs, exitIDs           []string
	)

	for _, l := range legs {
		notional := l.fill.Price * float64(l.qty)
		if l.fill.Side == entrySide {
			entryNotional += notional
			entryQty += l.qty
			entryIDs = append(entryIDs, l.fill.ID)
		} else {
			exitNotional += notional
			exitQty += l.qty
			exitLegs++
			exitIDs = append(exitIDs, l.fill.ID)
		}
	}

	var pnl float64
	if direction == models.DirectionLong {
		pnl = exitNotional - entryNotional
	} else {
		pnl = entryNotional - exitNotional
	}

	trade := &models.Trade{
		ID:         models.NewTradeID(),
		Account:    first.fill.Account,
		Instrument: first.fill.Instrument,
		Direction:  direction,
		EntryTime:  legs[0].fill.FillTime,
		ExitTime:   legs[len(legs)-1].fill.FillTime,
		EntryPrice: entryNotional / float64(entryQty),
		ExitPrice:  exitNotional / float64(exitQty),
		Quantity:   exitQty,
		PnL:        pnl,
		IsScaled:   exitLegs > 1,
		FillIDs:    append(entryIDs, exitIDs...),
	}
	trade.TradeType = a.classifier.TradeType(trade.EntryTime, trade.ExitTime)
	return trade
}
