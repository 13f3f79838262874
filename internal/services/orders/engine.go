package orders

import (
	"time"

	"SmcDesk/internal/domain/models"
)

// ProcessCandle applies one closed candle to the orders of symbol/tf and
// returns the updated list plus the transitions that happened. The input
// slice is not modified.
//
// PLANNED orders expire once the candle time reaches valid_until_candle_t,
// otherwise they open at the zone midpoint when the zone is touched. An
// order that opens is not checked for exit on the same candle. OPEN orders
// check the stop before the first target.
func ProcessCandle(orders []models.VirtualOrder, c models.Candle, symbol, tf string, now time.Time) ([]models.VirtualOrder, []models.Transition) {
	out := make([]models.VirtualOrder, len(orders))
	copy(out, orders)
	var transitions []models.Transition

	for i, o := range out {
		if o.Symbol != symbol || o.TF != tf {
			continue
		}

		switch o.State {
		case models.OrderPlanned:
			if c.T >= o.ValidUntilCandleT {
				o = expire(o, models.CloseExpired, now)
				transitions = append(transitions, transition(o, models.OrderPlanned, c.T, nil, now))
			} else if entryTouched(o, c) {
				fill := o.EntryMid()
				o.State = models.OrderOpen
				o.OpenedAt = ptr(now)
				o.EntryFillPrice = &fill
				transitions = append(transitions, transition(o, models.OrderPlanned, c.T, &fill, now))
			}
			out[i] = o

		case models.OrderOpen:
			if reason, exit, ok := exitHit(o, c); ok {
				o = closeAt(o, reason, exit, now)
				transitions = append(transitions, transition(o, models.OrderOpen, c.T, &exit, now))
				out[i] = o
			}
		}
	}
	return out, transitions
}

func entryTouched(o models.VirtualOrder, c models.Candle) bool {
	if o.Side == models.SideBuy {
		return c.L <= o.EntryZoneHigh
	}
	return c.H >= o.EntryZoneLow
}

// exitHit resolves the exit of an OPEN order; the stop is checked first.
func exitHit(o models.VirtualOrder, c models.Candle) (models.CloseReason, float64, bool) {
	buy := o.Side == models.SideBuy
	if (buy && c.L <= o.StopLoss) || (!buy && c.H >= o.StopLoss) {
		return models.CloseStopLoss, o.StopLoss, true
	}
	if len(o.Targets) > 0 {
		tp := o.Targets[0]
		if (buy && c.H >= tp) || (!buy && c.L <= tp) {
			return models.CloseTP1, tp, true
		}
	}
	return "", 0, false
}

func fillOf(o models.VirtualOrder) float64 {
	if o.EntryFillPrice != nil {
		return *o.EntryFillPrice
	}
	return o.EntryMid()
}

// PnL returns the signed price difference and its percentage of the fill.
func PnL(side models.SetupSide, fill, exit float64) (float64, float64) {
	pnl := exit - fill
	if side != models.SideBuy {
		pnl = fill - exit
	}
	return pnl, pnl / fill * 100
}

func closeAt(o models.VirtualOrder, reason models.CloseReason, exit float64, now time.Time) models.VirtualOrder {
	pnl, pct := PnL(o.Side, fillOf(o), exit)
	o.State = models.OrderClosed
	o.ClosedAt = ptr(now)
	o.CloseReason = &reason
	o.PnL = &pnl
	o.PnLPct = &pct
	return o
}

func expire(o models.VirtualOrder, reason models.CloseReason, now time.Time) models.VirtualOrder {
	o.State = models.OrderExpired
	o.ClosedAt = ptr(now)
	o.CloseReason = &reason
	o.PnL = nil
	o.PnLPct = nil
	return o
}

func transition(o models.VirtualOrder, from models.OrderState, candleT int64, price *float64, now time.Time) models.Transition {
	tr := models.Transition{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		TF:      o.TF,
		From:    from,
		To:      o.State,
		CandleT: candleT,
		Price:   price,
		PnL:     o.PnL,
		At:      now,
	}
	if o.CloseReason != nil {
		tr.Reason = *o.CloseReason
	}
	return tr
}

func ptr[T any](v T) *T { return &v }
