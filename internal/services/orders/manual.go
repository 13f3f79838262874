package orders

import (
	"errors"
	"time"

	"SmcDesk/internal/domain/models"
)

var ErrTerminalOrder = errors.New("order is already closed or expired")

// ManualClose describes a user-initiated close.
type ManualClose struct {
	Reason *models.CloseReason
	PnL    *float64
	PnLPct *float64
	Notes  *string
}

// CloseManually ends an active order. OPEN orders become CLOSED; PLANNED
// orders never filled, so they become EXPIRED. The reason defaults to MANUAL.
func CloseManually(o models.VirtualOrder, mc ManualClose, candleT int64, now time.Time) (models.VirtualOrder, models.Transition, error) {
	if !o.State.Active() {
		return o, models.Transition{}, ErrTerminalOrder
	}
	reason := models.CloseManual
	if mc.Reason != nil && *mc.Reason != "" {
		reason = *mc.Reason
	}

	from := o.State
	if from == models.OrderPlanned {
		o = expire(o, reason, now)
	} else {
		o.State = models.OrderClosed
		o.ClosedAt = ptr(now)
		o.CloseReason = &reason
		o.PnL = mc.PnL
		o.PnLPct = mc.PnLPct
		if o.PnL != nil && o.PnLPct == nil {
			o.PnLPct = ptr(*o.PnL / fillOf(o) * 100)
		}
	}
	if mc.Notes != nil {
		o.Notes = mc.Notes
	}
	return o, transition(o, from, candleT, nil, now), nil
}
