package models

import "time"

type OrderState string

const (
	OrderPlanned OrderState = "PLANNED"
	OrderOpen    OrderState = "OPEN"
	OrderClosed  OrderState = "CLOSED"
	OrderExpired OrderState = "EXPIRED"
)

// Active reports whether the state still takes part in dedupe checks.
func (s OrderState) Active() bool { return s == OrderPlanned || s == OrderOpen }

// Terminal reports whether no further transition is allowed.
func (s OrderState) Terminal() bool { return s == OrderClosed || s == OrderExpired }

// CanTransition enforces PLANNED -> {OPEN, EXPIRED} and OPEN -> CLOSED.
func (s OrderState) CanTransition(to OrderState) bool {
	switch s {
	case OrderPlanned:
		return to == OrderOpen || to == OrderExpired
	case OrderOpen:
		return to == OrderClosed
	default:
		return false
	}
}

type CloseReason string

const (
	CloseStopLoss CloseReason = "SL"
	CloseTP1      CloseReason = "TP1"
	CloseExpired  CloseReason = "EXPIRED"
	CloseManual   CloseReason = "MANUAL"
)

// VirtualOrder is a paper order created from a setup. Nullable fields are
// pointers so the stored document keeps explicit nulls.
type VirtualOrder struct {
	ID                string         `json:"id"`
	Symbol            string         `json:"symbol"`
	TF                string         `json:"tf"`
	Side              SetupSide      `json:"side"`
	State             OrderState     `json:"state"`
	CreatedAt         time.Time      `json:"created_at"`
	OpenedAt          *time.Time     `json:"opened_at"`
	ClosedAt          *time.Time     `json:"closed_at"`
	EntryZoneLow      float64        `json:"entry_zone_low"`
	EntryZoneHigh     float64        `json:"entry_zone_high"`
	EntryFillPrice    *float64       `json:"entry_fill_price"`
	StopLoss          float64        `json:"stop_loss"`
	Targets           []float64      `json:"targets"`
	RRExpected        float64        `json:"rr_expected"`
	EngineVersion     string         `json:"engine_version"`
	PresetID          *string        `json:"preset_id"`
	PresetVersion     string         `json:"preset_version,omitempty"`
	ParamsResolved    map[string]any `json:"params_resolved"`
	SnapshotID        string         `json:"snapshot_id"`
	SetupRef          string         `json:"setup_ref"`
	SetupName         string         `json:"setup_name"`
	CloseReason       *CloseReason   `json:"close_reason"`
	PnL               *float64       `json:"pnl"`
	PnLPct            *float64       `json:"pnl_pct"`
	Notes             *string        `json:"notes"`
	DedupeKey         string         `json:"dedupe_key"`
	ValidUntilCandleT int64          `json:"valid_until_candle_t"`
}

// EntryMid is the midpoint of the entry zone.
func (o VirtualOrder) EntryMid() float64 { return (o.EntryZoneLow + o.EntryZoneHigh) / 2 }

// Transition is emitted for every state change applied to an order.
type Transition struct {
	OrderID string      `json:"order_id"`
	Symbol  string      `json:"symbol"`
	TF      string      `json:"tf"`
	From    OrderState  `json:"from"`
	To      OrderState  `json:"to"`
	Reason  CloseReason `json:"reason,omitempty"`
	CandleT int64       `json:"candle_t"`
	Price   *float64    `json:"price,omitempty"`
	PnL     *float64    `json:"pnl,omitempty"`
	At      time.Time   `json:"at"`
}
