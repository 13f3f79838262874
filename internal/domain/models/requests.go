package models

// Requests for the HTTP API. Bound with echo, defaulted with creasty/defaults
// and validated with go-playground/validator.

type AnalyzeRequest struct {
	Candles   []Candle       `json:"candles" validate:"omitempty,dive"`
	Symbol    string         `json:"symbol" default:"BTCUSDT" validate:"required"`
	Category  string         `json:"category" default:"linear" validate:"oneof=linear inverse spot"`
	Timeframe string         `json:"timeframe" default:"M15" validate:"oneof=M1 M3 M5 M15 M30 H1 H2 H4 H6 H12 D1 W1"`
	Limit     int            `json:"limit" default:"200" validate:"gte=10,lte=1000"`
	PresetID  string         `json:"presetId"`
	Params    map[string]any `json:"params"`
}

type CandlesRequest struct {
	Symbol    string `query:"symbol" default:"BTCUSDT" validate:"required"`
	Category  string `query:"category" default:"linear" validate:"oneof=linear inverse spot"`
	Timeframe string `query:"timeframe" default:"M15" validate:"oneof=M1 M3 M5 M15 M30 H1 H2 H4 H6 H12 D1 W1"`
	Limit     int    `query:"limit" default:"200" validate:"gte=1,lte=1000"`
}

type ResolveParamsRequest struct {
	PresetID  string         `json:"presetId"`
	Overrides map[string]any `json:"overrides"`
}

type ListOrdersRequest struct {
	State string `query:"state" validate:"omitempty,oneof=PLANNED OPEN CLOSED EXPIRED"`
}

type CreateOrderRequest struct {
	Symbol             string         `json:"symbol" default:"BTCUSDT" validate:"required"`
	Timeframe          string         `json:"timeframe" default:"M15" validate:"required"`
	PresetID           *string        `json:"preset_id"`
	PresetVersion      string         `json:"preset_version"`
	ParamsResolved     map[string]any `json:"params_resolved"`
	EngineVersion      string         `json:"engine_version" default:"smc.v1.0.0"`
	SnapshotID         string         `json:"snapshot_id"`
	Setup              *Setup         `json:"setup" validate:"-"`
	MinConfidence      *float64       `json:"minConfidence" validate:"omitempty,gte=0,lte=100"`
	MinRR              *float64       `json:"minRR" validate:"omitempty,gte=0"`
	MinConfluenceCount *int           `json:"minConfluenceCount" validate:"omitempty,gte=0"`
	ValidUntilCandles  *int           `json:"validUntilCandles" validate:"omitempty,gt=0"`
}

type PatchOrderRequest struct {
	ID          string       `param:"id" validate:"required"`
	State       OrderState   `json:"state" validate:"omitempty,eq=CLOSED"`
	CloseReason *CloseReason `json:"close_reason"`
	PnL         *float64     `json:"pnl"`
	PnLPct      *float64     `json:"pnl_pct"`
	Notes       *string      `json:"notes"`
}

type OrderIDRequest struct {
	ID string `param:"id" validate:"required"`
}

// CandleInput is a closed candle as posted by clients; open and close may be
// omitted and fall back to close and low respectively.
type CandleInput struct {
	T int64    `json:"t" validate:"gt=0"`
	O *float64 `json:"o"`
	H float64  `json:"h" validate:"gt=0"`
	L float64  `json:"l" validate:"gt=0"`
	C *float64 `json:"c"`
	V float64  `json:"v"`
}

func (in CandleInput) Candle() Candle {
	c := in.L
	if in.C != nil {
		c = *in.C
	}
	o := c
	if in.O != nil {
		o = *in.O
	}
	return Candle{T: in.T, O: o, H: in.H, L: in.L, C: c, V: in.V}
}

type ProcessCandleRequest struct {
	ClosedCandle *CandleInput `json:"closedCandle" validate:"required"`
	Symbol       string       `json:"symbol" default:"BTCUSDT" validate:"required"`
	Timeframe    string       `json:"timeframe" default:"M15" validate:"required"`
}

type AddSetupHistoryRequest struct {
	PresetID      *string        `json:"presetId"`
	Params        map[string]any `json:"params"`
	Symbol        string         `json:"symbol" default:"BTCUSDT" validate:"required"`
	Timeframe     string         `json:"timeframe" default:"M15" validate:"required"`
	Source        HistorySource  `json:"source" default:"setup" validate:"oneof=chart setup"`
	CandleTime    *int64         `json:"candleTime"`
	SetupSnapshot *Setup         `json:"setupSnapshot" validate:"-"`
}

type PatchSetupHistoryRequest struct {
	ID     string        `param:"id" validate:"required"`
	Status HistoryStatus `json:"status" validate:"oneof=success failed"`
}
