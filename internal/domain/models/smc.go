package models

type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasRange   Bias = "range"
	BiasUnknown Bias = "unknown"
)

type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

type SwingType string

const (
	SwingHigh SwingType = "high"
	SwingLow  SwingType = "low"
)

// Swing is a fractal pivot at Index of the analysed candle slice.
type Swing struct {
	Index int       `json:"index"`
	Time  int64     `json:"time"`
	Price float64   `json:"price"`
	Type  SwingType `json:"type"`
}

// StructureBreak records a BOS or CHoCH against the swing at Index. Price is
// that candle's high for bullish breaks and its low for bearish ones.
type StructureBreak struct {
	Index     int       `json:"index"`
	Time      int64     `json:"time"`
	Price     float64   `json:"price"`
	Direction Direction `json:"direction"`
}

type MarketStructure struct {
	Bias      Bias            `json:"bias"`
	LastBOS   *StructureBreak `json:"lastBOS,omitempty"`
	LastCHoCH *StructureBreak `json:"lastCHoCH,omitempty"`
}

type EquilibriumType string

const (
	EQH EquilibriumType = "EQH"
	EQL EquilibriumType = "EQL"
)

type EquilibriumLevel struct {
	ID       string          `json:"id"`
	Type     EquilibriumType `json:"type"`
	Price    float64         `json:"price"`
	Time     int64           `json:"time"`
	Strength int             `json:"strength"`
}

type SweepType string

const (
	SweepBuySide  SweepType = "buy_side"
	SweepSellSide SweepType = "sell_side"
)

type LiquiditySweep struct {
	ID        string    `json:"id"`
	Type      SweepType `json:"type"`
	Price     float64   `json:"price"`
	Time      int64     `json:"time"`
	Confirmed bool      `json:"confirmed"`
}

// Direction maps the sweep side onto the move it anticipates.
func (s LiquiditySweep) Direction() Direction {
	if s.Type == SweepBuySide {
		return Bullish
	}
	return Bearish
}

type PriceRange struct {
	Low  float64 `json:"low" validate:"gt=0"`
	High float64 `json:"high" validate:"gt=0,gtefield=Low"`
}

func (r PriceRange) Mid() float64 { return (r.Low + r.High) / 2 }

type Freshness struct {
	IsFresh   bool    `json:"isFresh"`
	Touches   int     `json:"touches" validate:"gte=0"`
	FillRatio float64 `json:"fillRatio" validate:"gte=0,lte=1"`
}

type POIKind string

const (
	POIOrderBlock   POIKind = "OB"
	POIFairValueGap POIKind = "FVG"
)

// POI is an order block or fair value gap as detected from raw candles.
type POI struct {
	ID        string     `json:"id"`
	Kind      POIKind    `json:"kind"`
	Direction Direction  `json:"direction"`
	Range     PriceRange `json:"range"`
	Time      int64      `json:"time"`
	CreatedBy string     `json:"createdBy"`
	Freshness Freshness  `json:"freshness"`
}
