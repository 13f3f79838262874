package models

// SmcOutput is the versioned analysis document returned by the engine.
type SmcOutput struct {
	Engine      EngineInfo      `json:"engine" validate:"required"`
	Context     AnalysisContext `json:"context" validate:"required"`
	Summary     Summary         `json:"summary" validate:"required"`
	Signals     []Signal        `json:"signals" validate:"dive"`
	Levels      []Level         `json:"levels" validate:"dive"`
	POI         []POIEntry      `json:"poi" validate:"dive"`
	Setups      []Setup         `json:"setups" validate:"dive"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}

type EngineInfo struct {
	Name        string `json:"name" validate:"required"`
	Version     string `json:"version" validate:"required"`
	School      string `json:"school" validate:"eq=SMC"`
	GeneratedAt string `json:"generatedAt" validate:"required"`
}

type AnalysisContext struct {
	Symbol       string      `json:"symbol" validate:"required"`
	Market       string      `json:"market" validate:"oneof=spot futures perpetual"`
	Category     string      `json:"category" validate:"oneof=linear inverse spot"`
	Timeframe    string      `json:"timeframe" validate:"oneof=M1 M3 M5 M15 M30 H1 H2 H4 H6 H12 D1 W1"`
	TZ           string      `json:"tz" validate:"required"`
	CandleSource string      `json:"candleSource" validate:"required"`
	Range        CandleRange `json:"range"`
}

type CandleRange struct {
	From  int64 `json:"from" validate:"gt=0"`
	To    int64 `json:"to" validate:"gtefield=From"`
	Limit int   `json:"limit" validate:"gte=1"`
}

type Decision string

const (
	DecisionBuy              Decision = "BUY"
	DecisionSell             Decision = "SELL"
	DecisionNoTrade          Decision = "NO_TRADE"
	DecisionWaitConfirmation Decision = "WAIT_CONFIRMATION"
)

type Summary struct {
	Bias       Bias     `json:"bias" validate:"oneof=bullish bearish range unknown"`
	Decision   Decision `json:"decision" validate:"oneof=BUY SELL NO_TRADE WAIT_CONFIRMATION"`
	Confidence int      `json:"confidence" validate:"gte=0,lte=100"`
	Headline   string   `json:"headline" validate:"required"`
	KeyReasons []string `json:"keyReasons" validate:"max=5"`
}

// TimeRef pins a point on a timeframe's candle grid.
type TimeRef struct {
	TF string `json:"tf" validate:"required"`
	T  int64  `json:"t" validate:"gt=0"`
}

type Anchor struct {
	Time  TimeRef `json:"time"`
	Price float64 `json:"price" validate:"gt=0"`
}

type SignalKind string

const (
	SignalBOS            SignalKind = "STRUCTURE_BOS"
	SignalCHoCH          SignalKind = "STRUCTURE_CHOCH"
	SignalLiquiditySweep SignalKind = "LIQUIDITY_SWEEP"
)

// Signal is one entry of the signals array; Kind selects the variant.
type Signal struct {
	ID         string     `json:"id" validate:"required"`
	Kind       SignalKind `json:"kind" validate:"oneof=STRUCTURE_BOS STRUCTURE_CHOCH LIQUIDITY_SWEEP"`
	Direction  Direction  `json:"direction" validate:"oneof=bullish bearish"`
	Confidence int        `json:"confidence" validate:"gte=0,lte=100"`
	Time       TimeRef    `json:"time"`
	Label      string     `json:"label" validate:"required"`
	Reason     string     `json:"reason"`
	Anchors    []Anchor   `json:"anchors" validate:"min=1,dive"`
}

type LevelType string

const (
	LevelEQH               LevelType = "EQH"
	LevelEQL               LevelType = "EQL"
	LevelBuySideLiquidity  LevelType = "BUY_SIDE_LIQUIDITY"
	LevelSellSideLiquidity LevelType = "SELL_SIDE_LIQUIDITY"
)

type LevelStatus string

const (
	LevelFresh  LevelStatus = "fresh"
	LevelTested LevelStatus = "tested"
	LevelBroken LevelStatus = "broken"
)

type Level struct {
	ID        string      `json:"id" validate:"required"`
	Type      LevelType   `json:"type" validate:"oneof=EQH EQL BUY_SIDE_LIQUIDITY SELL_SIDE_LIQUIDITY"`
	TF        string      `json:"tf" validate:"required"`
	Range     PriceRange  `json:"range"`
	Strength  int         `json:"strength" validate:"gte=0,lte=100"`
	Status    LevelStatus `json:"status" validate:"oneof=fresh tested broken"`
	CreatedAt TimeRef     `json:"createdAt"`
}

type POIStatus string

const (
	POIActive   POIStatus = "active"
	POIConsumed POIStatus = "consumed"
)

type POIOrigin struct {
	CreatedBy string  `json:"createdBy" validate:"required"`
	Time      TimeRef `json:"time"`
}

type POIQuality struct {
	Score int `json:"score" validate:"gte=0,lte=100"`
}

type POIEntry struct {
	ID        string     `json:"id" validate:"required"`
	Type      POIKind    `json:"type" validate:"oneof=OB FVG"`
	Direction Direction  `json:"direction" validate:"oneof=bullish bearish"`
	TF        string     `json:"tf" validate:"required"`
	Range     PriceRange `json:"range"`
	Freshness Freshness  `json:"freshness"`
	Status    POIStatus  `json:"status" validate:"oneof=active consumed"`
	Origin    POIOrigin  `json:"origin"`
	Quality   POIQuality `json:"quality"`
}

type ScoreComponent struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Notes string `json:"notes,omitempty"`
}

type Scores struct {
	Components []ScoreComponent `json:"components"`
	Total      int              `json:"total"`
}

type Diagnostics struct {
	Params   map[string]any `json:"params"`
	Scores   Scores         `json:"scores"`
	Warnings []string       `json:"warnings"`
	Debug    map[string]any `json:"debug,omitempty"`
}
