package models

type SetupSide string

const (
	SideBuy  SetupSide = "BUY"
	SideSell SetupSide = "SELL"
)

type SetupStatus string

const (
	SetupValid   SetupStatus = "valid"
	SetupWait    SetupStatus = "wait"
	SetupInvalid SetupStatus = "invalid"
)

// Setup is a composed trade plan. Confluence ids reference signals and POIs
// of the same analysis run without owning them.
type Setup struct {
	ID         string      `json:"id" validate:"required"`
	Name       string      `json:"name" validate:"required"`
	Direction  SetupSide   `json:"direction" validate:"oneof=BUY SELL"`
	Status     SetupStatus `json:"status" validate:"oneof=valid wait invalid"`
	Timeframe  string      `json:"timeframe" validate:"required"`
	Entry      SetupEntry  `json:"entry"`
	Risk       SetupRisk   `json:"risk"`
	Targets    []Target    `json:"targets" validate:"min=1,dive"`
	Confidence float64     `json:"confidence" validate:"gte=0,lte=100"`
	Reasons    []string    `json:"reasons"`
	Confluence Confluence  `json:"confluence"`
}

type SetupEntry struct {
	Mode      string       `json:"mode" validate:"oneof=limit market"`
	Zone      PriceRange   `json:"zone"`
	Trigger   EntryTrigger `json:"trigger"`
	ValidFrom TimeRef      `json:"validFrom"`
}

type EntryTrigger struct {
	Type  string   `json:"type" validate:"required"`
	Rules []string `json:"rules"`
}

type SetupRisk struct {
	StopLoss     float64      `json:"stopLoss" validate:"gt=0"`
	Invalidation Invalidation `json:"invalidation"`
	RRMin        float64      `json:"rrMin" validate:"gte=0"`
}

type Invalidation struct {
	Type   string `json:"type" validate:"required"`
	Anchor Anchor `json:"anchor"`
}

type Target struct {
	Type  string  `json:"type"`
	Price float64 `json:"price" validate:"gt=0"`
	Label string  `json:"label"`
}

type Confluence struct {
	POIIDs    []string `json:"poiIds"`
	SignalIDs []string `json:"signalIds"`
}

// Complete reports whether the setup carries an entry zone and a stop loss.
func (s Setup) Complete() bool {
	return s.Entry.Zone.Low > 0 && s.Entry.Zone.High >= s.Entry.Zone.Low && s.Risk.StopLoss > 0
}
