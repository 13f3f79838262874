package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"SmcDesk/internal/domain/models"
	"SmcDesk/internal/domain/repository"
)

const DefaultEngineVersion = "smc.v1.0.0"

// Rejection codes returned in RejectError.Code.
const (
	ErrCodeSetupIncomplete = "ERR_SETUP_INCOMPLETE"
	ErrCodeSetupStatus     = "ERR_SETUP_STATUS"
	ErrCodeConfidence      = "ERR_CONFIDENCE"
	ErrCodeRR              = "ERR_RR"
	ErrCodeConfluence      = "ERR_CONFLUENCE"
	ErrCodeDuplicateZone   = "ERR_DUPLICATE_ZONE"
)

// RejectError explains why a setup did not produce an order.
type RejectError struct {
	Code   string
	Reason string
}

func (e *RejectError) Error() string { return e.Code + ": " + e.Reason }

func reject(code, format string, args ...any) *RejectError {
	return &RejectError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// Thresholds gate order creation.
type Thresholds struct {
	MinConfidence      float64
	MinRR              float64
	MinConfluenceCount int
	ValidUntilCandles  int
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinConfidence: 70, MinRR: 2.0, MinConfluenceCount: 2, ValidUntilCandles: 12}
}

var tickSizes = map[string]decimal.Decimal{
	"BTCUSDT": decimal.RequireFromString("0.01"),
	"ETHUSDT": decimal.RequireFromString("0.01"),
}

var defaultTick = decimal.RequireFromString("0.01")

// TickSize returns the price bucket used for dedupe keys.
func TickSize(symbol string) decimal.Decimal {
	if t, ok := tickSizes[symbol]; ok {
		return t
	}
	return defaultTick
}

// DedupeKey buckets the entry midpoint to the instrument tick so that two
// setups on the same zone collide.
func DedupeKey(symbol, tf string, side models.SetupSide, mid float64) string {
	tick := TickSize(symbol)
	bucket := decimal.NewFromFloat(mid).Div(tick).Round(0).Mul(tick)
	return strings.Join([]string{symbol, tf, string(side), bucket.String()}, "|")
}

// CanCreateFromSetup checks status, confidence, risk:reward and confluence,
// in that order, and returns the first failing gate.
func CanCreateFromSetup(s *models.Setup, th Thresholds) error {
	if s == nil || !s.Complete() {
		return reject(ErrCodeSetupIncomplete, "setup must carry entry.zone and risk.stopLoss")
	}
	if s.Status != models.SetupValid && s.Status != models.SetupWait {
		return reject(ErrCodeSetupStatus, "setup.status must be valid or wait (got %q)", s.Status)
	}
	if s.Confidence < th.MinConfidence {
		return reject(ErrCodeConfidence, "confidence %v < %v", s.Confidence, th.MinConfidence)
	}
	if s.Risk.RRMin < th.MinRR {
		return reject(ErrCodeRR, "rrMin %v < %v", s.Risk.RRMin, th.MinRR)
	}
	if len(s.Reasons) < th.MinConfluenceCount {
		return reject(ErrCodeConfluence, "confluence count %d < %d", len(s.Reasons), th.MinConfluenceCount)
	}
	return nil
}

// CreateInput carries the request metadata stored alongside a new order.
type CreateInput struct {
	Symbol         string
	Timeframe      string
	PresetID       *string
	PresetVersion  string
	ParamsResolved map[string]any
	EngineVersion  string
	SnapshotID     string
	Setup          *models.Setup
}

// Create gates the setup, rejects a duplicate of any active order in
// existing and builds a PLANNED order. The caller prepends it and persists.
func Create(existing []models.VirtualOrder, in CreateInput, th Thresholds, now time.Time) (models.VirtualOrder, error) {
	if err := CanCreateFromSetup(in.Setup, th); err != nil {
		return models.VirtualOrder{}, err
	}
	o := NewOrderFromSetup(in, th, now)
	for _, e := range existing {
		if e.State.Active() && e.DedupeKey == o.DedupeKey {
			return models.VirtualOrder{}, reject(ErrCodeDuplicateZone, "an active order already covers zone %s (order %s)", o.DedupeKey, e.ID)
		}
	}
	return o, nil
}

// NewOrderFromSetup builds a PLANNED order without running any gate.
func NewOrderFromSetup(in CreateInput, th Thresholds, now time.Time) models.VirtualOrder {
	s := in.Setup
	side := models.SideSell
	if s.Direction == models.SideBuy {
		side = models.SideBuy
	}
	low, high := s.Entry.Zone.Low, s.Entry.Zone.High
	ms := now.UnixMilli()

	targets := make([]float64, 0, len(s.Targets))
	for _, t := range s.Targets {
		targets = append(targets, t.Price)
	}
	candles := th.ValidUntilCandles
	if candles <= 0 {
		candles = DefaultThresholds().ValidUntilCandles
	}
	params := in.ParamsResolved
	if params == nil {
		params = map[string]any{}
	}

	o := models.VirtualOrder{
		ID:                NewID("vo", now),
		Symbol:            in.Symbol,
		TF:                in.Timeframe,
		Side:              side,
		State:             models.OrderPlanned,
		CreatedAt:         now.UTC(),
		EntryZoneLow:      low,
		EntryZoneHigh:     high,
		StopLoss:          s.Risk.StopLoss,
		Targets:           targets,
		RRExpected:        s.Risk.RRMin,
		EngineVersion:     firstNonEmpty(in.EngineVersion, DefaultEngineVersion),
		PresetID:          in.PresetID,
		PresetVersion:     in.PresetVersion,
		ParamsResolved:    params,
		SnapshotID:        firstNonEmpty(in.SnapshotID, fmt.Sprintf("snap_%d", ms)),
		SetupRef:          firstNonEmpty(s.ID, fmt.Sprintf("setup-%d", ms)),
		SetupName:         firstNonEmpty(s.Name, "Setup"),
		ValidUntilCandleT: ms + int64(candles)*repository.Timeframe(in.Timeframe).Millis(),
	}
	o.DedupeKey = DedupeKey(o.Symbol, o.TF, side, o.EntryMid())
	return o
}

// NewID returns "{prefix}_{unix ms}_{9 random chars}".
func NewID(prefix string, now time.Time) string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), r[:9])
}

func firstNonEmpty(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
