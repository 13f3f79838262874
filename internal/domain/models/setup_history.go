package models

import "time"

type HistorySource string

const (
	HistorySourceChart HistorySource = "chart"
	HistorySourceSetup HistorySource = "setup"
)

type HistoryStatus string

const (
	HistoryPending HistoryStatus = "pending"
	HistorySuccess HistoryStatus = "success"
	HistoryFailed  HistoryStatus = "failed"
)

// SetupHistoryEntry records one application of a preset or setup to a chart.
type SetupHistoryEntry struct {
	ID            string         `json:"id"`
	AppliedAt     time.Time      `json:"appliedAt"`
	PresetID      *string        `json:"presetId"`
	Params        map[string]any `json:"params"`
	Symbol        string         `json:"symbol"`
	Timeframe     string         `json:"timeframe"`
	Source        HistorySource  `json:"source"`
	CandleTime    *int64         `json:"candleTime,omitempty"`
	SetupSnapshot *Setup         `json:"setupSnapshot,omitempty"`
	Status        HistoryStatus  `json:"status"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
}
