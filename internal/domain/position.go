package domain

import "time"

// PositionStatus is the lifecycle state of a tracked position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position is a lightweight record of a tracked position opened from a
// signal or entered manually. Execution, fills, and broker reconciliation
// are out of scope; this is a durable record for watchlist/dashboard reads.
type Position struct {
	PositionID   string         `json:"position_id" db:"position_id"`
	Symbol       string         `json:"symbol" db:"symbol"`
	Direction    Direction      `json:"direction" db:"direction"`
	Status       PositionStatus `json:"status" db:"status"`
	EntryPrice   float64        `json:"entry_price" db:"entry_price"`
	ExitPrice    *float64       `json:"exit_price,omitempty" db:"exit_price"`
	Quantity     float64        `json:"quantity" db:"quantity"`
	StopLoss     *float64       `json:"stop_loss,omitempty" db:"stop_loss"`
	Target1      *float64       `json:"target_1,omitempty" db:"target_1"`
	Target2      *float64       `json:"target_2,omitempty" db:"target_2"`
	SignalID     *string        `json:"signal_id,omitempty" db:"signal_id"`
	Source       string         `json:"source" db:"source"`
	Notes        string         `json:"notes,omitempty" db:"notes"`
	OpenedAt     time.Time      `json:"opened_at" db:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty" db:"closed_at"`
}

// Trade is a single fill record against a position.
type Trade struct {
	TradeID    string    `json:"trade_id" db:"trade_id"`
	PositionID string    `json:"position_id" db:"position_id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Side       string    `json:"side" db:"side"`
	Price      float64   `json:"price" db:"price"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	ExecutedAt time.Time `json:"executed_at" db:"executed_at"`
}

// TradeLeg is one leg of a multi-leg position (e.g. a spread); most
// positions have exactly one implicit leg and never populate this table.
type TradeLeg struct {
	LegID      string  `json:"leg_id" db:"leg_id"`
	PositionID string  `json:"position_id" db:"position_id"`
	Strike     *float64 `json:"strike,omitempty" db:"strike"`
	OptionType *string  `json:"option_type,omitempty" db:"option_type"`
	Quantity   float64  `json:"quantity" db:"quantity"`
}

// WatchlistTicker is a ticker tracked by the scanner and sector-wind
// lookups, with its sector ETF for cross-referencing CTA zones.
type WatchlistTicker struct {
	Symbol    string `json:"symbol" db:"symbol"`
	SectorETF string `json:"sector_etf,omitempty" db:"sector_etf"`
	Active    bool   `json:"active" db:"active"`
}

// PriceBarRow is a persisted OHLCV bar for a ticker, the durable backing
// store behind the scanner's rolling indicator windows.
type PriceBarRow struct {
	Symbol string    `json:"symbol" db:"symbol"`
	Date   time.Time `json:"date" db:"date"`
	Open   float64   `json:"open" db:"open"`
	High   float64   `json:"high" db:"high"`
	Low    float64   `json:"low" db:"low"`
	Close  float64   `json:"close" db:"close"`
	Volume float64   `json:"volume" db:"volume"`
}
