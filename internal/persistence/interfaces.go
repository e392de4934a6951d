// Package persistence defines the relational-store contracts (C2) that sit
// behind the factor reading store, the signal dispatcher, and the
// committee packet assembler. Concrete implementations live in
// internal/persistence/postgres.
package persistence

import (
	"context"
	"time"

	"github.com/duskline/biasengine/internal/domain"
)

// TimeRange bounds a query by source timestamp, inclusive on both ends.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// FactorReadingsRepo persists the append-only factor_readings/factor_history
// tables; C3 writes through to this on every ingest.
type FactorReadingsRepo interface {
	Insert(ctx context.Context, reading domain.FactorReading) error
	ListByFactor(ctx context.Context, factorID string, tr TimeRange, limit int) ([]domain.FactorReading, error)
	GetLatest(ctx context.Context, factorID string) (*domain.FactorReading, error)
}

// CompositeHistoryRepo persists the append-only bias_composite_history table.
type CompositeHistoryRepo interface {
	Insert(ctx context.Context, result domain.CompositeResult) error
	ListRecent(ctx context.Context, limit int) ([]domain.CompositeResult, error)
}

// SignalsRepo persists emitted scanner signals.
type SignalsRepo interface {
	Insert(ctx context.Context, signal domain.Signal) error
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)
	ListBySymbol(ctx context.Context, symbol string, tr TimeRange, limit int) ([]domain.Signal, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Signal, error)
	LastEmitted(ctx context.Context, symbol string, signalType domain.SignalType) (*domain.Signal, error)
}

// SignalOutcomesRepo persists the closed-record resolution of signals.
type SignalOutcomesRepo interface {
	Insert(ctx context.Context, outcome domain.SignalOutcome) error
	GetBySignalID(ctx context.Context, signalID string) (*domain.SignalOutcome, error)
	ListRecent(ctx context.Context, limit int) ([]domain.SignalOutcome, error)
}

// PositionsRepo persists lightweight position records. Execution, fills,
// and broker reconciliation are explicitly out of scope; this is a durable
// record for dashboard reads, not a trading ledger.
type PositionsRepo interface {
	Insert(ctx context.Context, position domain.Position) error
	Update(ctx context.Context, position domain.Position) error
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)
	ListOpen(ctx context.Context) ([]domain.Position, error)
}

// TradesRepo persists individual fills against a position.
type TradesRepo interface {
	Insert(ctx context.Context, trade domain.Trade) error
	ListByPosition(ctx context.Context, positionID string) ([]domain.Trade, error)
}

// TradeLegsRepo persists multi-leg position structures.
type TradeLegsRepo interface {
	InsertBatch(ctx context.Context, legs []domain.TradeLeg) error
	ListByPosition(ctx context.Context, positionID string) ([]domain.TradeLeg, error)
}

// PortfolioRepo persists periodic portfolio snapshots for C12.
type PortfolioRepo interface {
	Insert(ctx context.Context, snapshot domain.PortfolioSnapshot) error
	GetLatest(ctx context.Context) (*domain.PortfolioSnapshot, error)
}

// StrategyHealthRepo persists rolling strategy health metrics for C12.
type StrategyHealthRepo interface {
	Insert(ctx context.Context, health domain.StrategyHealth) error
	GetLatest(ctx context.Context) (*domain.StrategyHealth, error)
}

// HealthAlertsRepo persists operator-facing health alerts.
type HealthAlertsRepo interface {
	Insert(ctx context.Context, alert domain.HealthAlert) error
	ListUnacknowledged(ctx context.Context) ([]domain.HealthAlert, error)
	Acknowledge(ctx context.Context, timestamp time.Time, kind string) error
}

// PriceHistoryRepo persists the OHLCV bars the scanner's indicator panel is
// computed from.
type PriceHistoryRepo interface {
	InsertBatch(ctx context.Context, bars []domain.PriceBarRow) error
	ListBySymbol(ctx context.Context, symbol string, tr TimeRange) ([]domain.PriceBarRow, error)
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// WatchlistRepo persists the tracked-ticker/sector-ETF table the scanner and
// sector-wind enrichment read from.
type WatchlistRepo interface {
	Upsert(ctx context.Context, ticker domain.WatchlistTicker) error
	ListActive(ctx context.Context) ([]domain.WatchlistTicker, error)
}

// Repository aggregates every relational-store contract behind a single
// handle, the shape every component that needs durable storage depends on.
type Repository struct {
	FactorReadings  FactorReadingsRepo
	CompositeHist   CompositeHistoryRepo
	Signals         SignalsRepo
	SignalOutcomes  SignalOutcomesRepo
	Positions       PositionsRepo
	Trades          TradesRepo
	TradeLegs       TradeLegsRepo
	Portfolio       PortfolioRepo
	StrategyHealth  StrategyHealthRepo
	HealthAlerts    HealthAlertsRepo
	PriceHistory    PriceHistoryRepo
	Watchlist       WatchlistRepo
}

// RepositoryHealth reports whether the backing store is reachable, used by
// the scheduler's health-check cadence and the /healthz surface.
type RepositoryHealth interface {
	Ping(ctx context.Context) error
}
