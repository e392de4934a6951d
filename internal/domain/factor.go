package domain

import (
	"encoding/json"
	"time"
)

// TimestampSource records whether a FactorReading's Timestamp came from the
// underlying payload or was fabricated at ingest time.
type TimestampSource string

const (
	TimestampUpdatedAt  TimestampSource = "updated_at"
	TimestampTimestamp  TimestampSource = "timestamp"
	TimestampReceivedAt TimestampSource = "received_at"
	TimestampFallback   TimestampSource = "fallback"
)

// ReadingMetadata is the typed view over a FactorReading's opaque metadata
// bag. Ingestors populate it; nothing downstream reaches into raw JSON.
type ReadingMetadata struct {
	TimestampSource TimestampSource `json:"timestamp_source"`
	VelocityDrop    *float64        `json:"velocity_drop,omitempty"`
}

// FactorReading is one observation from a single factor ingestor.
type FactorReading struct {
	FactorID  string          `json:"factor_id" db:"factor_id"`
	Score     float64         `json:"score" db:"score"`
	Signal    BiasLevel       `json:"signal" db:"signal"`
	Timestamp time.Time       `json:"timestamp" db:"ts"`
	Source    string          `json:"source" db:"source"`
	Detail    string          `json:"detail" db:"detail"`
	RawData   json.RawMessage `json:"raw_data,omitempty" db:"raw_data"`
	Metadata  ReadingMetadata `json:"metadata" db:"metadata"`
}

// IsUnverifiable reports whether the reading's timestamp was fabricated
// rather than sourced from the underlying payload.
func (r FactorReading) IsUnverifiable() bool {
	return r.Metadata.TimestampSource == TimestampFallback
}

// Timeframe buckets a factor by refresh cadence family.
type Timeframe string

const (
	TimeframeIntraday Timeframe = "intraday"
	TimeframeSwing    Timeframe = "swing"
	TimeframeMacro    Timeframe = "macro"
)

// FactorConfig is the static configuration for one factor in the closed set.
type FactorConfig struct {
	FactorID       string    `yaml:"factor_id" json:"factor_id"`
	Weight         float64   `yaml:"weight" json:"weight"`
	StalenessHours float64   `yaml:"staleness_hours" json:"staleness_hours"`
	Timeframe      Timeframe `yaml:"timeframe" json:"timeframe"`
	Description    string    `yaml:"description" json:"description"`
	SnapshotBacked bool      `yaml:"snapshot_backed" json:"snapshot_backed"`
}

// IsStale reports whether a reading taken at readingTime is stale as of now,
// given this factor's staleness window.
func (c FactorConfig) IsStale(readingTime, now time.Time) bool {
	return now.Sub(readingTime).Hours() > c.StalenessHours
}

// StalenessTTL returns the KV TTL for this factor's "latest" key: the larger
// of the default TTL and the staleness window itself, so macro factors with
// long staleness windows are never expired by a shorter process-wide default.
func (c FactorConfig) StalenessTTL(defaultTTL time.Duration) time.Duration {
	staleness := time.Duration(c.StalenessHours * float64(time.Hour))
	if staleness > defaultTTL {
		return staleness
	}
	return defaultTTL
}
