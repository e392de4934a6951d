package ingestors

import (
	"context"
	"fmt"

	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/domain"
	"github.com/duskline/biasengine/internal/kvstore"
)

// manualIngestor serves a factor with no automated source: it prefers a
// webhook-pushed override (fresher, operator-supplied this cycle) and
// falls back to the statically configured value. Returns nothing if
// neither is set.
type manualIngestor struct {
	factorID string
	kv       kvstore.Store
	value    *config.ManualFactorValue
}

// NewSavitaIngestor builds the manual strategist-indicator ingestor,
// configured from the loaded config's Manual map.
func NewSavitaIngestor(kv kvstore.Store, cfg *config.Config) Ingestor {
	var val *config.ManualFactorValue
	if cfg != nil {
		if v, ok := cfg.Manual["savita"]; ok {
			val = &v
		}
	}
	return &manualIngestor{factorID: "savita", kv: kv, value: val}
}

func (i *manualIngestor) FactorID() string { return i.factorID }

func (i *manualIngestor) Compute(ctx context.Context) (*domain.FactorReading, error) {
	var override domain.FactorOverridePayload
	ok, err := readJSON(ctx, i.kv, OverrideKey(i.factorID), &override)
	if err != nil {
		return nil, err
	}
	if ok {
		detail := override.Detail
		if detail == "" {
			detail = fmt.Sprintf("%s=%.3f (manual override)", i.factorID, override.Score)
		}
		return reading(i.factorID, override.Score, "manual_override", detail, override.Timestamp), nil
	}

	if i.value == nil {
		return nil, nil
	}
	return fallbackReading(i.factorID, i.value.Score, "config", i.value.Detail), nil
}

func OverrideKey(factorID string) string { return fmt.Sprintf("factor/%s/manual_override", factorID) }
