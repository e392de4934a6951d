package ingestors

import (
	"github.com/duskline/biasengine/internal/config"
	"github.com/duskline/biasengine/internal/factorstore"
	"github.com/duskline/biasengine/internal/kvstore"
	"github.com/duskline/biasengine/internal/marketdata"
)

// BuildIntraday wires the subset of the 23-factor set tagged
// domain.TimeframeIntraday: priced off the underlying fetcher or pushed in
// by the webhook intake, all cheap enough to refresh every few minutes
// during the trading session.
func BuildIntraday(priceFetcher marketdata.Fetcher, kv kvstore.Store) *Registry {
	return NewRegistry(
		NewVIXTermIngestor(priceFetcher),
		NewTickBreadthIngestor(kv),
		NewVIXRegimeIngestor(priceFetcher),
		NewSPYTrendIntradayIngestor(priceFetcher),
		NewBreadthMomentumIngestor(kv, NewBreadthMomentumPriceFallback(priceFetcher)),
		NewOptionsSentimentIngestor(kv),
	)
}

// BuildSwingMacro wires the remaining two timeframes in one registry since
// the scheduler refreshes both on the same once-daily driver: swing
// (price-derived, 24-72h staleness) and macro (FRED series and the manual
// strategist read, staleness measured in days/weeks).
func BuildSwingMacro(priceFetcher marketdata.Fetcher, fred FredFetcher, kv kvstore.Store, store *factorstore.Store, cfg *config.Config) *Registry {
	return NewRegistry(
		// Swing (price-derived)
		NewCreditSpreadsIngestor(priceFetcher),
		NewMarketBreadthIngestor(priceFetcher),
		NewSectorRotationIngestor(priceFetcher),
		NewSPY200SMADistanceIngestor(priceFetcher),
		NewDollarSmileIngestor(priceFetcher),
		NewPutCallRatioIngestor(kv),
		NewPolygonPCRIngestor(kv),
		NewIVSkewIngestor(kv),

		// Macro (FRED economic series and price-derived regime reads)
		NewYieldCurveIngestor(fred, store),
		NewInitialClaimsIngestor(fred, store),
		NewSahmRuleIngestor(fred, store),
		NewHighYieldOASIngestor(fred, store),
		NewCopperGoldRatioIngestor(priceFetcher),
		NewDXYTrendIngestor(priceFetcher),
		NewExcessCAPEIngestor(fred, priceFetcher, store),
		NewISMManufacturingIngestor(fred, store),

		// Manual
		NewSavitaIngestor(kv, cfg),
	)
}
