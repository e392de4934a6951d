package config

import "github.com/duskline/biasengine/internal/domain"

// DefaultFactorConfigs is the closed 23-factor set, with weight/staleness/
// timeframe resolved from the original system's factor configuration table.
// Weights are renormalized at load time via NormalizeFactorWeights rather
// than assumed to already sum to exactly 1.0.
func DefaultFactorConfigs() []domain.FactorConfig {
	return []domain.FactorConfig{
		{FactorID: "vix_term", Weight: 0.07, StalenessHours: 4, Timeframe: domain.TimeframeIntraday, Description: "VIX term structure (VIX/VIX3M)"},
		{FactorID: "tick_breadth", Weight: 0.06, StalenessHours: 4, Timeframe: domain.TimeframeIntraday, Description: "NYSE TICK breadth"},
		{FactorID: "vix_regime", Weight: 0.05, StalenessHours: 4, Timeframe: domain.TimeframeIntraday, Description: "VIX level regime"},
		{FactorID: "spy_trend_intraday", Weight: 0.05, StalenessHours: 4, Timeframe: domain.TimeframeIntraday, Description: "SPY intraday trend"},
		{FactorID: "breadth_momentum", Weight: 0.03, StalenessHours: 24, Timeframe: domain.TimeframeIntraday, Description: "Breadth momentum"},
		{FactorID: "options_sentiment", Weight: 0.02, StalenessHours: 8, Timeframe: domain.TimeframeIntraday, Description: "Options sentiment (Market Tide)"},
		{FactorID: "credit_spreads", Weight: 0.08, StalenessHours: 48, Timeframe: domain.TimeframeSwing, Description: "Credit spreads (HYG/TLT)"},
		{FactorID: "market_breadth", Weight: 0.08, StalenessHours: 48, Timeframe: domain.TimeframeSwing, Description: "Market breadth (RSP/SPY)"},
		{FactorID: "sector_rotation", Weight: 0.06, StalenessHours: 48, Timeframe: domain.TimeframeSwing, Description: "Sector rotation (cyclicals vs defensives)"},
		{FactorID: "spy_200sma_distance", Weight: 0.07, StalenessHours: 24, Timeframe: domain.TimeframeSwing, Description: "SPY distance from 200-day SMA"},
		{FactorID: "high_yield_oas", Weight: 0.03, StalenessHours: 48, Timeframe: domain.TimeframeSwing, Description: "High yield OAS spread", SnapshotBacked: true},
		{FactorID: "dollar_smile", Weight: 0.02, StalenessHours: 48, Timeframe: domain.TimeframeSwing, Description: "Dollar smile regime"},
		{FactorID: "put_call_ratio", Weight: 0.03, StalenessHours: 72, Timeframe: domain.TimeframeSwing, Description: "Equity put/call ratio"},
		{FactorID: "polygon_pcr", Weight: 0.03, StalenessHours: 8, Timeframe: domain.TimeframeSwing, Description: "Polygon-sourced put/call ratio"},
		{FactorID: "iv_skew", Weight: 0.02, StalenessHours: 8, Timeframe: domain.TimeframeSwing, Description: "Implied volatility skew"},
		{FactorID: "yield_curve", Weight: 0.05, StalenessHours: 72, Timeframe: domain.TimeframeMacro, Description: "10y-2y yield curve", SnapshotBacked: true},
		{FactorID: "initial_claims", Weight: 0.05, StalenessHours: 168, Timeframe: domain.TimeframeMacro, Description: "Initial jobless claims", SnapshotBacked: true},
		{FactorID: "sahm_rule", Weight: 0.04, StalenessHours: 168, Timeframe: domain.TimeframeMacro, Description: "Sahm rule recession indicator", SnapshotBacked: true},
		{FactorID: "copper_gold_ratio", Weight: 0.03, StalenessHours: 48, Timeframe: domain.TimeframeMacro, Description: "Copper/gold ratio"},
		{FactorID: "dxy_trend", Weight: 0.05, StalenessHours: 48, Timeframe: domain.TimeframeMacro, Description: "US dollar index trend"},
		{FactorID: "excess_cape", Weight: 0.03, StalenessHours: 168, Timeframe: domain.TimeframeMacro, Description: "Excess CAPE yield", SnapshotBacked: true},
		{FactorID: "ism_manufacturing", Weight: 0.03, StalenessHours: 720, Timeframe: domain.TimeframeMacro, Description: "ISM manufacturing PMI", SnapshotBacked: true},
		{FactorID: "savita", Weight: 0.02, StalenessHours: 1080, Timeframe: domain.TimeframeMacro, Description: "Manual strategist indicator"},
	}
}
