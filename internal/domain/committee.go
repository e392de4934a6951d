package domain

// CommitteePacket is the single aggregated read handed to downstream
// decisioning: the fused bias, a technical snapshot per watched ticker,
// the calendar context for the assembly moment, the latest portfolio
// snapshot, recent signal outcomes, and unacknowledged health alerts.
// Assembly is pure aggregation over existing stores - no LLM calls, no
// prompt templates.
type CommitteePacket struct {
	Bias       CompositeResult              `json:"bias"`
	Technicals map[string]IndicatorSnapshot `json:"technicals"`
	Calendar   CalendarContext              `json:"calendar"`
	Portfolio  PortfolioSnapshot            `json:"portfolio"`
	RecentPnL  []SignalOutcome              `json:"recent_pnl"`
	Feedback   []HealthAlert                `json:"feedback"`
}
