package observability

// Metric name prefixes
const (
	MetricPrefix = "wingman"
)

// Metric names
const (
	// Event bus metrics
	EventsEmittedTotal = MetricPrefix + ".events.emitted_total"

	// Market metrics
	BetsPlacedTotal       = MetricPrefix + ".bets.placed_total"
	BetVolume             = MetricPrefix + ".bets.volume"
	MarketsResolvedTotal  = MetricPrefix + ".markets.resolved_total"
	SettlementRemainder   = MetricPrefix + ".markets.settlement_remainder"
	MarketsClosedTotal    = MetricPrefix + ".markets.closed_total"
	VouchAdjustmentsTotal = MetricPrefix + ".vouch.adjustments_total"

	// HTTP metrics
	HTTPRequestsTotal   = MetricPrefix + ".http.requests_total"
	HTTPRequestDuration = MetricPrefix + ".http.request_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelPosition  = "position"
	LabelOutcome   = "outcome"

	// HTTP labels
	LabelMethod = "method"
	LabelRoute  = "route"
	LabelStatus = "status"
)
