package contracts

import "time"

// EventType names a discrete corporate or market event recorded
// against a ticker.
type EventType string

const (
	EventEarningsRelease      EventType = "earnings_release"
	EventAnalystRatingChange  EventType = "analyst_rating_change"
	EventLargeInsiderTrade    EventType = "large_insider_trade"
	EventDividendAnnouncement EventType = "dividend_announcement"
	EventAcquisitionNews      EventType = "acquisition_news"
	EventGuidanceUpdate       EventType = "guidance_update"

	// Informational tags only: surfaced by the change explainer but
	// never a smoothing reset.
	EventFiftyTwoWeekHigh EventType = "fifty_two_week_high"
	EventFiftyTwoWeekLow  EventType = "fifty_two_week_low"
)

// resetEvents are the event types that bypass score smoothing: the new
// raw score is published directly so the event shows up immediately.
var resetEvents = map[EventType]bool{
	EventEarningsRelease:      true,
	EventAnalystRatingChange:  true,
	EventLargeInsiderTrade:    true,
	EventDividendAnnouncement: true,
	EventAcquisitionNews:      true,
	EventGuidanceUpdate:       true,
}

// IsResetEvent reports whether t forces a smoothing reset.
func (t EventType) IsResetEvent() bool {
	return resetEvents[t]
}

// ScoreEvent is one recorded event for a ticker.
type ScoreEvent struct {
	Ticker     string    `json:"ticker"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Detail     string    `json:"detail,omitempty"`
}
