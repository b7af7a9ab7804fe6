package backtest

import (
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// Period is one rebalance window: portfolios form at Start and are
// held until End.
type Period struct {
	Start time.Time
	End   time.Time
}

// GeneratePeriods splits [start, end] into rebalance windows.
// Monthly and quarterly windows snap to calendar boundaries, so the
// first and last window may be partial. The final window is clipped
// to end.
func GeneratePeriods(start, end time.Time, freq contracts.RebalanceFrequency) []Period {
	var periods []Period
	current := start

	for current.Before(end) {
		var next time.Time
		switch freq {
		case contracts.RebalanceDaily:
			next = current.AddDate(0, 0, 1)
		case contracts.RebalanceWeekly:
			next = current.AddDate(0, 0, 7)
		case contracts.RebalanceQuarterly:
			next = nextQuarterStart(current)
		default: // monthly
			next = time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, current.Location()).AddDate(0, 1, 0)
		}

		periodEnd := next.AddDate(0, 0, -1)
		if periodEnd.After(end) {
			periodEnd = end
		}
		periods = append(periods, Period{Start: current, End: periodEnd})
		current = next
	}

	return periods
}

func nextQuarterStart(t time.Time) time.Time {
	quarterMonth := ((int(t.Month())-1)/3+1)*3 + 1
	year := t.Year()
	if quarterMonth > 12 {
		quarterMonth -= 12
		year++
	}
	return time.Date(year, time.Month(quarterMonth), 1, 0, 0, 0, 0, t.Location())
}
