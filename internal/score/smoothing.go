package score

import (
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

// Stabilizer dampens day-over-day score noise with an exponential
// blend, while letting genuine events punch through immediately.
type Stabilizer struct {
	params scoringconfig.SmoothingParams
}

// NewStabilizer builds a Stabilizer from smoothing parameters.
func NewStabilizer(params scoringconfig.SmoothingParams) *Stabilizer {
	return &Stabilizer{params: params}
}

// Apply blends the new raw score against the previous published score.
//
// Returns the score to publish, whether smoothing was applied, and a
// non-empty reset reason when an event bypassed it. The decision
// ladder:
//   - no previous score, or one older than the lookback window:
//     publish raw as-is
//   - a reset event since the previous run: publish raw as-is, so an
//     earnings beat moves the score the same day
//   - otherwise: alpha*raw + (1-alpha)*previous; moves smaller than
//     min_change keep the previous score to suppress jitter
func (s *Stabilizer) Apply(raw float64, prev *PreviousScore, asOf time.Time, events []contracts.ScoreEvent) (score float64, applied bool, resetReason string) {
	if prev == nil {
		return raw, false, ""
	}
	if asOf.Sub(prev.Date) > time.Duration(s.params.LookbackDays)*24*time.Hour {
		return raw, false, ""
	}

	for _, ev := range events {
		if !ev.Type.IsResetEvent() {
			continue
		}
		// Only events inside the (previous, current] window reset;
		// older events already had their chance.
		if ev.OccurredAt.After(prev.Date) && !ev.OccurredAt.After(asOf) {
			return raw, false, string(ev.Type)
		}
	}

	smoothed := s.params.Alpha*raw + (1-s.params.Alpha)*prev.Score
	if abs(smoothed-prev.Score) < s.params.MinChange {
		return prev.Score, true, ""
	}
	return smoothed, true, ""
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
