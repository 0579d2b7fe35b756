package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordMatchRequest increments the counter for match request outcomes.
// Outcome is one of: created, duplicate, accepted, declined, expired.
func RecordMatchRequest(outcome string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_match_requests_total{outcome="%s"}`, outcome)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordStateConflict increments the counter for optimistic concurrency
// conflicts, labelled by the operation that lost the race.
func RecordStateConflict(operation string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_state_conflicts_total{operation="%s"}`, operation)
	metrics.GetOrCreateCounter(counterName).Inc()
}
