package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordCompletionSubmitted increments the counter for completion submissions.
// Closed reports whether the submission was the closing one for the exchange.
func RecordCompletionSubmitted(closed bool) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_completions_submitted_total{closed="%t"}`, closed)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordRatingSubmitted increments the counter for submitted ratings by value
func RecordRatingSubmitted(rating int) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_ratings_submitted_total{rating="%d"}`, rating)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordExchangeExpired increments the counter for exchanges reaped by the sweeper
func RecordExchangeExpired() {
	if !config.Enabled {
		return
	}

	metrics.GetOrCreateCounter("kolekta_exchanges_expired_total").Inc()
}
