package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordPostCreated increments the counter for created exchange posts
func RecordPostCreated(giveKind string, needKind string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_posts_created_total{give="%s",need="%s"}`, giveKind, needKind)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordPostClosed increments the counter for posts closed by their owner
func RecordPostClosed(reason string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_posts_closed_total{reason="%s"}`, reason)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordPostSearch increments the counter for post searches by sort mode
func RecordPostSearch(sortBy string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_post_searches_total{sort="%s"}`, sortBy)
	metrics.GetOrCreateCounter(counterName).Inc()
}
