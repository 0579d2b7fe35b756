package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordFanoutMessage increments the counter for fanout notifications
func RecordFanoutMessage(success bool) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_fanout_messages_total{success="%t"}`, success)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordFanoutRun increments the counter for fanout snapshot runs
func RecordFanoutRun(recipients int) {
	if !config.Enabled {
		return
	}

	metrics.GetOrCreateCounter("kolekta_fanout_runs_total").Inc()
	metrics.GetOrCreateCounter("kolekta_fanout_recipients_total").Add(recipients)
}

// RecordChatMessage increments the counter for relayed chat messages
func RecordChatMessage(system bool) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_chat_messages_total{system="%t"}`, system)
	metrics.GetOrCreateCounter(counterName).Inc()
}
