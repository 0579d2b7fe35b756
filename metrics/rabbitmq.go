package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordRabbitMQMessage increments counters for RabbitMQ operations.
// Direction is either "published" or "consumed".
func RecordRabbitMQMessage(direction string, queue string, success bool) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_rabbitmq_messages_total{direction="%s",queue="%s",success="%t"}`,
		direction, queue, success)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordRabbitMQReconnect increments the counter for connection recoveries
func RecordRabbitMQReconnect(queue string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_rabbitmq_reconnects_total{queue="%s"}`, queue)
	metrics.GetOrCreateCounter(counterName).Inc()
}
