package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordTelegramMessage increments counters for outgoing Telegram operations.
// Kind is one of: message, callback_answer, edit_message, post_notification,
// match_event.
func RecordTelegramMessage(kind string, success bool) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_telegram_messages_total{kind="%s",success="%t"}`, kind, success)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordTelegramError increments the counter for Telegram API errors by code
func RecordTelegramError(errorCode string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_telegram_errors_total{code="%s"}`, errorCode)
	metrics.GetOrCreateCounter(counterName).Inc()
}
