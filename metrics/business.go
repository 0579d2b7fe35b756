package metrics

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// RecordNewUser increments the counter for newly registered users
func RecordNewUser(languageCode string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_users_registered_total{language="%s"}`, languageCode)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordUserActivity increments the counter for user activity by menu state
func RecordUserActivity(menuState string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_user_activity_total{menu="%s"}`, menuState)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordCommand increments the counter for bot commands
func RecordCommand(command string) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_commands_total{command="%s"}`, command)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordMenuTransition increments the counter for menu state transitions
func RecordMenuTransition(from, to int) {
	if !config.Enabled {
		return
	}

	counterName := fmt.Sprintf(`kolekta_menu_transitions_total{from="%d",to="%d"}`, from, to)
	metrics.GetOrCreateCounter(counterName).Inc()
}

// RecordLocationUpdate increments the counter for location updates
func RecordLocationUpdate() {
	if !config.Enabled {
		return
	}

	metrics.GetOrCreateCounter("kolekta_location_updates_total").Inc()
}
