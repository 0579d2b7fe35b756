package sweeper

import (
	"fmt"
	"kolekta/bugsink"
	"kolekta/config"
	"kolekta/context"
	"kolekta/metrics"
	"log"
	"time"
)

// Sweeper periodically reaps stale records: pending match requests nobody
// answered and active exchanges nobody finished. Expired exchanges reopen
// their posts so they return to the feed.
type Sweeper struct {
	context *context.Context
	stop    chan struct{}
}

func NewSweeper(context *context.Context) *Sweeper {
	return &Sweeper{
		context: context,
		stop:    make(chan struct{}),
	}
}

// Start runs the sweep loop in the background. One sweep runs immediately
// so a restart does not delay overdue cleanup by a full interval.
func (s *Sweeper) Start() {
	interval := time.Duration(config.C().Sweep_Interval_Minutes) * time.Minute
	log.Printf("[SWEEPER] Starting sweep loop, interval %v", interval)

	go func() {
		defer bugsink.Recover()

		s.Sweep()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				log.Printf("[SWEEPER] Sweep loop stopped")
				return
			}
		}
	}()
}

// Stop terminates the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stop)
}

// Sweep runs a single cleanup pass.
func (s *Sweeper) Sweep() {
	cfg := config.C()

	pendingCutoff := fmt.Sprintf("%d hours", cfg.Pending_TTL_Hours)
	expiredIDs, err := s.context.Repo.ExpirePendingRequestsBefore(pendingCutoff)
	if err != nil {
		log.Printf("[SWEEPER] Failed to expire pending requests: %v", err)
		bugsink.CaptureError(err, map[string]interface{}{"component": "sweeper"})
	} else if len(expiredIDs) > 0 {
		log.Printf("[SWEEPER] Expired %d pending match requests: %v", len(expiredIDs), expiredIDs)
		for range expiredIDs {
			metrics.RecordMatchRequest("expired")
		}
	}

	exchangeCutoff := fmt.Sprintf("%d hours", cfg.Exchange_TTL_Hours)
	reaped, err := s.context.Repo.ExpireActiveExchangesBefore(exchangeCutoff)
	if err != nil {
		log.Printf("[SWEEPER] Failed to expire active exchanges: %v", err)
		bugsink.CaptureError(err, map[string]interface{}{"component": "sweeper"})
	} else if reaped > 0 {
		log.Printf("[SWEEPER] Expired %d abandoned active exchanges", reaped)
		for i := int64(0); i < reaped; i++ {
			metrics.RecordExchangeExpired()
		}
	}
}
