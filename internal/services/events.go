package services

import (
	"context"
	"time"

	"bilancio/internal/log"
	"bilancio/internal/ports"
)

// DefaultPublishTimeout caps how long a request waits for its events.
const DefaultPublishTimeout = 2 * time.Second

// publishEvents sends evs in order and returns once they are all sent or
// timeout elapses, whichever comes first. Sending continues detached from
// the caller's cancellation until the timeout; failures are only logged.
func publishEvents(ctx context.Context, p ports.EventPublisher, timeout time.Duration, logger *log.Logger, evs []ports.TransactionEvent) {
	if p == nil || len(evs) == 0 {
		return
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	done := make(chan struct{})
	go func() {
		defer cancel()
		defer close(done)
		for i, ev := range evs {
			if pctx.Err() != nil {
				logger.WarnContext(pctx, "Dropped unpublished events",
					log.FieldCount, len(evs)-i,
					log.FieldError, pctx.Err())
				return
			}
			if err := p.PublishTransactionEvent(pctx, ev); err != nil {
				logger.WarnContext(pctx, "Failed to publish event",
					log.FieldTransactionID, ev.TransactionID,
					log.FieldEventType, ev.Type,
					log.FieldError, err)
			}
		}
	}()

	select {
	case <-done:
		return
	case <-pctx.Done():
	}
	select {
	case <-done:
	default:
		logger.WarnContext(ctx, "Event publishing timed out",
			log.FieldCount, len(evs),
			log.FieldDuration, timeout.Milliseconds())
	}
}
