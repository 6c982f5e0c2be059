package transmit

import (
	"context"
	"errors"
	"time"

	"github.com/phobologic/callrank/internal/ctxlog"
)

const (
	defaultBaseDelay = 200 * time.Millisecond
	defaultMaxDelay  = 30 * time.Second
)

// Retry wraps a Deliverer and retries transmission errors up to Attempts
// times with exponential backoff starting at BaseDelay and capped at
// MaxDelay. Other errors are returned immediately.
type Retry struct {
	Next      Deliverer
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Deliver implements Deliverer.
func (r *Retry) Deliver(ctx context.Context, payload []byte) error {
	attempts := max(r.Attempts, 1)
	base := r.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	ceiling := r.MaxDelay
	if ceiling <= 0 {
		ceiling = defaultMaxDelay
	}
	logger := ctxlog.FromContext(ctx)

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			delay := backoff(base, ceiling, i)
			logger.Warn("delivery failed, retrying", "attempt", i+1, "delay", delay, "err", last)
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return errors.Join(last, ctx.Err())
			case <-t.C:
			}
		}

		err := r.Next.Deliver(ctx, payload)
		if err == nil {
			return nil
		}
		var te *TransmissionError
		if !errors.As(err, &te) {
			return err
		}
		last = err
	}
	return last
}

// backoff returns the wait before the given retry (1-based): base doubled
// retry-1 times, never above ceiling.
func backoff(base, ceiling time.Duration, retry int) time.Duration {
	delay := min(base, ceiling)
	for i := 1; i < retry && delay < ceiling; i++ {
		delay = min(delay*2, ceiling)
	}
	return delay
}
