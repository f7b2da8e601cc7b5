package worker

import (
	"math/rand"
	"time"
)

// backoffDelay computes the delay before retry attempt n (1-based over
// attempts already made): initial * 2^(attempt-1), capped at max, with
// up to 25% random jitter added so synchronized retries spread out.
func backoffDelay(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
