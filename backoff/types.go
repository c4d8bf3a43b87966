package backoff

import (
	"time"
)

// Backoff computes the wait duration before the next attempt.
// Attempt numbering starts at 1 for the delay following the first try.
type Backoff interface {
	Next(attempt uint) time.Duration
}
