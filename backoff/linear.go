package backoff

import (
	"time"
)

var _ Backoff = (*Linear)(nil)

type Linear struct {
	interval time.Duration
}

func NewLinear(interval time.Duration) Linear {
	return Linear{
		interval: interval,
	}
}

func (l Linear) Next(attempt uint) time.Duration {
	return time.Duration(attempt) * l.interval
}
