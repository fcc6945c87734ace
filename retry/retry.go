// Package retry provides a small bounded-attempt retry helper. It knows
// nothing about ACME; callers classify their own failures by marking
// non-retryable errors Permanent.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retried operation: a fixed Interval between attempts and a
// hard attempt cap. There is no exponential backoff.
type Policy struct {
	// Total number of attempts, including the first. Values below 1 are
	// treated as 1.
	Attempts int
	// Fixed delay between attempts.
	Interval time.Duration
}

// Do runs op until it succeeds, returns a Permanent error, or the policy's
// attempt cap is exhausted. The last observed error is returned on
// exhaustion.
func Do(op func() error, p Policy) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(attempts-1))
	return backoff.Retry(op, b)
}

// Permanent marks err as non-retryable. Do stops immediately and returns the
// wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
