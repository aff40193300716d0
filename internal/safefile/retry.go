package safefile

import (
	"fmt"
	"time"
)

// RetryPolicy bounds the retries of a native replace that fails because
// another process holds the file open.
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetryPolicy matches the typical delay of indexers and virus
// scanners that briefly open freshly closed files.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Interval: 100 * time.Millisecond}

// sleep is replaced in tests.
var sleep = time.Sleep

// run calls op until it succeeds, fails with an error retryable rejects, or
// the attempts are exhausted.
func (p RetryPolicy) run(op func() error, retryable func(error) bool) error {
	attempts := max(p.Attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt < attempts {
			sleep(p.Interval)
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}
