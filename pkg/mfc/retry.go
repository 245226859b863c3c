package mfc

import "time"

// Bounded retry policy for a single bus transaction. Worst case a call
// blocks for attempts*(timeout+delay); the loop's latency budget accounts
// for that.
const (
	retryAttempts = 3
	retryDelay    = 50 * time.Millisecond
)

// Try executes op with bounded retries and a fixed inter-attempt delay. The
// last observed error is returned for diagnostics; a failure never surfaces
// any other way, so callers fold it into an alarm instead of propagating.
func Try(op func() error) error {
	var last error
	for i := 0; i < retryAttempts; i++ {
		if err := op(); err == nil {
			return nil
		} else {
			last = err
		}
		if i < retryAttempts-1 {
			time.Sleep(retryDelay)
		}
	}
	return last
}

// TryFloat is Try for operations that yield a value.
func TryFloat(op func() (float32, error)) (float32, error) {
	var (
		last error
		v    float32
	)
	for i := 0; i < retryAttempts; i++ {
		var err error
		if v, err = op(); err == nil {
			return v, nil
		} else {
			last = err
		}
		if i < retryAttempts-1 {
			time.Sleep(retryDelay)
		}
	}
	return 0, last
}
