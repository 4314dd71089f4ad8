package client

import "time"

// startPoller runs fn every interval until the returned stop function is
// called. Views use it as the fallback for a hung or silently-dropped
// subscription.
func startPoller(interval time.Duration, fn func()) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
