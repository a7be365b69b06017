// Package backoff provides retry delay strategies for channel delivery
// attempts.
//
// The default policy is linear growth (5, 10, 15 minutes for attempts
// 1, 2, 3), matching the delivery engine's retry schedule. Fixed and
// exponential strategies are available for callers with different
// requirements.
//
// Usage:
//
//	strategy := backoff.Default()
//	nextRetryAt := time.Now().Add(strategy.NextInterval(channel.RetryCount))
package backoff
