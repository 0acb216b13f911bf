// Package ratelimiter provides token bucket rate limiting over a pluggable store.
//
// A bucket holds up to Capacity tokens and gains RefillRate tokens every
// RefillInterval. Each request consumes tokens; a request that finds too few
// is denied without consuming any.
//
// # Usage
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       60,
//		RefillRate:     60,
//		RefillInterval: time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := limiter.Allow(ctx, "ip:203.0.113.7")
//	if err != nil {
//		return err
//	}
//	if !result.Allowed() {
//		// retry after result.RetryAfter()
//	}
//
// # Cleanup
//
// MemoryStore keeps one bucket per key. Run removes buckets idle for longer
// than the stale threshold and is errgroup compatible:
//
//	g.Go(store.Run(ctx))
package ratelimiter
