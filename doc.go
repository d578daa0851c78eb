// Package limiterd is the engine of a multi-tenant API rate limiter
// service: four interchangeable decision algorithms, a per-tenant instance
// registry, a decision gateway, in-memory analytics, and an in-process load
// driver.
//
// # Algorithms
//
//   - Token Bucket — steady refill, burst-friendly
//   - Leaky Bucket — queue of admissions drained at a constant rate
//   - Fixed Window — counter reset at fixed intervals
//   - Sliding Window — weighted-counter approximation, O(1) memory
//
// # Quick Start
//
//	st := memory.New()
//	reg := limiterd.NewRegistry(st)
//	an := limiterd.NewAnalytics(256)
//	gw := limiterd.NewGateway(st, reg, an)
//
//	dec, err := gw.Decide(ctx, apiKey, "/api/protected/test")
//	if dec.Allowed {
//	    // serve request
//	}
//
// Every decision is O(1), race-free per tenant (each live instance carries
// its own mutex), recorded synchronously in analytics, and appended to the
// persistent log asynchronously through a bounded, drop-oldest writer.
//
// Time is injected via the Clock interface so tests drive it
// deterministically with a VirtualClock.
package limiterd
