// Package connection keeps an LwM2M client registered across failures.
//
// A Supervisor owns a Registrar (normally a registration.Manager). It makes
// the first REGISTER attempt as soon as it starts and again whenever the
// registrar reports its handle lost. Failed attempts are retried with
// exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Doubling: 2s, 4s, 8s, 16s, 32s
//  3. Capped at 60 seconds until an attempt succeeds
//  4. Back to 1s after a success
//
// Each delay gets up to 25% random jitter:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// A registrar that has been closed stops the supervisor.
package connection
