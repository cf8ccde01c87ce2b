// Package registration keeps an LwM2M client registered with its server.
//
// # Lifecycle
//
//	            Register ok
//	Unregistered ─────────► Registering ──► Registered ◄──┐
//	     ▲                      │               │   │      │ ok / retry
//	     │        fail          │               │   ▼      │
//	     ├──────────────────────┘               │  Updating┘
//	     │                                      │   │
//	     │        budget exhausted              │   │
//	     ├──────────────────────────────────────┼───┘
//	     │                                      ▼
//	     └──────────────────────────────── Deregistering
//
// A successful REGISTER yields a Handle (the server-assigned location).
// While the handle is held, UPDATE runs every max(MinUpdateInterval,
// lifetime/2). A failed UPDATE keeps the handle and retries after
// RetryInterval; once consecutive failures exceed UpdateRetries the handle
// is discarded and the Manager reports it lost. DEREGISTER always drops the
// handle, whatever the server answers.
//
// At most one exchange is in flight at a time, and every exchange is
// bounded by RequestTimeout.
package registration
