// Package transport carries LwM2M messages to and from the management
// server.
//
// The transport layer handles:
//   - Client-initiated exchanges (register, update, deregister, send)
//   - Server-initiated reads and discovery on the same socket
//   - Query and path splitting into CoAP options
//   - Protocol trace events for every exchange
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│  TLV / SenML / link-format     │
//	├────────────────────────────────┤
//	│   CoAP (confirmable, RFC 7252) │
//	├────────────────────────────────┤
//	│           UDP                  │
//	└────────────────────────────────┘
//
// Retransmission, deduplication and message ids are handled by
// github.com/plgd-dev/go-coap. Callers only see Request and Response.
package transport
