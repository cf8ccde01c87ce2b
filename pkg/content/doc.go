// Package content answers server reads and discovery against the registry.
//
// The Negotiator picks a representation from the request's Accept option
// and the addressed node:
//
//	Accept          Leaf resource     Instance / object / multiple
//	─────────────   ───────────────   ────────────────────────────
//	(none)          text/plain        TLV
//	text/plain      text/plain        4.06
//	TLV             TLV               TLV
//	link-format     discovery         discovery
//	octet-stream    raw (opaque)      4.06
//
// Reads at the root are refused; discovery at the root lists objects.
// StatusFor maps every error these operations return onto a CoAP code.
package content
