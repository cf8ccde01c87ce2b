// Package senml builds batches of timestamped measurements for the LwM2M
// SEND operation.
//
// Each record carries a name (the resource path), exactly one value field
// and a time in seconds since the Unix epoch. Batches serialize to SenML
// JSON (content format 110) or SenML CBOR (112):
//
//	JSON  [{"n":"/3303/0/5700","v":22.5,"t":1700000000}]
//	CBOR  [{0: "/3303/0/5700", 2: 22.5, 6: 1700000000.0}]
package senml
