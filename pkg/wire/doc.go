// Package wire defines the protocol vocabulary shared by the LwM2M client
// packages: CoAP methods, response codes and content formats.
//
// The values follow the CoAP registries (RFC 7252) and the OMA LwM2M
// content-format assignments, so they can be converted directly to the
// numeric types used by a CoAP library.
//
// # Response Codes
//
// A Status packs the CoAP class in the upper three bits and the detail in
// the lower five. 2.05 Content is 0x45, 4.04 Not Found is 0x84.
//
// # Content Formats
//
//   - 0     text/plain
//   - 40    application/link-format (discovery)
//   - 42    application/octet-stream
//   - 110   application/senml+json
//   - 112   application/senml+cbor
//   - 11542 application/vnd.oma.lwm2m+tlv
//
// FormatNone marks a request that carried no Accept or Content-Format option.
package wire
