package wire

import "strconv"

// Format identifies a CoAP content format.
type Format int

const (
	// FormatNone means no format option was present.
	FormatNone Format = -1

	// FormatTextPlain is text/plain;charset=utf-8.
	FormatTextPlain Format = 0

	// FormatLinkFormat is application/link-format, used for discovery.
	FormatLinkFormat Format = 40

	// FormatOctetStream is application/octet-stream.
	FormatOctetStream Format = 42

	// FormatSenMLJSON is application/senml+json.
	FormatSenMLJSON Format = 110

	// FormatSenMLCBOR is application/senml+cbor.
	FormatSenMLCBOR Format = 112

	// FormatTLV is application/vnd.oma.lwm2m+tlv.
	FormatTLV Format = 11542

	// FormatLwM2MJSON is application/vnd.oma.lwm2m+json (not produced).
	FormatLwM2MJSON Format = 11543
)

// IsSet returns true unless the format is FormatNone.
func (f Format) IsSet() bool { return f != FormatNone }

// String returns the media type name.
func (f Format) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatTextPlain:
		return "text/plain"
	case FormatLinkFormat:
		return "application/link-format"
	case FormatOctetStream:
		return "application/octet-stream"
	case FormatSenMLJSON:
		return "application/senml+json"
	case FormatSenMLCBOR:
		return "application/senml+cbor"
	case FormatTLV:
		return "application/vnd.oma.lwm2m+tlv"
	case FormatLwM2MJSON:
		return "application/vnd.oma.lwm2m+json"
	default:
		return "format(" + strconv.Itoa(int(f)) + ")"
	}
}

// ParseFormat accepts a numeric content format or one of the short names
// used by the console and config: text, link, opaque, tlv, senml-json,
// senml-cbor.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "none":
		return FormatNone, true
	case "text", "plain":
		return FormatTextPlain, true
	case "link", "discover":
		return FormatLinkFormat, true
	case "opaque", "octet":
		return FormatOctetStream, true
	case "tlv":
		return FormatTLV, true
	case "senml-json":
		return FormatSenMLJSON, true
	case "senml-cbor":
		return FormatSenMLCBOR, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 0xffff {
		return FormatNone, false
	}
	return Format(n), true
}

// Method is a CoAP request method.
type Method uint8

const (
	MethodGet    Method = 1
	MethodPost   Method = 2
	MethodPut    Method = 3
	MethodDelete Method = 4
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}
