package wire

import "fmt"

// Status represents a CoAP response code (class.detail packed in one byte).
type Status uint8

// NewStatus packs a class and detail into a Status.
func NewStatus(class, detail uint8) Status {
	return Status(class<<5 | detail&0x1f)
}

const (
	// StatusEmpty is the code of an empty message.
	StatusEmpty Status = 0x00

	// StatusCreated is returned by the server on a successful REGISTER.
	StatusCreated Status = 0x41

	// StatusDeleted is returned on a successful DEREGISTER.
	StatusDeleted Status = 0x42

	// StatusValid indicates a cached response is still valid.
	StatusValid Status = 0x43

	// StatusChanged is returned on a successful UPDATE or SEND.
	StatusChanged Status = 0x44

	// StatusContent carries a read or discovery payload.
	StatusContent Status = 0x45

	// StatusBadRequest indicates a malformed request (bad path, bad TLV).
	StatusBadRequest Status = 0x80

	// StatusUnauthorized indicates missing credentials.
	StatusUnauthorized Status = 0x81

	// StatusBadOption indicates an unrecognized critical option.
	StatusBadOption Status = 0x82

	// StatusForbidden indicates the request is not allowed.
	StatusForbidden Status = 0x83

	// StatusNotFound indicates the path does not exist or has no value.
	StatusNotFound Status = 0x84

	// StatusMethodNotAllowed indicates the operation is not permitted on the target.
	StatusMethodNotAllowed Status = 0x85

	// StatusNotAcceptable indicates the requested format cannot be produced.
	StatusNotAcceptable Status = 0x86

	// StatusRequestEntityTooLarge indicates the payload exceeds what can be encoded.
	StatusRequestEntityTooLarge Status = 0x8d

	// StatusUnsupportedFormat indicates the request content format is unsupported.
	StatusUnsupportedFormat Status = 0x8f

	// StatusInternalServerError indicates an unexpected failure.
	StatusInternalServerError Status = 0xa0

	// StatusNotImplemented indicates a feature that is explicitly unsupported.
	StatusNotImplemented Status = 0xa1

	// StatusServiceUnavailable indicates the endpoint cannot serve right now.
	StatusServiceUnavailable Status = 0xa3

	// StatusGatewayTimeout indicates an upstream timeout.
	StatusGatewayTimeout Status = 0xa4
)

// Class returns the code class (2 for success, 4 client error, 5 server error).
func (s Status) Class() uint8 { return uint8(s) >> 5 }

// Detail returns the code detail.
func (s Status) Detail() uint8 { return uint8(s) & 0x1f }

// IsSuccess returns true for 2.xx codes.
func (s Status) IsSuccess() bool { return s.Class() == 2 }

// IsError returns true for 4.xx and 5.xx codes.
func (s Status) IsError() bool { return s.Class() >= 4 }

// String returns the dotted code and its name, e.g. "2.05 Content".
func (s Status) String() string {
	name := statusNames[s]
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%d.%02d %s", s.Class(), s.Detail(), name)
}

var statusNames = map[Status]string{
	StatusEmpty:                 "Empty",
	StatusCreated:               "Created",
	StatusDeleted:               "Deleted",
	StatusValid:                 "Valid",
	StatusChanged:               "Changed",
	StatusContent:               "Content",
	StatusBadRequest:            "Bad Request",
	StatusUnauthorized:          "Unauthorized",
	StatusBadOption:             "Bad Option",
	StatusForbidden:             "Forbidden",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusNotAcceptable:         "Not Acceptable",
	StatusRequestEntityTooLarge: "Request Entity Too Large",
	StatusUnsupportedFormat:     "Unsupported Content-Format",
	StatusInternalServerError:   "Internal Server Error",
	StatusNotImplemented:        "Not Implemented",
	StatusServiceUnavailable:    "Service Unavailable",
	StatusGatewayTimeout:        "Gateway Timeout",
}
