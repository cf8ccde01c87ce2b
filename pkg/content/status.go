package content

import (
	"errors"

	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/tlv"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// StatusFor maps a read error onto a CoAP response code. A nil error is
// 2.05 Content.
func StatusFor(err error) wire.Status {
	switch {
	case err == nil:
		return wire.StatusContent
	case errors.Is(err, model.ErrInvalidPath):
		return wire.StatusBadRequest
	case errors.Is(err, model.ErrNotReadable):
		return wire.StatusMethodNotAllowed
	case errors.Is(err, model.ErrPathNotFound):
		return wire.StatusNotFound
	case errors.Is(err, ErrNotAcceptable):
		return wire.StatusNotAcceptable
	case errors.Is(err, tlv.ErrIdentifierWidth):
		return wire.StatusNotImplemented
	case errors.Is(err, tlv.ErrValueTooLarge):
		return wire.StatusRequestEntityTooLarge
	case errors.Is(err, tlv.ErrMalformedTLV):
		return wire.StatusBadRequest
	default:
		return wire.StatusInternalServerError
	}
}
