package transport

import (
	"context"
	"errors"

	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// Transport errors.
var (
	ErrClosed            = errors.New("transport closed")
	ErrUnsupportedMethod = errors.New("unsupported request method")
	ErrInvalidURI        = errors.New("invalid request URI")
)

// Request is a client-initiated CoAP request.
type Request struct {
	Method wire.Method

	// URI is the path with an optional query, e.g. "/rd?ep=dev1&lt=60".
	URI string

	Payload       []byte
	ContentFormat wire.Format
	Accept        wire.Format
}

// Response is the server's reply to a Request.
type Response struct {
	Code wire.Status

	// LocationSegments holds the Location-Path options in order.
	LocationSegments []string

	ContentFormat wire.Format
	Payload       []byte
}

// Success returns true for 2.xx responses.
func (r Response) Success() bool { return r.Code.IsSuccess() }

// Location returns the Location-Path joined as "/rd/5a3f", or "" when the
// response carried none.
func (r Response) Location() string {
	if len(r.LocationSegments) == 0 {
		return ""
	}
	return JoinPath(r.LocationSegments)
}

// Client sends requests to the management server.
// Implemented by CoAP.
type Client interface {
	// Do sends req and waits for the response or ctx expiry.
	Do(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

// Do calls f.
func (f ClientFunc) Do(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Reply answers a server-initiated read.
type Reply struct {
	Code    wire.Status
	Format  wire.Format
	Payload []byte
}

// Handler serves server-initiated GET requests.
type Handler interface {
	// ServeRead answers a read or discover of path. accept is FormatNone
	// when the request carried no Accept option.
	ServeRead(ctx context.Context, path string, accept wire.Format) Reply
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, path string, accept wire.Format) Reply

// ServeRead calls f.
func (f HandlerFunc) ServeRead(ctx context.Context, path string, accept wire.Format) Reply {
	return f(ctx, path, accept)
}

// Compile-time interface satisfaction checks.
var (
	_ Client  = ClientFunc(nil)
	_ Handler = HandlerFunc(nil)
	_ Client  = (*CoAP)(nil)
)
