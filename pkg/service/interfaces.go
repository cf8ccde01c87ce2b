package service

import (
	"github.com/mikegpl/lwm2m-go/pkg/transport"
)

// Transport is the CoAP session used by the service. It is satisfied by
// *transport.CoAP.
type Transport interface {
	transport.Client
	Done() <-chan struct{}
	Close() error
}

// Compile-time check: *transport.CoAP implements Transport.
var _ Transport = (*transport.CoAP)(nil)

// Dialer opens the CoAP session. The configured Handler must serve inbound
// reads for the lifetime of the session.
type Dialer func(cfg transport.CoAPConfig) (Transport, error)

// DialCoAP is the default Dialer.
func DialCoAP(cfg transport.CoAPConfig) (Transport, error) {
	c, err := transport.DialCoAP(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
