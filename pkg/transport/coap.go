package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
	"github.com/plgd-dev/go-coap/v2/message"
	"github.com/plgd-dev/go-coap/v2/message/codes"
	"github.com/plgd-dev/go-coap/v2/mux"
	"github.com/plgd-dev/go-coap/v2/udp"
	"github.com/plgd-dev/go-coap/v2/udp/client"
	"github.com/plgd-dev/go-coap/v2/udp/message/pool"
)

// CoAPConfig configures a CoAP transport.
type CoAPConfig struct {
	// Address is the management server address (host:port).
	Address string

	// Handler serves inbound reads. Nil answers every read with 4.04.
	Handler Handler

	// Endpoint is the client endpoint name recorded in trace events.
	Endpoint string

	// Logger for operational messages. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives an event per exchange. Nil disables tracing.
	ProtocolLogger log.Logger
}

// CoAP is a UDP CoAP client that also answers server-initiated GETs on the
// same socket.
type CoAP struct {
	config CoAPConfig
	conn   *client.ClientConn
	logger *slog.Logger
	plog   log.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// DialCoAP opens a CoAP session to config.Address.
func DialCoAP(config CoAPConfig) (*CoAP, error) {
	c := &CoAP{
		config: config,
		logger: config.Logger,
		plog:   log.OrNoop(config.ProtocolLogger),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	router := mux.NewRouter()
	router.DefaultHandle(mux.HandlerFunc(c.serve))

	conn, err := udp.Dial(config.Address,
		udp.WithMux(router),
		udp.WithErrors(func(err error) {
			c.logger.Debug("coap error", "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", config.Address, err)
	}
	c.conn = conn

	c.logState("", "CONNECTED", config.Address)
	c.logger.Info("coap session opened", "server", config.Address)
	return c, nil
}

// Do sends req and waits for the response.
func (c *CoAP) Do(ctx context.Context, req Request) (Response, error) {
	if c.closed.Load() {
		return Response{}, ErrClosed
	}

	path, queries, err := SplitURI(req.URI)
	if err != nil {
		return Response{}, err
	}

	opts := make([]message.Option, 0, len(queries)+1)
	for _, q := range queries {
		opts = append(opts, message.Option{ID: message.URIQuery, Value: []byte(q)})
	}
	if req.Accept.IsSet() {
		opts = append(opts, message.Option{ID: message.Accept, Value: encodeUint(uint32(req.Accept))})
	}

	ev := &log.ExchangeEvent{
		Method:        req.Method,
		URI:           req.URI,
		ContentFormat: req.ContentFormat,
		Accept:        req.Accept,
	}
	ev.CapturePayload(req.Payload)
	start := time.Now()

	var resp *pool.Message
	switch req.Method {
	case wire.MethodGet:
		resp, err = c.conn.Get(ctx, path, opts...)
	case wire.MethodPost:
		var body io.ReadSeeker
		if len(req.Payload) > 0 {
			body = bytes.NewReader(req.Payload)
		}
		resp, err = c.conn.Post(ctx, path, message.MediaType(req.ContentFormat), body, opts...)
	case wire.MethodDelete:
		resp, err = c.conn.Delete(ctx, path, opts...)
	default:
		return Response{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}
	ev.Duration = time.Since(start)

	if err != nil {
		c.logExchange(log.DirectionOut, ev)
		c.logError(err, req.Method.String()+" "+req.URI)
		return Response{}, fmt.Errorf("%s %s: %w", req.Method, req.URI, err)
	}

	out, err := decodeResponse(resp)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: read response: %w", req.Method, req.URI, err)
	}

	code := out.Code
	ev.Code = &code
	c.logExchange(log.DirectionOut, ev)
	return out, nil
}

func decodeResponse(resp *pool.Message) (Response, error) {
	out := Response{
		Code:          wire.Status(resp.Code()),
		ContentFormat: wire.FormatNone,
	}
	for _, opt := range resp.Options() {
		if opt.ID == message.LocationPath {
			out.LocationSegments = append(out.LocationSegments, string(opt.Value))
		}
	}
	if cf, err := resp.ContentFormat(); err == nil {
		out.ContentFormat = wire.Format(cf)
	}
	body, err := resp.ReadBody()
	if err != nil {
		return Response{}, err
	}
	out.Payload = body
	return out, nil
}

// serve answers inbound requests through the configured Handler.
func (c *CoAP) serve(w mux.ResponseWriter, r *mux.Message) {
	start := time.Now()
	path := "/"
	if p, err := r.Options.Path(); err == nil {
		path = "/" + strings.Trim(p, "/")
	}
	accept := wire.FormatNone
	if v, err := r.Options.GetUint32(message.Accept); err == nil {
		accept = wire.Format(v)
	}

	ev := &log.ExchangeEvent{
		Method: wire.Method(r.Code),
		URI:    path,
		Accept: accept,
	}

	ctx := r.Context
	if ctx == nil {
		ctx = context.Background()
	}
	reply := c.dispatch(ctx, wire.Method(r.Code), path, accept)

	var body io.ReadSeeker
	if reply.Payload != nil {
		body = bytes.NewReader(reply.Payload)
	}
	if err := w.SetResponse(codes.Code(reply.Code), message.MediaType(reply.Format), body); err != nil {
		c.logger.Warn("cannot set response", "path", path, "error", err)
	}

	code := reply.Code
	ev.Code = &code
	ev.ContentFormat = reply.Format
	ev.CapturePayload(reply.Payload)
	ev.Duration = time.Since(start)
	c.logExchange(log.DirectionIn, ev)

	c.logger.Debug("served read", "path", path, "accept", accept.String(), "code", reply.Code.String())
}

// dispatch routes an inbound request to the Handler. Only GET is served.
func (c *CoAP) dispatch(ctx context.Context, method wire.Method, path string, accept wire.Format) Reply {
	switch {
	case method != wire.MethodGet:
		return Reply{Code: wire.StatusMethodNotAllowed}
	case c.config.Handler == nil:
		return Reply{Code: wire.StatusNotFound}
	default:
		return c.config.Handler.ServeRead(ctx, path, accept)
	}
}

// Done is closed when the session ends.
func (c *CoAP) Done() <-chan struct{} {
	return c.conn.Done()
}

// Close ends the session. It is safe to call Close multiple times.
func (c *CoAP) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		err = c.conn.Close()
		c.logState("CONNECTED", "CLOSED", "")
		c.logger.Info("coap session closed", "server", c.config.Address)
	})
	return err
}

func (c *CoAP) logExchange(dir log.Direction, ev *log.ExchangeEvent) {
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		Endpoint:   c.config.Endpoint,
		Direction:  dir,
		Layer:      log.LayerTransport,
		Category:   log.CategoryExchange,
		RemoteAddr: c.config.Address,
		Exchange:   ev,
	})
}

func (c *CoAP) logState(prev, next, reason string) {
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		Endpoint:   c.config.Endpoint,
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		RemoteAddr: c.config.Address,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: prev,
			NewState: next,
			Reason:   reason,
		},
	})
}

func (c *CoAP) logError(err error, op string) {
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		Endpoint:   c.config.Endpoint,
		Layer:      log.LayerTransport,
		Category:   log.CategoryError,
		RemoteAddr: c.config.Address,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: op,
		},
	})
}

// encodeUint encodes v as a minimal big-endian CoAP uint option value.
func encodeUint(v uint32) []byte {
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v)}, b...)
		v >>= 8
	}
	return b
}
