package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/tlv"
	"github.com/mikegpl/lwm2m-go/pkg/transport"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// ErrNotAcceptable is returned when no representation satisfies Accept.
var ErrNotAcceptable = errors.New("requested format not acceptable")

// Result is a negotiated representation.
type Result struct {
	Format  wire.Format
	Payload []byte

	// Links holds the listed paths of a discovery.
	Links []model.Path
}

// Negotiator serves reads and discovery from a Registry.
type Negotiator struct {
	registry *model.Registry
	logger   *slog.Logger
}

// NewNegotiator creates a Negotiator. A nil logger discards output.
func NewNegotiator(registry *model.Registry, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Negotiator{registry: registry, logger: logger}
}

// Negotiate produces the representation of p for accept, which is
// wire.FormatNone when the request named no format.
func (n *Negotiator) Negotiate(p model.Path, accept wire.Format) (Result, error) {
	if !n.registry.Exists(p) {
		return Result{}, fmt.Errorf("%w: %s", model.ErrPathNotFound, p)
	}

	if accept == wire.FormatLinkFormat {
		return n.discover(p)
	}

	if p.Level == model.LevelRoot {
		return Result{}, fmt.Errorf("%w: read of the root", ErrNotAcceptable)
	}

	leaf, def, err := n.leafDefinition(p)
	if err != nil {
		return Result{}, err
	}

	switch accept {
	case wire.FormatNone:
		if leaf {
			return n.readText(p)
		}
		return n.readTLV(p)
	case wire.FormatTLV:
		return n.readTLV(p)
	case wire.FormatTextPlain:
		if !leaf {
			return Result{}, fmt.Errorf("%w: text/plain for %s", ErrNotAcceptable, p)
		}
		return n.readText(p)
	case wire.FormatOctetStream:
		if !leaf || def.Type != model.DataTypeOpaque {
			return Result{}, fmt.Errorf("%w: octet-stream for %s", ErrNotAcceptable, p)
		}
		return n.readOpaque(p)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrNotAcceptable, accept)
	}
}

// leafDefinition reports whether p holds a single value: a single resource
// or a resource instance.
func (n *Negotiator) leafDefinition(p model.Path) (bool, *model.ResourceDefinition, error) {
	if p.Level < model.LevelResource {
		return false, nil, nil
	}
	def, err := n.registry.DefinitionAt(p)
	if err != nil {
		return false, nil, err
	}
	leaf := p.Level == model.LevelResourceInstance || !def.IsMultiple()
	return leaf, def, nil
}

func (n *Negotiator) discover(p model.Path) (Result, error) {
	links, err := n.registry.ChildrenOf(p)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Format:  wire.FormatLinkFormat,
		Payload: []byte(LinkFormat(links)),
		Links:   links,
	}, nil
}

func (n *Negotiator) readText(p model.Path) (Result, error) {
	def, err := n.registry.DefinitionAt(p)
	if err != nil {
		return Result{}, err
	}
	v, err := n.registry.ValueAt(p)
	if err != nil {
		return Result{}, err
	}
	s, err := FormatText(def.Type, v)
	if err != nil {
		return Result{}, err
	}
	return Result{Format: wire.FormatTextPlain, Payload: []byte(s)}, nil
}

func (n *Negotiator) readOpaque(p model.Path) (Result, error) {
	v, err := n.registry.ValueAt(p)
	if err != nil {
		return Result{}, err
	}
	b, ok := v.([]byte)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s holds %T", ErrNotAcceptable, p, v)
	}
	return Result{Format: wire.FormatOctetStream, Payload: tlv.Opaque(b)}, nil
}

func (n *Negotiator) readTLV(p model.Path) (Result, error) {
	var elems []tlv.Element
	var err error

	switch p.Level {
	case model.LevelObject:
		elems, err = n.objectElements(p)
	case model.LevelInstance:
		var e tlv.Element
		e, err = n.instanceElement(p)
		elems = []tlv.Element{e}
	case model.LevelResource:
		var e tlv.Element
		e, err = n.resourceElement(p)
		elems = []tlv.Element{e}
	case model.LevelResourceInstance:
		var e tlv.Element
		e, err = n.resourceInstanceElement(p)
		elems = []tlv.Element{e}
	}
	if err != nil {
		return Result{}, err
	}

	payload, err := tlv.Encode(elems...)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", p, err)
	}
	return Result{Format: wire.FormatTLV, Payload: payload}, nil
}

func (n *Negotiator) objectElements(p model.Path) ([]tlv.Element, error) {
	instances, err := n.registry.ChildrenOf(p)
	if err != nil {
		return nil, err
	}
	elems := make([]tlv.Element, 0, len(instances))
	for _, ip := range instances {
		e, err := n.instanceElement(ip)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return elems, nil
}

// instanceElement aggregates every readable resource that has a value.
func (n *Negotiator) instanceElement(p model.Path) (tlv.Element, error) {
	resources, err := n.registry.ChildrenOf(p)
	if err != nil {
		return tlv.Element{}, err
	}

	children := make([]tlv.Element, 0, len(resources))
	for _, rp := range resources {
		e, err := n.resourceElement(rp)
		switch {
		case errors.Is(err, model.ErrNotReadable), errors.Is(err, model.ErrNoValue):
			continue
		case err != nil:
			return tlv.Element{}, err
		}
		children = append(children, e)
	}
	return tlv.ObjectInstance(p.InstanceID, children...), nil
}

func (n *Negotiator) resourceElement(p model.Path) (tlv.Element, error) {
	def, err := n.registry.DefinitionAt(p)
	if err != nil {
		return tlv.Element{}, err
	}
	v, err := n.registry.ValueAt(p)
	if err != nil {
		return tlv.Element{}, err
	}

	if !def.IsMultiple() {
		b, err := EncodeTLVValue(def.Type, v)
		if err != nil {
			return tlv.Element{}, fmt.Errorf("%s: %w", p, err)
		}
		return tlv.Resource(p.ResourceID, b), nil
	}

	values, _ := v.([]any)
	instances := make([]tlv.Element, len(values))
	for i, item := range values {
		b, err := EncodeTLVValue(def.Type, item)
		if err != nil {
			return tlv.Element{}, fmt.Errorf("%s/%d: %w", p, i, err)
		}
		instances[i] = tlv.ResourceInstance(uint16(i), b)
	}
	return tlv.MultipleResource(p.ResourceID, instances...), nil
}

func (n *Negotiator) resourceInstanceElement(p model.Path) (tlv.Element, error) {
	def, err := n.registry.DefinitionAt(p)
	if err != nil {
		return tlv.Element{}, err
	}
	v, err := n.registry.ValueAt(p)
	if err != nil {
		return tlv.Element{}, err
	}
	b, err := EncodeTLVValue(def.Type, v)
	if err != nil {
		return tlv.Element{}, fmt.Errorf("%s: %w", p, err)
	}
	return tlv.ResourceInstance(p.ResourceInstanceID, b), nil
}

// ServeRead answers an inbound GET. Errors become CoAP error codes.
func (n *Negotiator) ServeRead(_ context.Context, path string, accept wire.Format) transport.Reply {
	p, err := model.ParsePath(path)
	if err == nil {
		var res Result
		res, err = n.Negotiate(p, accept)
		if err == nil {
			n.logger.Debug("read", "path", path, "accept", accept.String(), "format", res.Format.String(), "size", len(res.Payload))
			return transport.Reply{Code: wire.StatusContent, Format: res.Format, Payload: res.Payload}
		}
	}

	code := StatusFor(err)
	n.logger.Debug("read refused", "path", path, "accept", accept.String(), "code", code.String(), "error", err)
	return transport.Reply{Code: code, Format: wire.FormatNone}
}

// Compile-time interface satisfaction check.
var _ transport.Handler = (*Negotiator)(nil)
