package content

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/model"
	"github.com/mikegpl/lwm2m-go/pkg/tlv"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

func newTestNegotiator(t *testing.T) *Negotiator {
	t.Helper()
	reg, err := model.NewStandardRegistry(model.StandardConfig{
		Server:      model.DefaultServerInfo(),
		Device:      model.DefaultDeviceInfo(),
		Temperature: model.TemperatureSources{Value: model.NewCell(24.5)},
		Now:         func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewStandardRegistry: %v", err)
	}
	return NewNegotiator(reg, nil)
}

func TestServeReadText(t *testing.T) {
	n := newTestNegotiator(t)

	tests := []struct {
		path   string
		accept wire.Format
		want   string
	}{
		{"/3/0/0", wire.FormatNone, "Malaria Corp."},
		{"/3/0/0", wire.FormatTextPlain, "Malaria Corp."},
		{"/3/0/1", wire.FormatNone, "Malaria-Client-01"},
		{"/3/0/9", wire.FormatNone, "100"},
		{"/3/0/13", wire.FormatNone, "1700000000"},
		{"/3/0/7/0", wire.FormatNone, "5000"},
		{"/1/1/1", wire.FormatTextPlain, "60"},
		{"/3303/0/5700", wire.FormatNone, "24.5"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			reply := n.ServeRead(context.Background(), tt.path, tt.accept)
			if reply.Code != wire.StatusContent {
				t.Fatalf("code = %v, want 2.05", reply.Code)
			}
			if reply.Format != wire.FormatTextPlain {
				t.Errorf("format = %v, want text/plain", reply.Format)
			}
			if string(reply.Payload) != tt.want {
				t.Errorf("payload = %q, want %q", reply.Payload, tt.want)
			}
		})
	}
}

func TestServeReadTLV(t *testing.T) {
	n := newTestNegotiator(t)

	tests := []struct {
		name   string
		path   string
		accept wire.Format
		want   []byte
	}{
		{
			name:   "server instance skips executable resource",
			path:   "/1/1",
			accept: wire.FormatNone,
			want: []byte{
				0x08, 0x01, 0x0F,
				0xC4, 0x00, 0x00, 0x00, 0x00, 0x01,
				0xC4, 0x01, 0x00, 0x00, 0x00, 0x3C,
				0xC1, 0x07, 'U',
			},
		},
		{
			name:   "multiple resource",
			path:   "/3/0/7",
			accept: wire.FormatNone,
			want:   []byte{0x86, 0x07, 0x44, 0x00, 0x00, 0x00, 0x13, 0x88},
		},
		{
			name:   "resource instance",
			path:   "/3/0/7/0",
			accept: wire.FormatTLV,
			want:   []byte{0x44, 0x00, 0x00, 0x00, 0x13, 0x88},
		},
		{
			name:   "single resource",
			path:   "/3/0/9",
			accept: wire.FormatTLV,
			want:   []byte{0xC4, 0x09, 0x00, 0x00, 0x00, 0x64},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := n.ServeRead(context.Background(), tt.path, tt.accept)
			if reply.Code != wire.StatusContent {
				t.Fatalf("code = %v, want 2.05", reply.Code)
			}
			if reply.Format != wire.FormatTLV {
				t.Errorf("format = %v, want TLV", reply.Format)
			}
			if !bytes.Equal(reply.Payload, tt.want) {
				t.Errorf("payload = % X, want % X", reply.Payload, tt.want)
			}
		})
	}
}

func TestDeviceInstanceTLV(t *testing.T) {
	n := newTestNegotiator(t)

	res, err := n.Negotiate(model.InstancePath(3, 0), wire.FormatTLV)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}

	inst, err := tlv.DecodeOne(res.Payload)
	if err != nil {
		t.Fatalf("DecodeOne: %v", err)
	}
	if inst.Kind != tlv.KindObjectInstance || inst.ID != 0 {
		t.Fatalf("top element = %v", inst)
	}

	var ids []uint16
	for _, c := range inst.Children {
		ids = append(ids, c.ID)
	}
	want := []uint16{0, 1, 2, 3, 6, 7, 8, 9, 10, 11, 13, 14, 15, 16}
	if len(ids) != len(want) {
		t.Fatalf("resource ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("resource ids = %v, want %v", ids, want)
		}
	}

	manufacturer, _ := inst.Child(0)
	if s, _ := manufacturer.AsString(); s != "Malaria Corp." {
		t.Errorf("manufacturer = %q", s)
	}
	now, _ := inst.Child(13)
	if v, _ := now.AsInteger(); v != 1700000000 {
		t.Errorf("current time = %d", v)
	}
	power, _ := inst.Child(6)
	if power.Kind != tlv.KindMultipleResource || len(power.Children) != 1 {
		t.Errorf("power sources = %v", power)
	}

	// The object read wraps the same instance.
	obj, err := n.Negotiate(model.ObjectPath(3), wire.FormatNone)
	if err != nil {
		t.Fatalf("Negotiate object: %v", err)
	}
	if !bytes.Equal(obj.Payload, res.Payload) {
		t.Errorf("object read differs from instance read")
	}
}

func TestDiscover(t *testing.T) {
	n := newTestNegotiator(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "</1>,</3>,</3303>"},
		{"/3", "</3/0>"},
		{"/3/0", "</3/0/0>,</3/0/1>,</3/0/2>,</3/0/3>,</3/0/6>,</3/0/7>,</3/0/8>,</3/0/9>,</3/0/10>,</3/0/11>,</3/0/13>,</3/0/14>,</3/0/15>,</3/0/16>"},
		{"/1/1", "</1/1/0>,</1/1/1>,</1/1/7>,</1/1/8>"},
		{"/3303/0", "</3303/0/5601>,</3303/0/5602>,</3303/0/5700>,</3303/0/5701>"},
		{"/3/0/6", "</3/0/6/0>"},
		{"/3/0/0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			reply := n.ServeRead(context.Background(), tt.path, wire.FormatLinkFormat)
			if reply.Code != wire.StatusContent || reply.Format != wire.FormatLinkFormat {
				t.Fatalf("reply = %v %v", reply.Code, reply.Format)
			}
			if string(reply.Payload) != tt.want {
				t.Errorf("payload = %q, want %q", reply.Payload, tt.want)
			}
		})
	}
}

func TestServeReadErrors(t *testing.T) {
	n := newTestNegotiator(t)

	tests := []struct {
		name   string
		path   string
		accept wire.Format
		want   wire.Status
	}{
		{"malformed path", "3/0", wire.FormatNone, wire.StatusBadRequest},
		{"non-numeric segment", "/3/x", wire.FormatNone, wire.StatusBadRequest},
		{"unknown object", "/9", wire.FormatNone, wire.StatusNotFound},
		{"unknown resource", "/3/0/12", wire.FormatNone, wire.StatusNotFound},
		{"unknown discovery", "/9", wire.FormatLinkFormat, wire.StatusNotFound},
		{"no value yet", "/3303/0/5601", wire.FormatNone, wire.StatusNotFound},
		{"executable only", "/1/1/8", wire.FormatNone, wire.StatusMethodNotAllowed},
		{"unsupported format", "/3/0/0", wire.FormatLwM2MJSON, wire.StatusNotAcceptable},
		{"senml read", "/3/0", wire.FormatSenMLCBOR, wire.StatusNotAcceptable},
		{"text on instance", "/3/0", wire.FormatTextPlain, wire.StatusNotAcceptable},
		{"text on multiple", "/3/0/7", wire.FormatTextPlain, wire.StatusNotAcceptable},
		{"octet on string", "/3/0/0", wire.FormatOctetStream, wire.StatusNotAcceptable},
		{"root read", "/", wire.FormatNone, wire.StatusNotAcceptable},
		{"root tlv", "/", wire.FormatTLV, wire.StatusNotAcceptable},
		{"16-bit resource id", "/3303/0", wire.FormatTLV, wire.StatusNotImplemented},
		{"16-bit single resource", "/3303/0/5700", wire.FormatTLV, wire.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := n.ServeRead(context.Background(), tt.path, tt.accept)
			if reply.Code != tt.want {
				t.Errorf("code = %v, want %v", reply.Code, tt.want)
			}
			if reply.Payload != nil {
				t.Errorf("error reply carries payload %q", reply.Payload)
			}
		})
	}
}

func TestOpaqueAndBoolean(t *testing.T) {
	reg := model.NewRegistry()
	def := model.ObjectDefinition{
		ID:   10,
		Name: "Test",
		Resources: []model.ResourceDefinition{
			{ID: 0, Name: "Blob", Type: model.DataTypeOpaque, Operations: model.OpRead},
			{ID: 1, Name: "Flag", Type: model.DataTypeBoolean, Operations: model.OpRead},
		},
	}
	if err := reg.AddObject(def); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddInstance(10, 0, map[uint16]model.Source{
		0: model.StaticValue([]byte{0xDE, 0xAD}),
		1: model.StaticValue(true),
	}); err != nil {
		t.Fatal(err)
	}
	n := NewNegotiator(reg, nil)

	res, err := n.Negotiate(model.ResourcePath(10, 0, 0), wire.FormatOctetStream)
	if err != nil || res.Format != wire.FormatOctetStream || !bytes.Equal(res.Payload, []byte{0xDE, 0xAD}) {
		t.Errorf("octet read = %+v, %v", res, err)
	}

	if _, err := n.Negotiate(model.ResourcePath(10, 0, 0), wire.FormatNone); !errors.Is(err, ErrNotAcceptable) {
		t.Errorf("text read of opaque error = %v", err)
	}

	res, err = n.Negotiate(model.ResourcePath(10, 0, 1), wire.FormatNone)
	if err != nil || string(res.Payload) != "1" {
		t.Errorf("bool text read = %q, %v", res.Payload, err)
	}

	res, err = n.Negotiate(model.InstancePath(10, 0), wire.FormatTLV)
	if err != nil {
		t.Fatalf("TLV read: %v", err)
	}
	want := []byte{0x07, 0x00, 0xC2, 0x00, 0xDE, 0xAD, 0xC1, 0x01, 0x01}
	if !bytes.Equal(res.Payload, want) {
		t.Errorf("TLV = % X, want % X", res.Payload, want)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want wire.Status
	}{
		{nil, wire.StatusContent},
		{model.ErrInvalidPath, wire.StatusBadRequest},
		{model.ErrPathNotFound, wire.StatusNotFound},
		{model.ErrNoValue, wire.StatusNotFound},
		{model.ErrNotReadable, wire.StatusMethodNotAllowed},
		{ErrNotAcceptable, wire.StatusNotAcceptable},
		{tlv.ErrMalformedTLV, wire.StatusBadRequest},
		{tlv.ErrValueTooLarge, wire.StatusRequestEntityTooLarge},
		{tlv.ErrIdentifierWidth, wire.StatusNotImplemented},
		{errors.New("boom"), wire.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestFormatText(t *testing.T) {
	tests := []struct {
		typ  model.DataType
		v    any
		want string
	}{
		{model.DataTypeString, "abc", "abc"},
		{model.DataTypeInteger, -5, "-5"},
		{model.DataTypeInteger, int64(1 << 40), "1099511627776"},
		{model.DataTypeFloat, 24.5, "24.5"},
		{model.DataTypeFloat, 21.3, "21.3"},
		{model.DataTypeFloat, 20, "20"},
		{model.DataTypeBoolean, false, "0"},
	}
	for _, tt := range tests {
		got, err := FormatText(tt.typ, tt.v)
		if err != nil {
			t.Errorf("FormatText(%v, %v) error = %v", tt.typ, tt.v, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatText(%v, %v) = %q, want %q", tt.typ, tt.v, got, tt.want)
		}
	}

	if _, err := FormatText(model.DataTypeInteger, "x"); !errors.Is(err, model.ErrValueType) {
		t.Errorf("FormatText type mismatch error = %v", err)
	}
}
