package transport

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri       string
		wantPath  string
		wantQuery []string
	}{
		{"/rd?ep=dev1&lt=60&lwm2m=1.2&b=U&Q", "/rd", []string{"ep=dev1", "lt=60", "lwm2m=1.2", "b=U", "Q"}},
		{"/rd/5a3f?lt=60&b=U", "/rd/5a3f", []string{"lt=60", "b=U"}},
		{"/rd/5a3f", "/rd/5a3f", nil},
		{"/dp", "/dp", nil},
		{"/rd?", "/rd", nil},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			path, queries, err := SplitURI(tt.uri)
			if err != nil {
				t.Fatalf("SplitURI error = %v", err)
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if !slices.Equal(queries, tt.wantQuery) {
				t.Errorf("queries = %q, want %q", queries, tt.wantQuery)
			}
		})
	}
}

func TestSplitURIInvalid(t *testing.T) {
	for _, uri := range []string{"", "rd?ep=x", "/rd?ep=x&&lt=1"} {
		if _, _, err := SplitURI(uri); !errors.Is(err, ErrInvalidURI) {
			t.Errorf("SplitURI(%q) error = %v, want ErrInvalidURI", uri, err)
		}
	}
}

func TestPathSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", nil},
		{"", nil},
		{"/rd", []string{"rd"}},
		{"/rd/5a3f/", []string{"rd", "5a3f"}},
	}
	for _, tt := range tests {
		if got := PathSegments(tt.path); !slices.Equal(got, tt.want) {
			t.Errorf("PathSegments(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
	if got := JoinPath([]string{"rd", "5a3f"}); got != "/rd/5a3f" {
		t.Errorf("JoinPath = %q", got)
	}
}

func TestResponseLocation(t *testing.T) {
	r := Response{Code: wire.StatusCreated, LocationSegments: []string{"rd", "5a3f"}}
	if !r.Success() {
		t.Error("2.01 should be success")
	}
	if got := r.Location(); got != "/rd/5a3f" {
		t.Errorf("Location() = %q", got)
	}
	if got := (Response{Code: wire.StatusNotFound}).Location(); got != "" {
		t.Errorf("Location() without segments = %q", got)
	}
}

func TestEncodeUint(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, nil},
		{40, []byte{0x28}},
		{11542, []byte{0x2d, 0x16}},
		{0x010000, []byte{0x01, 0x00, 0x00}},
	}
	for _, tt := range tests {
		if got := encodeUint(tt.v); !slices.Equal(got, tt.want) {
			t.Errorf("encodeUint(%d) = % x, want % x", tt.v, got, tt.want)
		}
	}
}

func TestDispatch(t *testing.T) {
	var gotPath string
	var gotAccept wire.Format
	c := &CoAP{config: CoAPConfig{
		Handler: HandlerFunc(func(_ context.Context, path string, accept wire.Format) Reply {
			gotPath, gotAccept = path, accept
			return Reply{Code: wire.StatusContent, Format: wire.FormatTextPlain, Payload: []byte("x")}
		}),
	}}

	reply := c.dispatch(context.Background(), wire.MethodGet, "/3/0/0", wire.FormatTextPlain)
	if reply.Code != wire.StatusContent || gotPath != "/3/0/0" || gotAccept != wire.FormatTextPlain {
		t.Errorf("GET dispatch = %+v, path %q accept %v", reply, gotPath, gotAccept)
	}

	for _, m := range []wire.Method{wire.MethodPost, wire.MethodPut, wire.MethodDelete} {
		if reply := c.dispatch(context.Background(), m, "/3/0", wire.FormatNone); reply.Code != wire.StatusMethodNotAllowed {
			t.Errorf("%s dispatch code = %v, want 4.05", m, reply.Code)
		}
	}

	empty := &CoAP{}
	if reply := empty.dispatch(context.Background(), wire.MethodGet, "/3/0", wire.FormatNone); reply.Code != wire.StatusNotFound {
		t.Errorf("no handler code = %v, want 4.04", reply.Code)
	}
}
