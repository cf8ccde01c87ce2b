package model

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) (*Registry, *Cell) {
	t.Helper()
	temp := NewCell(24.5)
	r, err := NewStandardRegistry(StandardConfig{
		Server:      DefaultServerInfo(),
		Device:      DefaultDeviceInfo(),
		Temperature: TemperatureSources{Value: temp},
		Now:         func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewStandardRegistry() error = %v", err)
	}
	return r, temp
}

func pathStrings(paths []Path) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.String()
	}
	return out
}

func TestRegistryResolve(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		in      string
		wantErr error
	}{
		{"/", nil},
		{"/3", nil},
		{"/3/0", nil},
		{"/3/0/0", nil},
		{"/3/0/6/0", nil},
		{"/1/1/8", nil},
		{"/3/1", ErrPathNotFound},
		{"/4", ErrPathNotFound},
		{"/3/0/12", ErrPathNotFound},
		{"/3/0/6/1", ErrPathNotFound},
		{"/3/0/0/0", ErrPathNotFound},
		{"3/0", ErrInvalidPath},
		{"/3/abc", ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := r.Resolve(tt.in)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Resolve(%q) error = %v", tt.in, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestRegistryValueAt(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		path string
		want any
	}{
		{"/3/0/0", "Malaria Corp."},
		{"/3/0/1", "Malaria-Client-01"},
		{"/3/0/9", 100},
		{"/3/0/13", int64(1700000000)},
		{"/3/0/6/0", 0},
		{"/3/0/7/0", 5000},
		{"/1/1/1", 60},
		{"/1/1/7", "U"},
		{"/3303/0/5700", 24.5},
		{"/3303/0/5701", "Cel"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := r.ValueAt(MustParsePath(tt.path))
			if err != nil {
				t.Fatalf("ValueAt(%s) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("ValueAt(%s) = %v (%T), want %v (%T)", tt.path, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestRegistryValueAtMultiple(t *testing.T) {
	r, _ := newTestRegistry(t)

	got, err := r.ValueAt(ResourcePath(3, 0, 7))
	if err != nil {
		t.Fatalf("ValueAt error = %v", err)
	}
	values, ok := got.([]any)
	if !ok || len(values) != 1 || values[0] != 5000 {
		t.Errorf("ValueAt(/3/0/7) = %v", got)
	}
}

func TestRegistryValueAtErrors(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		path    string
		wantErr error
	}{
		{"/1/1/8", ErrNotReadable},
		{"/3303/0/5601", ErrNoValue},
		{"/3/0/12", ErrPathNotFound},
		{"/3/0", ErrPathNotFound},
		{"/3/0/6/4", ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := r.ValueAt(MustParsePath(tt.path))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValueAt(%s) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}

	// A missing value is also a missing path.
	_, err := r.ValueAt(MustParsePath("/3303/0/5602"))
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("ErrNoValue should wrap ErrPathNotFound, got %v", err)
	}
}

func TestRegistryDefinitionAt(t *testing.T) {
	r, _ := newTestRegistry(t)

	def, err := r.DefinitionAt(MustParsePath("/3303/0/5700"))
	if err != nil {
		t.Fatalf("DefinitionAt error = %v", err)
	}
	if def.Name != "Sensor Value" || def.Type != DataTypeFloat || def.Units != "Cel" {
		t.Errorf("DefinitionAt = %+v", def)
	}

	def, err = r.DefinitionAt(MustParsePath("/3/0/6/0"))
	if err != nil || def.ID != DevicePowerSources || !def.IsMultiple() {
		t.Errorf("DefinitionAt(/3/0/6/0) = %+v, %v", def, err)
	}

	if _, err := r.DefinitionAt(MustParsePath("/3/0/99")); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("DefinitionAt unknown error = %v", err)
	}
	if _, err := r.DefinitionAt(MustParsePath("/3")); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("DefinitionAt object error = %v", err)
	}
}

func TestRegistryChildrenOf(t *testing.T) {
	r, _ := newTestRegistry(t)

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{"/1", "/3", "/3303"}},
		{"/3", []string{"/3/0"}},
		{"/1/1", []string{"/1/1/0", "/1/1/1", "/1/1/7", "/1/1/8"}},
		{"/3/0", []string{
			"/3/0/0", "/3/0/1", "/3/0/2", "/3/0/3", "/3/0/6", "/3/0/7", "/3/0/8",
			"/3/0/9", "/3/0/10", "/3/0/11", "/3/0/13", "/3/0/14", "/3/0/15", "/3/0/16",
		}},
		{"/3303/0", []string{"/3303/0/5601", "/3303/0/5602", "/3303/0/5700", "/3303/0/5701"}},
		{"/3/0/6", []string{"/3/0/6/0"}},
		{"/3/0/0", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := r.ChildrenOf(MustParsePath(tt.path))
			if err != nil {
				t.Fatalf("ChildrenOf(%s) error = %v", tt.path, err)
			}
			if s := pathStrings(got); !slices.Equal(s, tt.want) {
				t.Errorf("ChildrenOf(%s) = %v, want %v", tt.path, s, tt.want)
			}
		})
	}

	if _, err := r.ChildrenOf(MustParsePath("/9")); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("ChildrenOf unknown error = %v", err)
	}
}

func TestRegistryObjectLinks(t *testing.T) {
	r, _ := newTestRegistry(t)

	got := pathStrings(r.ObjectLinks())
	want := []string{"/1/1", "/3/0", "/3303/0"}
	if !slices.Equal(got, want) {
		t.Errorf("ObjectLinks() = %v, want %v", got, want)
	}
}

func TestRegistrySet(t *testing.T) {
	r, temp := newTestRegistry(t)
	p := MustParsePath("/3303/0/5700")

	if err := r.Set(p, 21.75); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if v := temp.Value(); v != 21.75 {
		t.Errorf("cell value = %v", v)
	}
	if v, _ := r.ValueAt(p); v != 21.75 {
		t.Errorf("ValueAt = %v", v)
	}

	if err := r.Set(p, "hot"); !errors.Is(err, ErrValueType) {
		t.Errorf("Set wrong type error = %v", err)
	}
	if err := r.Set(MustParsePath("/3/0/0"), "Other"); !errors.Is(err, ErrNotUpdatable) {
		t.Errorf("Set static error = %v", err)
	}
	if err := r.Set(MustParsePath("/3303/0"), 1.0); !errors.Is(err, ErrNotUpdatable) {
		t.Errorf("Set instance error = %v", err)
	}
	if err := r.Set(MustParsePath("/3303/0/1"), 1.0); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Set unknown error = %v", err)
	}
}

func TestRegistryConstruction(t *testing.T) {
	r := NewRegistry()
	if err := r.AddObject(TemperatureObject); err != nil {
		t.Fatalf("AddObject error = %v", err)
	}
	if err := r.AddObject(TemperatureObject); !errors.Is(err, ErrDuplicateObject) {
		t.Errorf("duplicate AddObject error = %v", err)
	}

	if err := r.AddInstance(9, 0, nil); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("AddInstance unknown object error = %v", err)
	}
	if err := r.AddInstance(ObjectTemperature, 0, map[uint16]Source{1: StaticValue(1)}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("AddInstance unknown resource error = %v", err)
	}
	if err := r.AddInstance(ObjectTemperature, 0, map[uint16]Source{TemperatureValue: StaticValue("x")}); !errors.Is(err, ErrValueType) {
		t.Errorf("AddInstance bad static error = %v", err)
	}
	if err := r.AddInstance(ObjectTemperature, 0, map[uint16]Source{TemperatureValue: StaticValue(20.0)}); err != nil {
		t.Fatalf("AddInstance error = %v", err)
	}
	if err := r.AddInstance(ObjectTemperature, 0, nil); !errors.Is(err, ErrDuplicateInstance) {
		t.Errorf("duplicate AddInstance error = %v", err)
	}

	dup := ObjectDefinition{ID: 10, Resources: []ResourceDefinition{{ID: 1}, {ID: 1}}}
	if err := r.AddObject(dup); !errors.Is(err, ErrDuplicateObject) {
		t.Errorf("duplicate resource error = %v", err)
	}
}

func TestCurrentTimeIsDynamic(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(100, 0)
	r, err := NewStandardRegistry(StandardConfig{
		Server: DefaultServerInfo(),
		Device: DefaultDeviceInfo(),
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	p := ResourcePath(ObjectDevice, 0, DeviceCurrentTime)
	if v, _ := r.ValueAt(p); v != int64(100) {
		t.Errorf("first read = %v", v)
	}
	mu.Lock()
	now = time.Unix(200, 0)
	mu.Unlock()
	if v, _ := r.ValueAt(p); v != int64(200) {
		t.Errorf("second read = %v", v)
	}
}

func TestCellConcurrentReads(t *testing.T) {
	c := NewCell([]any{1, 2, 3})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set([]any{n, n, n})
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := c.Value().([]any)
				if len(v) != 3 || v[0] != v[1] || v[1] != v[2] {
					if v[0] != 1 || v[1] != 2 || v[2] != 3 {
						t.Errorf("torn read: %v", v)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func TestCellCopiesSlices(t *testing.T) {
	b := []byte{1, 2, 3}
	c := NewCell(b)
	b[0] = 9
	if got := c.Value().([]byte); got[0] != 1 {
		t.Errorf("cell shares caller slice: %v", got)
	}
}

func TestOperations(t *testing.T) {
	tests := []struct {
		ops  Operations
		want string
	}{
		{OpRead, "R"},
		{OpReadWrite, "RW"},
		{OpExecute, "E"},
		{0, "-"},
	}
	for _, tt := range tests {
		if got := tt.ops.String(); got != tt.want {
			t.Errorf("Operations(%d).String() = %q, want %q", tt.ops, got, tt.want)
		}
	}
}
