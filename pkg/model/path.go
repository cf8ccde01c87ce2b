package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path errors.
var (
	ErrInvalidPath  = errors.New("invalid path")
	ErrPathNotFound = errors.New("path not found")
)

// MaxID is the largest usable identifier; 65535 is reserved by LwM2M.
const MaxID = 65534

// Level is the addressing depth of a Path.
type Level uint8

const (
	LevelRoot Level = iota
	LevelObject
	LevelInstance
	LevelResource
	LevelResourceInstance
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelRoot:
		return "root"
	case LevelObject:
		return "object"
	case LevelInstance:
		return "instance"
	case LevelResource:
		return "resource"
	case LevelResourceInstance:
		return "resource-instance"
	default:
		return "unknown"
	}
}

// Path addresses a node in the object model. Fields deeper than Level are
// zero and ignored.
type Path struct {
	ObjectID           uint16
	InstanceID         uint16
	ResourceID         uint16
	ResourceInstanceID uint16
	Level              Level
}

// RootPath returns "/".
func RootPath() Path { return Path{} }

// ObjectPath returns "/<o>".
func ObjectPath(o uint16) Path {
	return Path{ObjectID: o, Level: LevelObject}
}

// InstancePath returns "/<o>/<i>".
func InstancePath(o, i uint16) Path {
	return Path{ObjectID: o, InstanceID: i, Level: LevelInstance}
}

// ResourcePath returns "/<o>/<i>/<r>".
func ResourcePath(o, i, r uint16) Path {
	return Path{ObjectID: o, InstanceID: i, ResourceID: r, Level: LevelResource}
}

// ResourceInstancePath returns "/<o>/<i>/<r>/<ri>".
func ResourceInstancePath(o, i, r, ri uint16) Path {
	return Path{ObjectID: o, InstanceID: i, ResourceID: r, ResourceInstanceID: ri, Level: LevelResourceInstance}
}

// ParsePath parses a slash-delimited path such as "/3/0/13".
func ParsePath(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPath, s)
	}
	if s == "/" {
		return RootPath(), nil
	}

	segments := strings.Split(s[1:], "/")
	if len(segments) > int(LevelResourceInstance) {
		return Path{}, fmt.Errorf("%w: %q has %d levels", ErrInvalidPath, s, len(segments))
	}

	var ids [4]uint16
	for i, seg := range segments {
		if seg == "" {
			return Path{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, s)
		}
		n, err := strconv.ParseUint(seg, 10, 32)
		if err != nil || seg[0] == '+' {
			return Path{}, fmt.Errorf("%w: segment %q of %q is not a number", ErrInvalidPath, seg, s)
		}
		if n > MaxID {
			return Path{}, fmt.Errorf("%w: identifier %d exceeds %d", ErrInvalidPath, n, MaxID)
		}
		ids[i] = uint16(n)
	}

	return Path{
		ObjectID:           ids[0],
		InstanceID:         ids[1],
		ResourceID:         ids[2],
		ResourceInstanceID: ids[3],
		Level:              Level(len(segments)),
	}, nil
}

// MustParsePath is like ParsePath but panics on error. Use for constants.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IDs returns the identifiers present at this path, outermost first.
func (p Path) IDs() []uint16 {
	all := []uint16{p.ObjectID, p.InstanceID, p.ResourceID, p.ResourceInstanceID}
	return all[:p.Level]
}

// String returns the slash-delimited form.
func (p Path) String() string {
	if p.Level == LevelRoot {
		return "/"
	}
	var b strings.Builder
	for _, id := range p.IDs() {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(int(id)))
	}
	return b.String()
}

// Link returns the CoRE link form "</3/0>".
func (p Path) Link() string {
	return "<" + p.String() + ">"
}

// Child returns the path one level deeper. A resource-instance path has no
// children and is returned unchanged.
func (p Path) Child(id uint16) Path {
	c := p
	switch p.Level {
	case LevelRoot:
		c.ObjectID = id
	case LevelObject:
		c.InstanceID = id
	case LevelInstance:
		c.ResourceID = id
	case LevelResource:
		c.ResourceInstanceID = id
	default:
		return p
	}
	c.Level++
	return c
}

// Parent returns the path one level up. The root is its own parent.
func (p Path) Parent() Path {
	switch p.Level {
	case LevelRoot:
		return p
	case LevelObject:
		return RootPath()
	case LevelInstance:
		return ObjectPath(p.ObjectID)
	case LevelResource:
		return InstancePath(p.ObjectID, p.InstanceID)
	default:
		return ResourcePath(p.ObjectID, p.InstanceID, p.ResourceID)
	}
}

// Less orders paths depth-first by identifier.
func (p Path) Less(q Path) bool {
	a, b := p.IDs(), q.IDs()
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
