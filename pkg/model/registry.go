package model

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry construction errors.
var (
	ErrDuplicateObject   = errors.New("object already registered")
	ErrDuplicateInstance = errors.New("object instance already registered")
	ErrUnknownResource   = errors.New("resource not defined by object")
)

// ObjectDefinition describes an LwM2M object type.
type ObjectDefinition struct {
	// ID is the object identifier (3 for Device).
	ID uint16

	// Name is the human-readable object name.
	Name string

	// Resources lists the resources the object defines.
	Resources []ResourceDefinition
}

// Resource returns the definition of resource id.
func (o *ObjectDefinition) Resource(id uint16) (*ResourceDefinition, bool) {
	for i := range o.Resources {
		if o.Resources[i].ID == id {
			return &o.Resources[i], true
		}
	}
	return nil, false
}

type object struct {
	def       *ObjectDefinition
	instances map[uint16]*instance
}

// instance maps resource ids to value sources. Executable resources are
// present with a nil source.
type instance struct {
	values map[uint16]Source
}

// Registry is the object/instance/resource tree served to the management
// server. The tree is built once at startup; afterwards only Cell values
// change.
type Registry struct {
	mu      sync.RWMutex
	objects map[uint16]*object
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[uint16]*object),
	}
}

// AddObject registers an object definition.
func (r *Registry) AddObject(def ObjectDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.objects[def.ID]; exists {
		return fmt.Errorf("%w: /%d", ErrDuplicateObject, def.ID)
	}

	seen := make(map[uint16]bool, len(def.Resources))
	for _, res := range def.Resources {
		if seen[res.ID] {
			return fmt.Errorf("%w: /%d defines resource %d twice", ErrDuplicateObject, def.ID, res.ID)
		}
		seen[res.ID] = true
	}

	d := def
	d.Resources = slices.Clone(def.Resources)
	r.objects[def.ID] = &object{
		def:       &d,
		instances: make(map[uint16]*instance),
	}
	return nil
}

// AddInstance registers an instance of a known object. Every key of values
// must be a resource defined by the object; values are validated when the
// source is Static.
func (r *Registry) AddInstance(objectID, instanceID uint16, values map[uint16]Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[objectID]
	if !ok {
		return fmt.Errorf("%w: /%d", ErrPathNotFound, objectID)
	}
	if _, exists := obj.instances[instanceID]; exists {
		return fmt.Errorf("%w: /%d/%d", ErrDuplicateInstance, objectID, instanceID)
	}

	for id, src := range values {
		def, ok := obj.def.Resource(id)
		if !ok {
			return fmt.Errorf("%w: /%d/%d/%d", ErrUnknownResource, objectID, instanceID, id)
		}
		if s, isStatic := src.(Static); isStatic {
			if err := def.Validate(s.Value()); err != nil {
				return fmt.Errorf("/%d/%d/%d: %w", objectID, instanceID, id, err)
			}
		}
	}

	obj.instances[instanceID] = &instance{values: maps.Clone(values)}
	return nil
}

// Resolve parses s and checks that it names an existing node.
func (r *Registry) Resolve(s string) (Path, error) {
	p, err := ParsePath(s)
	if err != nil {
		return Path{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.existsLocked(p) {
		return Path{}, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	return p, nil
}

// Exists reports whether p names a node of the tree.
func (r *Registry) Exists(p Path) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.existsLocked(p)
}

func (r *Registry) existsLocked(p Path) bool {
	if p.Level == LevelRoot {
		return true
	}
	obj, ok := r.objects[p.ObjectID]
	if !ok {
		return false
	}
	if p.Level == LevelObject {
		return true
	}
	inst, ok := obj.instances[p.InstanceID]
	if !ok {
		return false
	}
	if p.Level == LevelInstance {
		return true
	}
	src, ok := inst.values[p.ResourceID]
	if !ok {
		return false
	}
	if p.Level == LevelResource {
		return true
	}

	def, _ := obj.def.Resource(p.ResourceID)
	if !def.IsMultiple() || src == nil {
		return false
	}
	values, _ := src.Value().([]any)
	return int(p.ResourceInstanceID) < len(values)
}

// Object returns the definition of object id.
func (r *Registry) Object(id uint16) (*ObjectDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[id]
	if !ok {
		return nil, false
	}
	return obj.def, true
}

// DefinitionAt returns the resource definition addressed by a resource or
// resource-instance path.
func (r *Registry) DefinitionAt(p Path) (*ResourceDefinition, error) {
	if p.Level < LevelResource {
		return nil, fmt.Errorf("%w: %s is not a resource", ErrPathNotFound, p)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[p.ObjectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	def, ok := obj.def.Resource(p.ResourceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	return def, nil
}

// ValueAt returns the current value of a resource or resource instance. A
// multiple resource yields []any.
func (r *Registry) ValueAt(p Path) (any, error) {
	if p.Level < LevelResource {
		return nil, fmt.Errorf("%w: %s is not a resource", ErrPathNotFound, p)
	}

	r.mu.RLock()
	def, src, err := r.lookupLocked(p)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if !def.Readable() {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, p)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoValue, p)
	}

	// One Value call per read keeps the result a single snapshot.
	v := src.Value()
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoValue, p)
	}

	if p.Level == LevelResource {
		if def.IsMultiple() {
			values, _ := v.([]any)
			return slices.Clone(values), nil
		}
		return v, nil
	}

	values, _ := v.([]any)
	if !def.IsMultiple() || int(p.ResourceInstanceID) >= len(values) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	return values[p.ResourceInstanceID], nil
}

func (r *Registry) lookupLocked(p Path) (*ResourceDefinition, Source, error) {
	obj, ok := r.objects[p.ObjectID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	inst, ok := obj.instances[p.InstanceID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	src, ok := inst.values[p.ResourceID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}
	def, _ := obj.def.Resource(p.ResourceID)
	return def, src, nil
}

// ChildrenOf returns the immediate children of p in ascending order: root
// lists objects, an object its instances, an instance its resources and a
// multiple resource its resource instances.
func (r *Registry) ChildrenOf(p Path) ([]Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.existsLocked(p) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, p)
	}

	var ids []uint16
	switch p.Level {
	case LevelRoot:
		ids = slices.Collect(maps.Keys(r.objects))
	case LevelObject:
		ids = slices.Collect(maps.Keys(r.objects[p.ObjectID].instances))
	case LevelInstance:
		ids = slices.Collect(maps.Keys(r.objects[p.ObjectID].instances[p.InstanceID].values))
	case LevelResource:
		obj := r.objects[p.ObjectID]
		def, _ := obj.def.Resource(p.ResourceID)
		src := obj.instances[p.InstanceID].values[p.ResourceID]
		if !def.IsMultiple() || src == nil {
			return nil, nil
		}
		values, _ := src.Value().([]any)
		for i := range values {
			ids = append(ids, uint16(i))
		}
	default:
		return nil, nil
	}

	slices.Sort(ids)
	children := make([]Path, len(ids))
	for i, id := range ids {
		children[i] = p.Child(id)
	}
	return children, nil
}

// ObjectLinks returns every object instance path in ascending order. This
// is the object list announced on registration.
func (r *Registry) ObjectLinks() []Path {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var links []Path
	for oid, obj := range r.objects {
		for iid := range obj.instances {
			links = append(links, InstancePath(oid, iid))
		}
	}
	slices.SortFunc(links, func(a, b Path) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return links
}

// Set replaces the value of a resource backed by a Cell.
func (r *Registry) Set(p Path, v any) error {
	if p.Level != LevelResource {
		return fmt.Errorf("%w: %s is not a resource", ErrNotUpdatable, p)
	}

	r.mu.RLock()
	def, src, err := r.lookupLocked(p)
	r.mu.RUnlock()
	if err != nil {
		return err
	}

	cell, ok := src.(*Cell)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotUpdatable, p)
	}
	if err := def.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	cell.Set(v)
	return nil
}
