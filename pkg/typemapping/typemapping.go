// Package typemapping implements the TypeMappings registry described
// in spec.md §4.6: binding a path pattern to a Go type so that stored
// plain values are transparently instantiated on read and flattened on
// write.
package typemapping

import (
	"reflect"

	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/diff"
	"github.com/acebase-go/acebase-core/pkg/path"
)

// CreatorFunc builds an instance from a snapshot-like value (typically
// supplied by the caller's acebase.DataSnapshot, passed through
// opaquely as any to avoid a dependency on that package).
type CreatorFunc func(snap any) (any, error)

// SerializerFunc flattens instance back to a plain storable value.
// ref is whatever reference-like handle the caller passes through.
type SerializerFunc func(instance any, ref any) (any, error)

// DeserializerFunc builds an instance directly from a snapshot-like
// value, bypassing Creator. Used when the bound type supplies its own
// full deserialization routine.
type DeserializerFunc func(snap any) (any, error)

// Mapping is one bound path pattern.
type Mapping struct {
	Pattern      path.PathInfo
	Type         reflect.Type
	Creator      CreatorFunc
	Serializer   SerializerFunc
	Deserializer DeserializerFunc
}

// BindOptions configures a Bind call. Creator/Serializer/Deserializer
// take priority over their *Method counterparts. A *Method name is only
// checked to exist on Type; the method is never called, and a non-empty
// CreatorMethod leaves the mapping without the default creator.
type BindOptions struct {
	Creator            CreatorFunc
	CreatorMethod      string
	Serializer         SerializerFunc
	SerializerMethod   string
	Deserializer       DeserializerFunc
	DeserializerMethod string
}

// Registry holds every bound Mapping.
type Registry struct {
	mappings []*Mapping
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Bind registers typ at patternStr: every direct child of a value
// stored at patternStr is treated as an instance of typ. Rejects a
// *Method option naming a method typ does not have.
func (r *Registry) Bind(patternStr string, typ reflect.Type, opts BindOptions) error {
	pattern, err := path.Get(patternStr)
	if err != nil {
		return err
	}
	for _, name := range []string{opts.CreatorMethod, opts.SerializerMethod, opts.DeserializerMethod} {
		if name == "" {
			continue
		}
		if _, ok := typ.MethodByName(name); !ok {
			return &acerr.InvalidMappingError{Base: acerr.Base{Op: "Registry.Bind"}, Pattern: patternStr}
		}
	}

	m := &Mapping{Pattern: pattern, Type: typ, Creator: opts.Creator, Serializer: opts.Serializer, Deserializer: opts.Deserializer}
	if m.Creator == nil && opts.CreatorMethod == "" {
		m.Creator = func(snap any) (any, error) {
			return reflect.New(typ).Interface(), nil
		}
	}

	for i, existing := range r.mappings {
		if existing.Pattern.Equals(pattern) {
			r.mappings[i] = m
			return nil
		}
	}
	r.mappings = append(r.mappings, m)
	return nil
}

// Map returns the mapping whose pattern matches p's parent path,
// preferring the most specific (fewest wildcard/variable keys) among
// ties.
func (r *Registry) Map(p path.PathInfo) (*Mapping, bool) {
	parent, ok := p.Parent()
	if !ok {
		return nil, false
	}
	var best *Mapping
	bestScore := -1
	for _, m := range r.mappings {
		if !m.Pattern.Equals(parent) {
			continue
		}
		score := specificity(m.Pattern)
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, best != nil
}

// MapDeep returns every mapping whose pattern is equal to, or a
// descendant of, entryPath's parent path.
func (r *Registry) MapDeep(entryPath path.PathInfo) []*Mapping {
	parent, ok := entryPath.Parent()
	if !ok {
		return nil
	}
	var out []*Mapping
	for _, m := range r.mappings {
		if m.Pattern.Equals(parent) || m.Pattern.IsDescendantOf(parent) {
			out = append(out, m)
		}
	}
	return out
}

// specificity scores a pattern by how many of its keys are literal
// (not wildcard/variable); higher is more specific.
func specificity(p path.PathInfo) int {
	n := 0
	for _, k := range p.Keys() {
		if !k.IsWildcardOrVariable() {
			n++
		}
	}
	return n
}

// Serialize clones value, then flattens every instance reachable from
// atPath according to every applicable mapping (deepest pattern
// first), so the original value passed in is never mutated.
func (r *Registry) Serialize(value any, atPath path.PathInfo, ref any) (any, error) {
	cloned, err := diff.CloneObject(value)
	if err != nil {
		return nil, err
	}
	mappings := r.MapDeep(atPath)
	sortDeepestFirst(mappings)

	result := cloned
	for _, m := range mappings {
		serializer := m.Serializer
		if serializer == nil {
			continue
		}
		trail, selfIsInstance := relativeTrail(m.Pattern, atPath)
		if selfIsInstance {
			plain, err := serializer(result, ref)
			if err != nil {
				return nil, err
			}
			result = plain
			continue
		}
		result, err = descendAndMapChildren(result, trail, func(instance any) (any, error) {
			return serializer(instance, ref)
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Deserialize is the inverse of Serialize: it walks the same
// mappings, deepest first, instantiating plain values via each
// mapping's Creator/Deserializer. snapFor builds whatever
// snapshot-like handle the bound type's Creator/Deserializer expects.
func (r *Registry) Deserialize(value any, atPath path.PathInfo, snapFor func(v any) any) (any, error) {
	mappings := r.MapDeep(atPath)
	sortDeepestFirst(mappings)

	result := value
	for _, m := range mappings {
		build := m.buildInstance
		trail, selfIsInstance := relativeTrail(m.Pattern, atPath)
		if selfIsInstance {
			inst, err := build(snapFor(result))
			if err != nil {
				return nil, err
			}
			result = inst
			continue
		}
		var err error
		result, err = descendAndMapChildren(result, trail, func(plain any) (any, error) {
			return build(snapFor(plain))
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m *Mapping) buildInstance(snap any) (any, error) {
	if m.Deserializer != nil {
		return m.Deserializer(snap)
	}
	if m.Creator != nil {
		return m.Creator(snap)
	}
	return snap, nil
}

func sortDeepestFirst(mappings []*Mapping) {
	for i := 1; i < len(mappings); i++ {
		for j := i; j > 0 && len(mappings[j].Pattern.Keys()) > len(mappings[j-1].Pattern.Keys()); j-- {
			mappings[j], mappings[j-1] = mappings[j-1], mappings[j]
		}
	}
}

// relativeTrail computes the keys remaining between atPath and
// m.Pattern. If m.Pattern equals atPath's own parent, atPath itself is
// the bound instance (selfIsInstance is true) rather than a container
// whose children are instances.
func relativeTrail(pattern, atPath path.PathInfo) (trail []path.Key, selfIsInstance bool) {
	base := atPath.Keys()
	full := pattern.Keys()
	if len(full) == len(base)-1 {
		return nil, true
	}
	if len(full) < len(base) {
		return nil, false
	}
	return full[len(base):], false
}

func descendAndMapChildren(container any, trail []path.Key, apply func(instance any) (any, error)) (any, error) {
	if len(trail) == 0 {
		return mapEveryChild(container, apply)
	}
	head, rest := trail[0], trail[1:]
	switch v := container.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			if head.IsWildcardOrVariable() || (!head.IsIndex && head.Name == k) {
				nc, err := descendAndMapChildren(child, rest, apply)
				if err != nil {
					return nil, err
				}
				out[k] = nc
			} else {
				out[k] = child
			}
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			if head.IsWildcardOrVariable() || (head.IsIndex && head.Index == i) {
				nc, err := descendAndMapChildren(child, rest, apply)
				if err != nil {
					return nil, err
				}
				out[i] = nc
			} else {
				out[i] = child
			}
		}
		return out, nil
	default:
		return container, nil
	}
}

func mapEveryChild(container any, apply func(any) (any, error)) (any, error) {
	switch v := container.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			nc, err := apply(child)
			if err != nil {
				return nil, err
			}
			out[k] = nc
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			nc, err := apply(child)
			if err != nil {
				return nil, err
			}
			out[i] = nc
		}
		return out, nil
	default:
		return container, nil
	}
}
