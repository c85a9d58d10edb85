package serializer

import (
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/values"
)

// SerializeV1 produces the {map, val} wire shape described in
// spec.md §4.3.
func (c *Codec) SerializeV1(v any) (any, error) {
	typeMap := map[string]string{}
	val, err := c.walkV1(v, nil, typeMap)
	if err != nil {
		return nil, err
	}

	out := map[string]any{"val": val}
	switch len(typeMap) {
	case 0:
		// map absent entirely
	case 1:
		if tag, ok := typeMap[""]; ok {
			out["map"] = tag
			break
		}
		out["map"] = typeMap
	default:
		out["map"] = typeMap
	}
	return out, nil
}

func (c *Codec) walkV1(v any, keys []path.Key, typeMap map[string]string) (any, error) {
	if pa, ok := v.(values.PartialArray); ok {
		typeMap[path.RenderKeys(keys)] = TypeArray
		obj := map[string]any{}
		for idx, child := range pa {
			cv, err := c.walkV1(child, withKey(keys, path.StringKey(indexKeyString(idx))), typeMap)
			if err != nil {
				return nil, err
			}
			obj[indexKeyString(idx)] = cv
		}
		return obj, nil
	}
	if tag, payload, ok := c.leafTag(v, false); ok {
		typeMap[path.RenderKeys(keys)] = tag
		return payload, nil
	}
	switch t := v.(type) {
	case map[string]any:
		obj := make(map[string]any, len(t))
		for k, child := range t {
			cv, err := c.walkV1(child, withKey(keys, path.StringKey(k)), typeMap)
			if err != nil {
				return nil, err
			}
			obj[k] = cv
		}
		return obj, nil
	case []any:
		arr := make([]any, len(t))
		for i, child := range t {
			cv, err := c.walkV1(child, withKey(keys, path.IndexKey(i)), typeMap)
			if err != nil {
				return nil, err
			}
			arr[i] = cv
		}
		return arr, nil
	default:
		return v, nil
	}
}

// DeserializeV1 reverses SerializeV1.
func (c *Codec) DeserializeV1(wire any) (any, error) {
	obj, ok := wire.(map[string]any)
	if !ok {
		return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "DeserializeV1", Err: nil}}
	}
	val, hasVal := obj["val"]
	if !hasVal {
		return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "DeserializeV1"}}
	}
	rawMap, hasMap := obj["map"]
	if !hasMap {
		return val, nil
	}
	if tag, isString := rawMap.(string); isString {
		leaf, _, err := c.applyTagV1(tag, val)
		return leaf, err
	}
	typeMap, _ := rawMap.(map[string]any)
	if tm, ok := rawMap.(map[string]string); ok {
		typeMap = make(map[string]any, len(tm))
		for k, t := range tm {
			typeMap[k] = t
		}
	}
	return c.applyTypeMapV1(val, nil, typeMap)
}

func (c *Codec) applyTagV1(tag string, payload any) (any, bool, error) {
	if tag == TypeArray {
		obj, _ := payload.(map[string]any)
		pa := values.PartialArray{}
		for k, v := range obj {
			idx, err := atoiStrict(k)
			if err != nil {
				return nil, false, &acerr.SerializerFormatError{Base: acerr.Base{Op: "DeserializeV1", Err: err}}
			}
			pa[idx] = v
		}
		return pa, true, nil
	}
	v, err := parseLeaf(tag, payload, c.Binary)
	return v, true, err
}

func (c *Codec) applyTypeMapV1(val any, keys []path.Key, typeMap map[string]any) (any, error) {
	p := path.RenderKeys(keys)
	if tagAny, ok := typeMap[p]; ok {
		tag, _ := tagAny.(string)
		if tag == TypeArray {
			obj, _ := val.(map[string]any)
			pa := values.PartialArray{}
			for k, child := range obj {
				idx, err := atoiStrict(k)
				if err != nil {
					return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "DeserializeV1", Err: err}}
				}
				cv, err := c.applyTypeMapV1(child, withKey(keys, path.StringKey(k)), typeMap)
				if err != nil {
					return nil, err
				}
				pa[idx] = cv
			}
			return pa, nil
		}
		return parseLeaf(tag, val, c.Binary)
	}

	switch t := val.(type) {
	case map[string]any:
		obj := make(map[string]any, len(t))
		for k, child := range t {
			cv, err := c.applyTypeMapV1(child, withKey(keys, path.StringKey(k)), typeMap)
			if err != nil {
				return nil, err
			}
			obj[k] = cv
		}
		return obj, nil
	case []any:
		arr := make([]any, len(t))
		for i, child := range t {
			cv, err := c.applyTypeMapV1(child, withKey(keys, path.IndexKey(i)), typeMap)
			if err != nil {
				return nil, err
			}
			arr[i] = cv
		}
		return arr, nil
	default:
		return val, nil
	}
}

func atoiStrict(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, &acerr.SerializerFormatError{Base: acerr.Base{Op: "DeserializeV1"}}
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
