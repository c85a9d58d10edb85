package serializer

import (
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/values"
)

const (
	dotType    = ".type"
	dotVal     = ".val"
	dotVersion = ".version"
)

// SerializeV2 produces the inline ".type"/".val" wire shape described
// in spec.md §4.3. An object whose only own key ends up being "val"
// receives an extra ".version": 2 marker so it isn't mistaken for the
// V1 val-only shape by DetectVersion.
func (c *Codec) SerializeV2(v any) (any, error) {
	out, err := c.walkV2(v)
	if err != nil {
		return nil, err
	}
	if m, ok := out.(map[string]any); ok && len(m) == 1 {
		if _, hasVal := m["val"]; hasVal {
			m[dotVersion] = 2
		}
	}
	return out, nil
}

func (c *Codec) walkV2(v any) (any, error) {
	if pa, ok := v.(values.PartialArray); ok {
		obj := map[string]any{dotType: TypeArray}
		for idx, child := range pa {
			cv, err := c.walkV2(child)
			if err != nil {
				return nil, err
			}
			obj[indexKeyString(idx)] = cv
		}
		return obj, nil
	}
	if tag, payload, ok := c.leafTag(v, true); ok {
		return map[string]any{dotType: tag, dotVal: payload}, nil
	}
	switch t := v.(type) {
	case map[string]any:
		obj := make(map[string]any, len(t))
		for k, child := range t {
			cv, err := c.walkV2(child)
			if err != nil {
				return nil, err
			}
			obj[k] = cv
		}
		return obj, nil
	case []any:
		arr := make([]any, len(t))
		for i, child := range t {
			cv, err := c.walkV2(child)
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

// DeserializeV2 reverses SerializeV2.
func (c *Codec) DeserializeV2(wire any) (any, error) {
	switch w := wire.(type) {
	case map[string]any:
		if typAny, ok := w[dotType]; ok {
			tag, _ := typAny.(string)
			if tag == TypeArray {
				pa := values.PartialArray{}
				for k, v := range w {
					if k == dotType {
						continue
					}
					idx, err := atoiStrict(k)
					if err != nil {
						return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "DeserializeV2", Err: err}}
					}
					cv, err := c.DeserializeV2(v)
					if err != nil {
						return nil, err
					}
					pa[idx] = cv
				}
				return pa, nil
			}
			payload, err := c.DeserializeV2(w[dotVal])
			if err != nil {
				return nil, err
			}
			leaf, err := parseLeaf(tag, payload, c.Binary)
			if err != nil {
				return nil, err
			}
			return leaf, nil
		}
		obj := make(map[string]any, len(w))
		for k, v := range w {
			if k == dotVersion {
				continue
			}
			cv, err := c.DeserializeV2(v)
			if err != nil {
				return nil, err
			}
			obj[k] = cv
		}
		return obj, nil
	case []any:
		arr := make([]any, len(w))
		for i, v := range w {
			cv, err := c.DeserializeV2(v)
			if err != nil {
				return nil, err
			}
			arr[i] = cv
		}
		return arr, nil
	default:
		return wire, nil
	}
}
