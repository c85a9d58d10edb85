// Package serializer implements the two on-wire dialects described in
// spec.md §4.3: V1 (out-of-band type map) and V2 (inline ".type"/
// ".val"). Both round-trip the augmented JSON value set defined in
// pkg/values.
package serializer

import (
	"math/big"
	"strconv"
	"time"

	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/values"
)

// Type tags shared by both dialects.
const (
	TypeDate      = "date"
	TypeBinary    = "binary"
	TypeReference = "reference"
	TypeRegexp    = "regexp"
	TypeBigInt    = "bigint"
	TypeArray     = "array"
)

// BinaryCodec encodes/decodes the byte payload of a "binary" leaf.
// The ascii85 algorithm itself is an external collaborator (spec.md
// §1); internal/ascii85 supplies the default implementation.
type BinaryCodec interface {
	Encode(data []byte) string
	Decode(s string) ([]byte, error)
}

// Codec serializes and deserializes augmented JSON values in both
// wire dialects.
type Codec struct {
	Binary BinaryCodec
}

// New builds a Codec with the given binary codec.
func New(binary BinaryCodec) *Codec {
	return &Codec{Binary: binary}
}

// leafTag returns the type tag and dialect-specific payload for v if
// it is a typed leaf (not a plain container/scalar), or ok==false.
func (c *Codec) leafTag(v any, v2 bool) (tag string, payload any, ok bool) {
	switch t := v.(type) {
	case time.Time:
		return TypeDate, t.UTC().Format("2006-01-02T15:04:05.000Z"), true
	case values.Binary:
		return TypeBinary, c.Binary.Encode([]byte(t)), true
	case values.PathReference:
		return TypeReference, t.Path, true
	case values.Regexp:
		if v2 {
			return TypeRegexp, "/" + t.Source + "/" + t.Flags, true
		}
		return TypeRegexp, map[string]any{"pattern": t.Source, "flags": t.Flags}, true
	case *big.Int:
		return TypeBigInt, t.String(), true
	default:
		return "", nil, false
	}
}

func withKey(keys []path.Key, k path.Key) []path.Key {
	out := make([]path.Key, len(keys)+1)
	copy(out, keys)
	out[len(keys)] = k
	return out
}

func parseLeaf(tag string, payload any, binCodec BinaryCodec) (any, error) {
	switch tag {
	case TypeDate:
		s, ok := payload.(string)
		if !ok {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize", Err: err}}
		}
		return t.UTC(), nil
	case TypeBinary:
		s, ok := payload.(string)
		if !ok {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		b, err := binCodec.Decode(s)
		if err != nil {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize", Err: err}}
		}
		return values.Binary(b), nil
	case TypeReference:
		s, ok := payload.(string)
		if !ok {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		return values.NewPathReference(s), nil
	case TypeRegexp:
		return parseRegexpPayload(payload)
	case TypeBigInt:
		s, ok := payload.(string)
		if !ok {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		n, ok2 := new(big.Int).SetString(s, 10)
		if !ok2 {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		return n, nil
	default:
		return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
	}
}

func parseRegexpPayload(payload any) (any, error) {
	switch p := payload.(type) {
	case string:
		// "/source/flags"
		if len(p) < 2 || p[0] != '/' {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		last := lastSlash(p)
		if last <= 0 {
			return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
		}
		return values.NewRegexp(p[1:last], p[last+1:]), nil
	case map[string]any:
		pattern, _ := p["pattern"].(string)
		flags, _ := p["flags"].(string)
		return values.NewRegexp(pattern, flags), nil
	default:
		return nil, &acerr.SerializerFormatError{Base: acerr.Base{Op: "Deserialize"}}
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func indexKeyString(i int) string { return strconv.Itoa(i) }
