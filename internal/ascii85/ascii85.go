// Package ascii85 provides the default binary codec the serializer
// calls for "binary" leaves. spec.md §1 places the ascii85 codec
// itself out of scope ("a pure function (encode/decode)... used by
// the serializer") -- this is the default adapter wiring the stdlib
// encoding/ascii85 implementation behind the serializer's BinaryCodec
// interface, framed with the "<~" ... "~>" delimiters spec.md §4.3
// requires to be bit-exact with the existing codec output.
package ascii85

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
	"strings"
)

const (
	startDelim = "<~"
	endDelim   = "~>"
)

// Codec is the default framed-ascii85 implementation.
type Codec struct{}

// Encode returns the ascii85 encoding of data, framed by "<~" and "~>".
func (Codec) Encode(data []byte) string {
	var buf bytes.Buffer
	w := ascii85.NewEncoder(&buf)
	_, _ = w.Write(data)
	_ = w.Close()
	return startDelim + buf.String() + endDelim
}

// Decode reverses Encode. It requires the "<~"..."~>" framing.
func (Codec) Decode(s string) ([]byte, error) {
	if !strings.HasPrefix(s, startDelim) || !strings.HasSuffix(s, endDelim) {
		return nil, fmt.Errorf("ascii85: missing <~ ~> framing")
	}
	body := s[len(startDelim) : len(s)-len(endDelim)]
	out := make([]byte, len(body))
	n, _, err := ascii85.Decode(out, []byte(body), true)
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out[:n], nil
}
