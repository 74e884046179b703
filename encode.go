package miniapi

import "encoding/json"

// Body is the tagged variant a Response carries. A nil Body is an empty body.
type Body interface {
	encode() ([]byte, error)
}

// JSON is a body encoded as JSON text, typically a map.
type JSON struct {
	Value any
}

func (b JSON) encode() ([]byte, error) { return json.Marshal(b.Value) }

// Typed is a validated value (a struct) encoded as JSON text.
type Typed struct {
	Value any
}

func (b Typed) encode() ([]byte, error) { return json.Marshal(b.Value) }

// Text is a body sent as UTF-8 bytes.
type Text string

func (b Text) encode() ([]byte, error) { return []byte(b), nil }

// Raw is a body sent as is.
type Raw []byte

func (b Raw) encode() ([]byte, error) { return b, nil }

// encodeBody serializes body, treating nil as zero length.
func encodeBody(body Body) ([]byte, error) {
	if body == nil {
		return []byte{}, nil
	}
	return body.encode()
}
