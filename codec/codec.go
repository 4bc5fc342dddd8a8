package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Codec converts between values of type V and the bytes a store persists.
// Implementations are stateless and deterministic: Decode(Encode(v)) equals
// v for every v representable in V. Decode never returns a partially
// populated value; on error it returns the zero V.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(b []byte) (V, error)
}

// Compile-time interface checks.
var (
	_ Codec[any]    = jsonCodec[any]{}
	_ Codec[any]    = yamlCodec[any]{}
	_ Codec[[]byte] = bytesCodec{}
	_ Codec[string] = stringCodec{}
)

// JSON returns the structured text codec. Decoding is strict: trailing
// data, unknown struct fields and type mismatches are errors, and null
// decodes only into types that can hold it.
func JSON[V any]() Codec[V] {
	return jsonCodec[V]{}
}

type jsonCodec[V any] struct{}

func (jsonCodec[V]) Encode(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec/json: encode: %w", err)
	}
	return b, nil
}

func (jsonCodec[V]) Decode(b []byte) (V, error) {
	var v V
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) && !holdsNull(reflect.TypeFor[V](), jsonUnmarshaler) {
		return v, fmt.Errorf("codec/json: decode: null into %s", reflect.TypeFor[V]())
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		var zero V
		return zero, fmt.Errorf("codec/json: decode: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var zero V
		return zero, errors.New("codec/json: decode: trailing data after value")
	}
	return v, nil
}

// YAML returns a codec producing YAML documents. Unknown struct fields and
// empty input are rejected, as are scalars whose resolved tag does not
// match a scalar V (the int 42 does not decode as a string).
func YAML[V any]() Codec[V] {
	return yamlCodec[V]{}
}

type yamlCodec[V any] struct{}

func (yamlCodec[V]) Encode(v V) ([]byte, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec/yaml: encode: %w", err)
	}
	return b, nil
}

func (yamlCodec[V]) Decode(b []byte) (V, error) {
	var v V
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(b)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return v, errors.New("codec/yaml: decode: empty document")
		}
		return v, fmt.Errorf("codec/yaml: decode: %w", err)
	}
	if err := checkScalar(&doc, reflect.TypeFor[V]()); err != nil {
		return v, fmt.Errorf("codec/yaml: decode: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		var zero V
		return zero, fmt.Errorf("codec/yaml: decode: %w", err)
	}
	return v, nil
}

var (
	jsonUnmarshaler = reflect.TypeFor[json.Unmarshaler]()
	yamlUnmarshaler = reflect.TypeFor[yaml.Unmarshaler]()
)

// holdsNull reports whether a null input has a meaning for t: t is nil-able
// or unmarshals itself.
func holdsNull(t reflect.Type, custom reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	}
	return reflect.PointerTo(t).Implements(custom)
}

// checkScalar rejects a top-level scalar whose resolved tag cannot be
// represented by t without conversion.
func checkScalar(doc *yaml.Node, t reflect.Type) error {
	n := doc
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.ScalarNode || reflect.PointerTo(t).Implements(yamlUnmarshaler) {
		return nil
	}
	// Durations are written as strings like "1m30s".
	if t == reflect.TypeFor[time.Duration]() {
		return nil
	}
	tag := n.ShortTag()
	if tag == "!!null" {
		if holdsNull(t, yamlUnmarshaler) {
			return nil
		}
		return fmt.Errorf("null into %s", t)
	}

	var ok bool
	switch t.Kind() {
	case reflect.String:
		ok = tag == "!!str"
	case reflect.Bool:
		ok = tag == "!!bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		ok = tag == "!!int"
	case reflect.Float32, reflect.Float64:
		ok = tag == "!!int" || tag == "!!float"
	default:
		return nil
	}
	if !ok {
		return fmt.Errorf("%s scalar %q into %s", tag, n.Value, t)
	}
	return nil
}

// Bytes returns the identity codec.
func Bytes() Codec[[]byte] {
	return bytesCodec{}
}

type bytesCodec struct{}

func (bytesCodec) Encode(v []byte) ([]byte, error) {
	return bytes.Clone(v), nil
}

func (bytesCodec) Decode(b []byte) ([]byte, error) {
	return bytes.Clone(b), nil
}

// String returns a codec storing strings as their UTF-8 bytes. Decoding
// rejects invalid UTF-8.
func String() Codec[string] {
	return stringCodec{}
}

type stringCodec struct{}

func (stringCodec) Encode(v string) ([]byte, error) {
	if !utf8.ValidString(v) {
		return nil, errors.New("codec/string: encode: invalid UTF-8")
	}
	return []byte(v), nil
}

func (stringCodec) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errors.New("codec/string: decode: invalid UTF-8")
	}
	return string(b), nil
}
