// Package codec converts between domain values and the bytes a store
// persists.
//
// A [Codec] is pure and deterministic. [JSON] is the structured text
// format used by most stores; [YAML], [Bytes] and [String] cover the other
// common cases. [Value] is a tagged variant for payloads whose shape is
// only known at run time.
//
//	c := codec.JSON[map[string]int]()
//	b, _ := c.Encode(map[string]int{"a": 1})
//	m, err := c.Decode(b)
package codec
