package main

import (
	"encoding/json"
	"fmt"

	"github.com/ryhazerus/anystore/codec"
)

// encodeInput validates a value given on the command line and returns the
// bytes to store.
func encodeInput(format string, in []byte) ([]byte, error) {
	switch format {
	case "raw":
		return in, nil
	case "string":
		s, err := codec.String().Decode(in)
		if err != nil {
			return nil, err
		}
		return codec.String().Encode(s)
	case "json":
		v, err := codec.JSON[codec.Value]().Decode(in)
		if err != nil {
			return nil, err
		}
		return codec.JSON[codec.Value]().Encode(v)
	case "yaml":
		v, err := codec.YAML[any]().Decode(in)
		if err != nil {
			return nil, err
		}
		return codec.YAML[any]().Encode(v)
	default:
		return nil, fmt.Errorf("invalid codec %s", format)
	}
}

// renderOutput decodes a stored value and formats it for display.
func renderOutput(format string, b []byte) ([]byte, error) {
	switch format {
	case "raw":
		return b, nil
	case "string":
		s, err := codec.String().Decode(b)
		return []byte(s), err
	case "json":
		v, err := codec.JSON[codec.Value]().Decode(b)
		if err != nil {
			return nil, err
		}
		return json.MarshalIndent(v, "", "  ")
	case "yaml":
		v, err := codec.YAML[any]().Decode(b)
		if err != nil {
			return nil, err
		}
		return codec.YAML[any]().Encode(v)
	default:
		return nil, fmt.Errorf("invalid codec %s", format)
	}
}
