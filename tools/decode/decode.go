package decode

import (
	"encoding/json"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// DecodeMap decodes a generic map (typically the result of JSON unmarshalling)
// into a struct T, reading fields by `json` tag. Decoding is weakly typed:
// "123" -> int64, 1.0 -> int64 and so on, which matters because JSON numbers
// arrive as float64.
func DecodeMap[T any](m map[string]any) (*T, error) {
	var out T
	cfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       floatToIntHook(),
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "new decoder")
	}
	if err := dec.Decode(m); err != nil {
		return nil, errors.Wrap(err, "decode map")
	}
	return &out, nil
}

// DecodeJSON unmarshals raw JSON to a map first, then runs DecodeMap, so both
// paths share the same weak-typing rules.
func DecodeJSON[T any](raw []byte) (*T, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal json")
	}
	return DecodeMap[T](m)
}

func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}
