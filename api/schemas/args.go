package schemas

import (
	"encoding/json"
	"strconv"
)

// -- Argument Accessors --
//
// Model-supplied args arrive as untyped JSON, so numbers may be float64,
// json.Number, or stringified digits depending on the provider. These
// accessors absorb that variance; each returns the fallback when the key is
// absent or unusable.

// StringArg returns args[key] as a string.
func (c Command) StringArg(key, fallback string) string {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fallback
}

// IntArg returns args[key] as an int, truncating fractional values.
func (c Command) IntArg(key string, fallback int) int {
	if f, ok := c.floatArg(key); ok {
		return int(f)
	}
	return fallback
}

// FloatArg returns args[key] as a float64.
func (c Command) FloatArg(key string, fallback float64) float64 {
	if f, ok := c.floatArg(key); ok {
		return f
	}
	return fallback
}

func (c Command) floatArg(key string) (float64, bool) {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// StringsArg returns args[key] as a string slice, stringifying mixed-type
// elements. Used for hotkey key lists.
func (c Command) StringsArg(key string) []string {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, el := range raw {
		switch t := el.(type) {
		case string:
			out = append(out, t)
		case json.Number:
			out = append(out, t.String())
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return out
}

// MapArg returns args[key] as a nested object.
func (c Command) MapArg(key string) map[string]any {
	v, ok := c.Args[key]
	if !ok || v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}
