// File: internal/coords/source.go
package coords

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Models express a screen position in several historical shapes: direct x/y
// fields, a two-element point array under various names, a center map, or a
// four-element bounding box. Source is the shape-agnostic extraction; the
// resolver in resolve.go turns it into absolute pixels.
type Source struct {
	// X and Y are the raw pair; nil when that component could not be read.
	X *float64
	Y *float64
	// BBox is the raw [x1, y1, x2, y2] box, nil when absent. A box, when
	// present, supersedes the direct pair.
	BBox []float64
	// Hint is the model-supplied coordinate-system hint, empty when absent.
	Hint string
}

// pairKeys are arg names that may carry a two-element [x, y] array.
var pairKeys = []string{"coordinates", "point", "target", "location", "coord", "xy"}

// centerKeys are arg names that may carry an {x, y} map.
var centerKeys = []string{"position", "center"}

// bboxKeys are arg names that may carry a four-element bounding box.
var bboxKeys = []string{"bbox", "box", "bounding_box"}

// ExtractSource pulls a coordinate source out of a raw args map. Precedence:
// direct x/y (then cx/cy), then the first recognized pair array, then the
// first recognized center map. A bounding box is extracted independently and
// takes priority during resolution.
func ExtractSource(args map[string]any) Source {
	src := Source{Hint: hintString(args)}

	for _, key := range bboxKeys {
		if box := floatSlice(args[key], 4); box != nil {
			src.BBox = box
			break
		}
	}

	src.X, src.Y = asFloat(args["x"]), asFloat(args["y"])
	if src.X == nil && src.Y == nil {
		src.X, src.Y = asFloat(args["cx"]), asFloat(args["cy"])
	}
	if src.X == nil && src.Y == nil {
		for _, key := range pairKeys {
			if raw, ok := args[key].([]any); ok && len(raw) == 2 {
				src.X, src.Y = asFloat(raw[0]), asFloat(raw[1])
				break
			}
		}
	}
	if src.X == nil && src.Y == nil {
		for _, key := range centerKeys {
			if m, ok := args[key].(map[string]any); ok {
				src.X, src.Y = asFloat(m["x"]), asFloat(m["y"])
				break
			}
		}
	}
	return src
}

// HasShape reports whether args carries any recognized coordinate shape. This
// is the presence check the validator runs for pointer actions; whether the
// shape resolves to a usable point is the resolver's concern.
func HasShape(args map[string]any) bool {
	for _, key := range bboxKeys {
		if raw, ok := args[key].([]any); ok && len(raw) == 4 {
			return true
		}
	}
	if _, ok := args["x"]; ok {
		if _, ok := args["y"]; ok {
			return true
		}
	}
	if _, ok := args["cx"]; ok {
		if _, ok := args["cy"]; ok {
			return true
		}
	}
	for _, key := range pairKeys {
		if raw, ok := args[key].([]any); ok && len(raw) == 2 {
			return true
		}
	}
	for _, key := range centerKeys {
		if m, ok := args[key].(map[string]any); ok {
			if _, okX := m["x"]; okX {
				if _, okY := m["y"]; okY {
					return true
				}
			}
		}
	}
	return false
}

func hintString(args map[string]any) string {
	if s, ok := args["coord_system"].(string); ok {
		return s
	}
	return ""
}

// asFloat converts the numeric shapes a JSON decoder may produce. Returns nil
// for anything non-numeric, including null.
func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// floatSlice converts v to a []float64 of exactly want elements, or nil.
func floatSlice(v any, want int) []float64 {
	raw, ok := v.([]any)
	if !ok || len(raw) != want {
		return nil
	}
	out := make([]float64, want)
	for i, el := range raw {
		f := asFloat(el)
		if f == nil {
			return nil
		}
		out[i] = *f
	}
	return out
}
