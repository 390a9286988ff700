package geometry

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"

	"github.com/spf13/cast"
)

var numberPattern = regexp.MustCompile(`-?(?:\d+\.?\d*|\.\d+)`)

// ExtractNumbers scans s for decimal numbers in order of appearance.
func ExtractNumbers(s string) []float64 {
	matches := numberPattern.FindAllString(s, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Decode parses an encoded geometry string in the given representation.
// yolo, pascal_voc and coco_bbox use the first four numbers found in value;
// generic accepts structured JSON before falling back to number scanning.
func Decode(rep Representation, value string, dims Dims) (Box, bool) {
	if rep == Generic {
		return ParseGeneric(value, dims)
	}
	nums := ExtractNumbers(value)
	if len(nums) < 4 {
		return Box{}, false
	}
	return Normalize(rep, [4]float64{nums[0], nums[1], nums[2], nums[3]}, dims)
}

// ParseGeneric decodes a loosely formatted geometry value (see GenericValues)
// and scales it by dims when it looks pixel-absolute.
func ParseGeneric(value string, dims Dims) (Box, bool) {
	v, ok := GenericValues(value)
	if !ok {
		return Box{}, false
	}
	return normalizeGeneric(v[0], v[1], v[2], v[3], dims)
}

// GenericValues returns the raw x, y, width and height a generic value
// encodes, before any scaling. A JSON object or array is tried first (see
// FromRecord); otherwise the first four numbers in the string are taken.
func GenericValues(value string) ([4]float64, bool) {
	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err == nil && parsed != nil {
		if v, ok := recordValues(parsed); ok {
			return v, true
		}
	}
	nums := ExtractNumbers(value)
	if len(nums) < 4 {
		return [4]float64{}, false
	}
	return [4]float64{nums[0], nums[1], nums[2], nums[3]}, true
}

// FromRecord decodes a structured geometry record. Accepted shapes:
//
//	{"x":..,"y":..,"width":..,"height":..}
//	{"x1":..,"y1":..,"x2":..,"y2":..}
//	{"bbox":[x,y,w,h]}
//	{"points":[[x,y],...]}
//	[x,y,w,h]
//
// Numbers may be encoded as JSON strings.
func FromRecord(v any, dims Dims) (Box, bool) {
	vals, ok := recordValues(v)
	if !ok {
		return Box{}, false
	}
	return normalizeGeneric(vals[0], vals[1], vals[2], vals[3], dims)
}

func recordValues(v any) ([4]float64, bool) {
	switch rec := v.(type) {
	case map[string]any:
		if vals, ok := floatFields(rec, "x", "y", "width", "height"); ok {
			return [4]float64{vals[0], vals[1], vals[2], vals[3]}, true
		}
		if c, ok := floatFields(rec, "x1", "y1", "x2", "y2"); ok {
			// corners in any order
			return [4]float64{math.Min(c[0], c[2]), math.Min(c[1], c[3]), math.Abs(c[2] - c[0]), math.Abs(c[3] - c[1])}, true
		}
		if bbox, ok := rec["bbox"].([]any); ok {
			return recordValues(bbox)
		}
		if pts, ok := rec["points"].([]any); ok {
			return polygonValues(pts)
		}
	case []any:
		if len(rec) < 4 {
			return [4]float64{}, false
		}
		var vals [4]float64
		for i := range vals {
			f, err := cast.ToFloat64E(rec[i])
			if err != nil {
				return [4]float64{}, false
			}
			vals[i] = f
		}
		return vals, true
	}
	return [4]float64{}, false
}

func floatFields(rec map[string]any, keys ...string) ([]float64, bool) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		raw, ok := rec[k]
		if !ok || raw == nil {
			return nil, false
		}
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// polygonValues reduces a point list to its axis-aligned bounding rectangle.
func polygonValues(pts []any) ([4]float64, bool) {
	if len(pts) < 2 {
		return [4]float64{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		pair, ok := p.([]any)
		if !ok || len(pair) < 2 {
			return [4]float64{}, false
		}
		x, errX := cast.ToFloat64E(pair[0])
		y, errY := cast.ToFloat64E(pair[1])
		if errX != nil || errY != nil {
			return [4]float64{}, false
		}
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return [4]float64{minX, minY, maxX - minX, maxY - minY}, true
}
