// Package geometry converts raw annotation coordinates into canonical
// fractional boxes.
//
// A canonical box is expressed as the top-left corner plus width and height,
// all as fractions of the image dimensions. Every box returned by this package
// satisfies 0 <= X, 0 <= Y, X+Width <= 1, Y+Height <= 1 and has a strictly
// positive width and height.
package geometry

import (
	"math"
	"strings"
)

// Representation is the coordinate convention of a raw 4-tuple.
type Representation string

const (
	// YOLO is (center_x, center_y, width, height), already normalized.
	YOLO Representation = "yolo"
	// PascalVOC is (xmin, ymin, xmax, ymax) in pixels.
	PascalVOC Representation = "pascal_voc"
	// COCOBBox is (x, y, width, height) in pixels.
	COCOBBox Representation = "coco_bbox"
	// Generic is (x, y, width, height), assumed fractional unless dims say otherwise.
	Generic Representation = "generic"
)

// ParseRepresentation maps a configuration string onto a Representation.
// Matching is case-insensitive; unknown or empty values yield fallback.
func ParseRepresentation(s string, fallback Representation) Representation {
	switch Representation(strings.ToLower(strings.TrimSpace(s))) {
	case YOLO:
		return YOLO
	case PascalVOC:
		return PascalVOC
	case COCOBBox:
		return COCOBBox
	case Generic:
		return Generic
	default:
		return fallback
	}
}

// NeedsDims reports whether the representation is pixel-absolute and can only
// be normalized with known image dimensions.
func (r Representation) NeedsDims() bool {
	return r == PascalVOC || r == COCOBBox
}

// Box is a canonical fractional bounding box.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Dims are pixel dimensions of an image.
type Dims struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (d Dims) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clamp forces an already fractional box into the unit square.
// Each component is clamped into [0,1], then width and height are shrunk so
// the box does not overflow the right and bottom edges. Degenerate results are
// rejected.
func Clamp(x, y, w, h float64) (Box, bool) {
	if !finite(x, y, w, h) {
		return Box{}, false
	}
	x, y = clamp01(x), clamp01(y)
	w, h = clamp01(w), clamp01(h)
	if x+w > 1 {
		w = clamp01(1 - x)
	}
	if y+h > 1 {
		h = clamp01(1 - y)
	}
	if w <= 0 || h <= 0 {
		return Box{}, false
	}
	return Box{X: x, Y: y, Width: w, Height: h}, true
}

// Normalize interprets v according to rep and returns the canonical box.
//
// Pixel-absolute representations require valid dims; without them the box is
// rejected. Generic values are treated as fractional unless dims are valid and
// any coordinate exceeds 1, in which case all four are divided by dims.
func Normalize(rep Representation, v [4]float64, dims Dims) (Box, bool) {
	if !finite(v[:]...) {
		return Box{}, false
	}
	switch rep {
	case YOLO:
		cx, cy, w, h := v[0], v[1], v[2], v[3]
		return Clamp(cx-w/2, cy-h/2, w, h)
	case PascalVOC:
		if !dims.Valid() {
			return Box{}, false
		}
		w := v[2] - v[0]
		h := v[3] - v[1]
		if w <= 0 || h <= 0 {
			return Box{}, false
		}
		fw, fh := float64(dims.Width), float64(dims.Height)
		return Clamp(v[0]/fw, v[1]/fh, w/fw, h/fh)
	case COCOBBox:
		if !dims.Valid() {
			return Box{}, false
		}
		fw, fh := float64(dims.Width), float64(dims.Height)
		return Clamp(v[0]/fw, v[1]/fh, v[2]/fw, v[3]/fh)
	default:
		return normalizeGeneric(v[0], v[1], v[2], v[3], dims)
	}
}

func normalizeGeneric(x, y, w, h float64, dims Dims) (Box, bool) {
	if dims.Valid() && (x > 1 || y > 1 || w > 1 || h > 1) {
		fw, fh := float64(dims.Width), float64(dims.Height)
		x, y, w, h = x/fw, y/fh, w/fw, h/fh
	}
	return Clamp(x, y, w, h)
}
