package defaults

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/geometry"
)

type vocAnnotation struct {
	XMLName xml.Name    `xml:"annotation"`
	Size    *vocSize    `xml:"size"`
	Objects []vocObject `xml:"object"`
}

type vocSize struct {
	Width  string `xml:"width"`
	Height string `xml:"height"`
}

type vocObject struct {
	Name   string     `xml:"name"`
	BndBox *vocBndBox `xml:"bndbox"`
}

type vocBndBox struct {
	XMin *string `xml:"xmin"`
	YMin *string `xml:"ymin"`
	XMax *string `xml:"xmax"`
	YMax *string `xml:"ymax"`
}

var errIncompleteBndBox = errors.New("incomplete bndbox")

// corners returns xmin, ymin, xmax, ymax.
func (b *vocBndBox) corners() ([4]float64, error) {
	var out [4]float64
	if b == nil {
		return out, errIncompleteBndBox
	}
	for i, p := range []*string{b.XMin, b.YMin, b.XMax, b.YMax} {
		if p == nil {
			return out, errIncompleteBndBox
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(*p), 64)
		if err != nil {
			return out, fmt.Errorf("bndbox value %q: %w", *p, err)
		}
		out[i] = v
	}
	return out, nil
}

// dims returns the declared image size, if usable.
func (s *vocSize) dims() (geometry.Dims, bool) {
	if s == nil {
		return geometry.Dims{}, false
	}
	w, errW := strconv.ParseFloat(strings.TrimSpace(s.Width), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(s.Height), 64)
	if errW != nil || errH != nil {
		return geometry.Dims{}, false
	}
	d := geometry.Dims{Width: int(math.Round(w)), Height: int(math.Round(h))}
	return d, d.Valid()
}

func readVOC(path string) (*vocAnnotation, error) {
	f, err := os.Open(path) //nolint:gosec // G304: sidecar paths derive from the configured annotation root
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var doc vocAnnotation
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}

func (r *run) parseVOC(file, sidecar string) []Box {
	doc, err := readVOC(sidecar)
	if err != nil {
		r.skip("skipping unreadable voc sidecar", "sidecar", sidecar, "error", err)
		return nil
	}
	if len(doc.Objects) == 0 {
		return nil
	}

	dims, ok := doc.Size.dims()
	if !ok {
		dims, err = r.dims.LookupErr(file)
		if err != nil {
			r.skip("skipping voc sidecar without usable image size", "sidecar", sidecar, "error", err)
			return nil
		}
	}

	var boxes []Box
	for i, obj := range doc.Objects {
		name := strings.TrimSpace(obj.Name)
		if name == "" {
			r.skip("skipping voc object without name", "sidecar", sidecar, "object", i)
			continue
		}
		corners, err := obj.BndBox.corners()
		if err != nil {
			r.skip("skipping voc object", "sidecar", sidecar, "object", i, "error", err)
			continue
		}
		g, ok := geometry.Normalize(geometry.PascalVOC, corners, dims)
		if !ok {
			r.skip("skipping degenerate voc box", "sidecar", sidecar, "object", i)
			continue
		}
		boxes = append(boxes, r.newBox(fmt.Sprintf("default-voc-%d", i), "", r.resolver.Resolve(name), g))
	}
	return boxes
}

func (r *run) vocLabels(sidecar string, add func(string)) {
	doc, err := readVOC(sidecar)
	if err != nil {
		return
	}
	for _, obj := range doc.Objects {
		if name := strings.TrimSpace(obj.Name); name != "" {
			add(r.resolver.Resolve(name))
		}
	}
}
