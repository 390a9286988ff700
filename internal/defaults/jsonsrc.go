package defaults

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/spf13/cast"
)

// jsonEntry is one per-image record of a bulk JSON document.
type jsonEntry struct {
	Path  any               `json:"path"`
	Boxes []json.RawMessage `json:"boxes"`
}

// jsonBox is a parsed box waiting to be assigned to candidate files.
type jsonBox struct {
	id    string
	label string
	geom  geometry.Box
}

type jsonGroup struct {
	path  string
	boxes []jsonBox
	used  bool
}

// readJSONEntries decodes a top-level array, or the "annotations" or "data"
// array of a top-level object. Entries that are not objects are dropped.
func readJSONEntries(path string) ([]jsonEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the dataset's annotation source
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var raw []json.RawMessage
	switch {
	case len(data) > 0 && data[0] == '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case len(data) > 0 && data[0] == '{':
		var doc struct {
			Annotations json.RawMessage `json:"annotations"`
			Data        json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		raw = firstArray(doc.Annotations, doc.Data)
	default:
		return nil, fmt.Errorf("decode %s: expected a JSON array or object", path)
	}

	entries := make([]jsonEntry, 0, len(raw))
	for _, msg := range raw {
		var e jsonEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// firstArray returns the first candidate that decodes to a non-empty array.
func firstArray(candidates ...json.RawMessage) []json.RawMessage {
	for _, c := range candidates {
		var arr []json.RawMessage
		if len(c) == 0 || json.Unmarshal(c, &arr) != nil {
			continue
		}
		if len(arr) > 0 {
			return arr
		}
	}
	return nil
}

func boxLabel(rec map[string]any) string {
	s, err := cast.ToStringE(rec["label"])
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (r *run) parseJSONBox(msg json.RawMessage) (jsonBox, bool) {
	var rec map[string]any
	if err := json.Unmarshal(msg, &rec); err != nil {
		r.skip("skipping json box", "error", err)
		return jsonBox{}, false
	}
	label := boxLabel(rec)
	if label == "" {
		r.skip("skipping json box without label")
		return jsonBox{}, false
	}
	g, ok := geometry.FromRecord(rec, geometry.Dims{})
	if !ok {
		r.skip("skipping json box with invalid geometry", "label", label)
		return jsonBox{}, false
	}
	return jsonBox{
		id:    strings.TrimSpace(cast.ToString(rec["id"])),
		label: r.resolver.Resolve(label),
		geom:  g,
	}, true
}

func (r *run) jsonDefaults(src JSONSource, files []string) Result {
	out := Result{}
	if src.Path == "" || !isFile(src.Path) {
		r.logger.Warn("annotation file unavailable", "path", src.Path)
		return out
	}
	entries, err := readJSONEntries(src.Path)
	if err != nil {
		r.logger.Warn("cannot read annotation file", "path", src.Path, "error", err)
		return out
	}

	index := filekey.NewIndex[*jsonGroup]()
	var groups []*jsonGroup
	for _, e := range entries {
		raw := strings.TrimSpace(cast.ToString(e.Path))
		if raw == "" {
			r.skip("skipping json entry without path")
			continue
		}
		g := &jsonGroup{path: resolveAgainst(raw, r.dataRoot)}
		for _, msg := range e.Boxes {
			if b, ok := r.parseJSONBox(msg); ok {
				g.boxes = append(g.boxes, b)
			}
		}
		if len(g.boxes) == 0 {
			continue
		}
		index.Add(g.path, g)
		groups = append(groups, g)
	}
	if index.Len() == 0 {
		return out
	}

	for _, file := range files {
		if r.ctx.Err() != nil {
			break
		}
		matched := index.LookupPathOrBase(file)
		if len(matched) == 0 {
			continue
		}
		var boxes []Box
		for _, g := range matched {
			g.used = true
			for _, b := range g.boxes {
				boxes = append(boxes, r.newBox("default-json", b.id, b.label, b.geom))
			}
		}
		out[filekey.Normalize(file)] = boxes
	}

	for _, g := range groups {
		if !g.used {
			r.unmatched(g.path)
		}
	}
	return out
}

func (r *run) jsonLabels(src JSONSource, add func(string)) {
	if src.Path == "" || !isFile(src.Path) {
		return
	}
	entries, err := readJSONEntries(src.Path)
	if err != nil {
		return
	}
	for _, e := range entries {
		for _, msg := range e.Boxes {
			var rec map[string]any
			if json.Unmarshal(msg, &rec) != nil {
				continue
			}
			if label := boxLabel(rec); label != "" {
				add(r.resolver.Resolve(label))
			}
		}
	}
}
