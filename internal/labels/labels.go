// Package labels resolves raw annotation label tokens into display labels.
package labels

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Map is an index (or alias) to label mapping.
type Map map[string]string

// Merge overlays inline entries on top of external entries.
// Inline wins on key collision. Neither input is modified.
func Merge(external, inline Map) Map {
	out := make(Map, len(external)+len(inline))
	for k, v := range external {
		out[k] = v
	}
	for k, v := range inline {
		out[k] = v
	}
	return out
}

// FromAny converts a loosely typed label map (as decoded from YAML or JSON)
// into a Map. Keys and values are stringified.
func FromAny(m map[string]any) Map {
	out := make(Map, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// Values returns the non-empty labels of the map ordered by key, numeric keys
// first in numeric order.
func (m Map) Values() []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// ParseMap reads a line-oriented label map. Each non-blank line not starting
// with '#' is split on the first ':' when present, otherwise on the first run
// of whitespace. Lines without both a key and a value are skipped.
func ParseMap(r io.Reader) Map {
	out := Map{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var key, value string
		if i := strings.Index(line, ":"); i >= 0 {
			key, value = line[:i], line[i+1:]
		} else {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			key = fields[0]
			value = strings.TrimSpace(line[len(fields[0]):])
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// namesDocument is the Ultralytics dataset YAML layout. names is either a
// list (index = position) or an index to name mapping.
type namesDocument struct {
	Names yaml.Node `yaml:"names"`
}

// ParseNamesYAML reads the names section of a YOLO dataset YAML file.
func ParseNamesYAML(data []byte) (Map, error) {
	var doc namesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse names yaml: %w", err)
	}
	out := Map{}
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode names list: %w", err)
		}
		for i, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out[strconv.Itoa(i)] = n
			}
		}
	case yaml.MappingNode:
		var names map[string]string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, fmt.Errorf("decode names map: %w", err)
		}
		for k, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out[strings.TrimSpace(k)] = n
			}
		}
	}
	return out, nil
}

// ReadMapFile reads an external label map file. Files ending in .yaml or .yml
// are read as a dataset names document; anything else uses ParseMap.
func ReadMapFile(path string) (Map, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: label map path comes from dataset configuration
	if err != nil {
		return nil, fmt.Errorf("read label map %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseNamesYAML(data)
	default:
		return ParseMap(strings.NewReader(string(data))), nil
	}
}

// LoadMapFile is ReadMapFile that degrades to an empty map on any failure.
// An empty path yields an empty map without logging.
func LoadMapFile(path string, logger *slog.Logger) Map {
	if path == "" {
		return Map{}
	}
	m, err := ReadMapFile(path)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("label map file unavailable, ignoring", "path", path, "error", err)
		return Map{}
	}
	return m
}
