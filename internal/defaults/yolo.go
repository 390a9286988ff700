package defaults

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/geometry"
)

// yoloLine is one "label cx cy w h" record.
type yoloLine struct {
	label  string
	coords [4]float64
}

// parseYOLOLine splits a sidecar line. Lines with fewer than five fields or
// non-numeric coordinates are rejected; extra fields are ignored.
func parseYOLOLine(line string) (yoloLine, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return yoloLine{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}
	out := yoloLine{label: fields[0]}
	for i := range out.coords {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return yoloLine{}, fmt.Errorf("coordinate %d: %w", i+1, err)
		}
		out.coords[i] = v
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: sidecar paths derive from the configured annotation root
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func (r *run) parseYOLO(file, sidecar string) []Box {
	lines, err := readLines(sidecar)
	if err != nil {
		r.logger.Debug("cannot read sidecar", "sidecar", sidecar, "error", err)
		return nil
	}

	var boxes []Box
	for idx, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		line, err := parseYOLOLine(raw)
		if err != nil {
			r.skip("skipping yolo line", "sidecar", sidecar, "line", idx+1, "error", err)
			continue
		}
		g, ok := geometry.Normalize(geometry.YOLO, line.coords, geometry.Dims{})
		if !ok {
			r.skip("skipping degenerate yolo box", "sidecar", sidecar, "line", idx+1)
			continue
		}
		box := r.newBox(fmt.Sprintf("default-%d", idx), "", r.resolver.Resolve(line.label), g)
		box.LabelIndex = line.label
		boxes = append(boxes, box)
	}
	return boxes
}

func (r *run) yoloLabels(sidecar string, add func(string)) {
	lines, err := readLines(sidecar)
	if err != nil {
		return
	}
	for _, raw := range lines {
		if line, err := parseYOLOLine(raw); err == nil {
			add(r.resolver.Resolve(line.label))
		}
	}
}
