package defaults

import (
	"errors"
	"io"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"github.com/MeKo-Tech/boxseed/internal/geometry"
)

const (
	fallbackImageColumn = "path"
	fallbackLabelColumn = "label"
)

// needsDims reports whether decoding value in rep requires pixel dimensions.
// Generic values only do when the numbers they decode to look pixel-absolute.
func needsDims(rep geometry.Representation, value string) bool {
	if rep.NeedsDims() {
		return true
	}
	if rep != geometry.Generic {
		return false
	}
	v, ok := geometry.GenericValues(value)
	if !ok {
		return false
	}
	for _, n := range v {
		if n > 1 {
			return true
		}
	}
	return false
}

func (s CSVSource) isNegative(label string) bool {
	return s.NegativeValue != "" && strings.EqualFold(label, s.NegativeValue)
}

func (r *run) csvDefaults(src CSVSource, files []string) Result {
	out := Result{}
	if src.ImageColumn == "" || src.AnnotationColumn == "" {
		r.logger.Warn("csv source needs image_column and annotation_column",
			"image_column", src.ImageColumn, "annotation_column", src.AnnotationColumn)
		return out
	}
	if src.Path == "" || !isFile(src.Path) {
		r.logger.Warn("annotation file unavailable", "path", src.Path)
		return out
	}
	table, err := openTable(src.Path)
	if err != nil {
		r.logger.Warn("cannot read annotation file", "path", src.Path, "error", err)
		return out
	}
	defer func() { _ = table.Close() }()

	if !hasColumn(table.Header(), src.ImageColumn, fallbackImageColumn) {
		r.logger.Warn("annotation file has no image column", "path", src.Path, "image_column", src.ImageColumn)
		return out
	}

	candidates := candidateIndex(files)
	for r.ctx.Err() == nil {
		row, err := table.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Warn("stopped reading annotation file", "path", src.Path, "error", err)
			}
			break
		}
		r.csvRow(src, row, candidates, out)
	}
	return out
}

func (r *run) csvRow(src CSVSource, row tableRow, candidates *filekey.Index[string], out Result) {
	raw := row.get(src.ImageColumn, fallbackImageColumn)
	if raw == "" {
		r.skip("skipping row without image reference", "path", src.Path)
		return
	}
	matched := candidates.Lookup(resolveAgainst(raw, r.dataRoot))
	if len(matched) == 0 {
		r.unmatched(raw)
		return
	}

	label := row.get(src.LabelColumn, fallbackLabelColumn)
	if label == "" {
		label = r.fallbackLabel()
	}

	if src.isNegative(label) {
		for _, file := range matched {
			key := filekey.Normalize(file)
			if !HasNegative(out[key]) {
				out[key] = append(out[key], r.negativeBox(label))
			}
		}
		return
	}

	value := row.get(src.AnnotationColumn)
	if value == "" {
		r.skip("skipping row without geometry", "image", raw)
		return
	}
	label = r.resolver.Resolve(label)

	for _, file := range matched {
		var dims geometry.Dims
		if needsDims(src.Representation, value) {
			d, err := r.dims.LookupErr(file)
			if err != nil && src.Representation.NeedsDims() {
				r.skip("skipping row without image size", "image", file, "error", err)
				continue
			}
			dims = d
		}
		g, ok := geometry.Decode(src.Representation, value, dims)
		if !ok {
			r.skip("skipping row with invalid geometry", "image", file, "value", value)
			continue
		}
		key := filekey.Normalize(file)
		out[key] = append(out[key], r.newBox("default-csv", "", label, g))
	}
}

func (r *run) csvLabels(src CSVSource, add func(string)) {
	if src.ImageColumn == "" || src.Path == "" || !isFile(src.Path) {
		return
	}
	table, err := openTable(src.Path)
	if err != nil {
		return
	}
	defer func() { _ = table.Close() }()

	for r.ctx.Err() == nil {
		row, err := table.Next()
		if err != nil {
			return
		}
		label := row.get(src.LabelColumn, fallbackLabelColumn)
		if label == "" || src.isNegative(label) {
			continue
		}
		add(r.resolver.Resolve(label))
	}
}
