// Package defaults resolves pre-existing object-detection annotation sources
// (YOLO text sidecars, Pascal-VOC XML sidecars, bulk JSON and bulk CSV/XLSX)
// into canonical fractional bounding boxes keyed by dataset file.
//
// Resolution never fails: unreadable sources, malformed records and
// unmatched files simply contribute no boxes.
package defaults

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/MeKo-Tech/boxseed/internal/labels"
	"github.com/google/uuid"
)

// Box is a canonical default annotation.
type Box struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	LabelIndex string  `json:"label_index,omitempty"`
	Negative   bool    `json:"negative,omitempty"`
}

// DefaultNegativeLabel labels a negative placeholder without a row label.
const DefaultNegativeLabel = "negative"

// NegativePlaceholder returns the zero-area box that asserts an image holds
// no objects.
func NegativePlaceholder(label string) Box {
	if label == "" {
		label = DefaultNegativeLabel
	}
	return Box{
		ID:       "default-negative-" + uuid.NewString(),
		Label:    label,
		Negative: true,
	}
}

// StripNegatives returns boxes without negative placeholders.
func StripNegatives(boxes []Box) []Box {
	out := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if !b.Negative {
			out = append(out, b)
		}
	}
	return out
}

// HasNegative reports whether boxes contain a negative placeholder.
func HasNegative(boxes []Box) bool {
	for _, b := range boxes {
		if b.Negative {
			return true
		}
	}
	return false
}

// Result maps normalized candidate file keys to their default boxes.
// A missing key means the file has no defaults.
type Result map[string][]Box

// For returns the boxes of a file given in any path spelling the key
// normalization accepts.
func (r Result) For(path string) []Box {
	return r[filekey.Normalize(path)]
}

// Format is the declared layout of an annotation source.
type Format string

const (
	FormatFolder Format = "folder"
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
)

// ParseFormat maps a configuration string onto a Format.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatFolder, FormatJSON, FormatCSV:
		return f, true
	default:
		return "", false
	}
}

// SourceConfig is the annotation source configuration of a dataset.
//
//nolint:lll
type SourceConfig struct {
	Format         string     `mapstructure:"format" yaml:"format" json:"format"`
	Path           string     `mapstructure:"path" yaml:"path" json:"path"`
	Representation string     `mapstructure:"representation" yaml:"representation" json:"representation"`
	FileExtension  string     `mapstructure:"file_extension" yaml:"file_extension" json:"file_extension"`
	LabelMap       labels.Map `mapstructure:"label_map" yaml:"label_map" json:"label_map"`
	LabelMapFile   string     `mapstructure:"label_map_file" yaml:"label_map_file" json:"label_map_file"`

	ImageColumn      string `mapstructure:"image_column" yaml:"image_column" json:"image_column"`
	AnnotationColumn string `mapstructure:"annotation_column" yaml:"annotation_column" json:"annotation_column"`
	LabelColumn      string `mapstructure:"label_column" yaml:"label_column" json:"label_column"`
	NegativeValue    string `mapstructure:"negative_value" yaml:"negative_value" json:"negative_value"`
}

// Dataset is the read-only view of a dataset the engine needs.
type Dataset struct {
	Name       string
	DataRoot   string
	ClassNames []string
	Source     SourceConfig
}

// Source is a resolved annotation source. The concrete type is one of
// FolderSource, JSONSource or CSVSource.
type Source interface {
	Format() Format
}

// FolderSource reads one sidecar file per image under Root.
type FolderSource struct {
	Root           string
	Extension      string
	Representation geometry.Representation
}

// Format implements Source.
func (FolderSource) Format() Format { return FormatFolder }

// IsVOC reports whether sidecars are Pascal-VOC XML documents.
func (s FolderSource) IsVOC() bool {
	return s.Representation == geometry.PascalVOC || strings.EqualFold(s.Extension, ".xml")
}

// JSONSource reads a single JSON document of per-image box lists.
type JSONSource struct {
	Path string
}

// Format implements Source.
func (JSONSource) Format() Format { return FormatJSON }

// CSVSource reads one annotation per row of a CSV file or XLSX workbook.
type CSVSource struct {
	Path             string
	ImageColumn      string
	AnnotationColumn string
	LabelColumn      string
	NegativeValue    string
	Representation   geometry.Representation
}

// Format implements Source.
func (CSVSource) Format() Format { return FormatCSV }

// Resolve turns the configuration into a concrete Source. Paths are expanded
// and relative paths are taken against dataRoot. Unknown formats yield false.
func (c SourceConfig) Resolve(dataRoot string) (Source, bool) {
	format, ok := ParseFormat(c.Format)
	if !ok {
		return nil, false
	}
	switch format {
	case FormatFolder:
		rep := geometry.ParseRepresentation(c.Representation, geometry.YOLO)
		return FolderSource{
			Root:           resolveAgainst(c.Path, dataRoot),
			Extension:      sidecarExtension(c.FileExtension, rep),
			Representation: rep,
		}, true
	case FormatJSON:
		return JSONSource{Path: resolveAgainst(c.Path, dataRoot)}, true
	case FormatCSV:
		return CSVSource{
			Path:             resolveCSVPath(c.Path, dataRoot),
			ImageColumn:      strings.TrimSpace(c.ImageColumn),
			AnnotationColumn: strings.TrimSpace(c.AnnotationColumn),
			LabelColumn:      strings.TrimSpace(c.LabelColumn),
			NegativeValue:    strings.TrimSpace(c.NegativeValue),
			Representation:   geometry.ParseRepresentation(c.Representation, geometry.YOLO),
		}, true
	}
	return nil, false
}

func sidecarExtension(ext string, rep geometry.Representation) string {
	if rep == geometry.PascalVOC {
		return ".xml"
	}
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return ".txt"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// resolveAgainst expands p and joins it with root when relative.
func resolveAgainst(p, root string) string {
	p = filekey.Expand(p)
	if p == "" {
		return ""
	}
	if !filepath.IsAbs(p) && root != "" {
		p = filepath.Join(filekey.Expand(root), p)
	}
	return filepath.Clean(p)
}

// resolveCSVPath prefers an existing file under the data root, then an
// existing file relative to the working directory, then the data-root join.
func resolveCSVPath(p, root string) string {
	p = filekey.Expand(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	root = filekey.Expand(root)
	if root != "" {
		joined := filepath.Join(root, p)
		if exists(joined) {
			return joined
		}
	}
	if exists(p) || root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
