// Package dataset reads dataset definition documents.
//
// A definition names the candidate files (a local folder plus glob patterns)
// and the annotation source their default boxes come from:
//
//	name: pets
//	class_names: [cat, dog]
//	data_source:
//	  type: local_folder
//	  config:
//	    path: ./images
//	    pattern: "*.jpg,*.png"
//	    recursive: true
//	annotation_source:
//	  format: folder
//	  config:
//	    path: labels
//	    label_map: {0: cat, 1: dog}
//
// JSON documents with the same shape are accepted as well.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/defaults"
	"github.com/MeKo-Tech/boxseed/internal/filekey"
	"github.com/MeKo-Tech/boxseed/internal/labels"
	"github.com/MeKo-Tech/boxseed/internal/scan"
	"gopkg.in/yaml.v3"
)

// LocalFolder is the only supported data source type.
const LocalFolder = "local_folder"

// ErrNoDataPath is returned when the data source has no folder path.
var ErrNoDataPath = errors.New("data_source.config.path is required")

// Definition is a parsed dataset definition.
type Definition struct {
	Name             string            `yaml:"name"`
	ClassNames       []string          `yaml:"class_names"`
	DataSource       DataSource        `yaml:"data_source"`
	AnnotationSource *AnnotationSource `yaml:"annotation_source"`

	// baseDir anchors a relative data path; it is the directory of the
	// definition file.
	baseDir string
}

// DataSource locates the candidate files.
type DataSource struct {
	Type   string           `yaml:"type"`
	Config DataSourceConfig `yaml:"config"`
}

// DataSourceConfig is the local folder scan configuration.
type DataSourceConfig struct {
	Path      string   `yaml:"path"`
	Pattern   Patterns `yaml:"pattern"`
	Exclude   Patterns `yaml:"exclude"`
	Recursive bool     `yaml:"recursive"`
}

// AnnotationSource is the raw annotation source block.
type AnnotationSource struct {
	Format string           `yaml:"format"`
	Config AnnotationConfig `yaml:"config"`
}

// AnnotationConfig mirrors defaults.SourceConfig with loosely typed label
// maps and the annotation_representation alias.
type AnnotationConfig struct {
	Path                     string         `yaml:"path"`
	Representation           string         `yaml:"representation"`
	AnnotationRepresentation string         `yaml:"annotation_representation"`
	FileExtension            string         `yaml:"file_extension"`
	LabelMap                 map[string]any `yaml:"label_map"`
	LabelMapFile             string         `yaml:"label_map_file"`
	ImageColumn              string         `yaml:"image_column"`
	AnnotationColumn         string         `yaml:"annotation_column"`
	LabelColumn              string         `yaml:"label_column"`
	NegativeValue            string         `yaml:"negative_value"`
}

// Patterns is a glob list written either as a YAML sequence or as one
// comma-separated string.
type Patterns []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Patterns) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		raw = strings.Split(node.Value, ",")
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: pattern must be a string or a list", node.Line)
	}
	out := make(Patterns, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*p = out
	return nil
}

// Load reads and validates the definition at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(filekey.Expand(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filekey.Expand(path))
	if err == nil {
		def.baseDir = filepath.Dir(abs)
	}
	return def, nil
}

// Parse decodes and validates a definition document. Relative data paths of
// a parsed definition are taken against the working directory.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty dataset definition")
		}
		return nil, fmt.Errorf("invalid dataset definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the parts of the definition the command line relies on.
// Annotation source problems are not errors: the engine treats them as a
// source without defaults.
func (d *Definition) Validate() error {
	typ := strings.ToLower(strings.TrimSpace(d.DataSource.Type))
	if typ != "" && typ != LocalFolder {
		return fmt.Errorf("unsupported data source type %q (only %s)", d.DataSource.Type, LocalFolder)
	}
	if strings.TrimSpace(d.DataSource.Config.Path) == "" {
		return ErrNoDataPath
	}
	return nil
}

// DataRoot returns the expanded, absolute data folder.
func (d *Definition) DataRoot() string {
	root := filekey.Expand(strings.TrimSpace(d.DataSource.Config.Path))
	if !filepath.IsAbs(root) && d.baseDir != "" {
		root = filepath.Join(d.baseDir, root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

// SourceConfig converts the annotation block into the engine configuration.
// A definition without an annotation source yields the zero value.
func (d *Definition) SourceConfig() defaults.SourceConfig {
	if d.AnnotationSource == nil {
		return defaults.SourceConfig{}
	}
	c := d.AnnotationSource.Config
	rep := c.Representation
	if strings.TrimSpace(rep) == "" {
		rep = c.AnnotationRepresentation
	}
	var labelMap labels.Map
	if len(c.LabelMap) > 0 {
		labelMap = labels.FromAny(c.LabelMap)
	}
	return defaults.SourceConfig{
		Format:           d.AnnotationSource.Format,
		Path:             c.Path,
		Representation:   rep,
		FileExtension:    c.FileExtension,
		LabelMap:         labelMap,
		LabelMapFile:     c.LabelMapFile,
		ImageColumn:      c.ImageColumn,
		AnnotationColumn: c.AnnotationColumn,
		LabelColumn:      c.LabelColumn,
		NegativeValue:    c.NegativeValue,
	}
}

// Dataset returns the engine's view of the definition.
func (d *Definition) Dataset() defaults.Dataset {
	return defaults.Dataset{
		Name:       d.Name,
		DataRoot:   d.DataRoot(),
		ClassNames: d.ClassNames,
		Source:     d.SourceConfig(),
	}
}

// ScanOptions returns the scan options of the data source. Without a
// pattern every supported image file is a candidate.
func (d *Definition) ScanOptions() scan.Options {
	return scan.Options{
		Recursive: d.DataSource.Config.Recursive,
		Include:   d.DataSource.Config.Pattern,
		Exclude:   d.DataSource.Config.Exclude,
	}
}

// Files lists the candidate files of the dataset.
func (d *Definition) Files() ([]string, error) {
	return scan.Files([]string{d.DataRoot()}, d.ScanOptions())
}
