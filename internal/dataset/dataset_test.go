package dataset

import (
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/boxseed/internal/defaults"
	"github.com/MeKo-Tech/boxseed/internal/labels"
	"github.com/MeKo-Tech/boxseed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFolderDefinition(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, filepath.Join(dir, "pets.yaml"), `
name: pets
class_names: [cat, dog]
data_source:
  type: local_folder
  config:
    path: images
    pattern: "*.jpg, *.png"
    recursive: true
annotation_source:
  format: folder
  config:
    path: labels
    file_extension: txt
    label_map:
      0: cat
      1: dog
`)

	def, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pets", def.Name)
	assert.Equal(t, filepath.Join(dir, "images"), def.DataRoot())
	assert.Equal(t, []string{"*.jpg", "*.png"}, def.ScanOptions().Include)
	assert.True(t, def.ScanOptions().Recursive)

	ds := def.Dataset()
	assert.Equal(t, []string{"cat", "dog"}, ds.ClassNames)
	assert.Equal(t, defaults.SourceConfig{
		Format:        "folder",
		Path:          "labels",
		FileExtension: "txt",
		LabelMap:      labels.Map{"0": "cat", "1": "dog"},
	}, ds.Source)
}

func TestRepresentationAlias(t *testing.T) {
	def, err := Parse([]byte(`
data_source: {config: {path: /data}}
annotation_source:
  format: csv
  config:
    path: ann.csv
    image_column: image
    annotation_column: bbox
    annotation_representation: pascal_voc
    negative_value: none
`))
	require.NoError(t, err)
	src := def.SourceConfig()
	assert.Equal(t, "pascal_voc", src.Representation)
	assert.Equal(t, "image", src.ImageColumn)
	assert.Equal(t, "none", src.NegativeValue)

	def.AnnotationSource.Config.Representation = "coco"
	assert.Equal(t, "coco", def.SourceConfig().Representation)
}

func TestParseJSONDefinition(t *testing.T) {
	def, err := Parse([]byte(`{
  "name": "shelf",
  "data_source": {"type": "local_folder", "config": {"path": "/srv/shelf", "pattern": ["*.jpg"], "exclude": "thumb_*"}},
  "annotation_source": {"format": "json", "config": {"path": "ann.json"}}
}`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/shelf", def.DataRoot())
	assert.Equal(t, []string{"*.jpg"}, def.ScanOptions().Include)
	assert.Equal(t, []string{"thumb_*"}, def.ScanOptions().Exclude)
	assert.Equal(t, "json", def.Dataset().Source.Format)
}

func TestWithoutAnnotationSource(t *testing.T) {
	def, err := Parse([]byte("data_source: {config: {path: /data}}\n"))
	require.NoError(t, err)
	assert.Equal(t, defaults.SourceConfig{}, def.SourceConfig())
	assert.Empty(t, defaults.DefaultsForFiles(def.Dataset(), []string{"/data/a.jpg"}))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"empty", "", "empty dataset definition"},
		{"malformed", "name: [unclosed", "invalid dataset definition"},
		{"missing path", "name: x\n", "data_source.config.path is required"},
		{"remote source", "data_source: {type: s3, config: {path: bucket}}\n", "unsupported data source type"},
		{"bad pattern", "data_source: {config: {path: /d, pattern: {a: b}}}\n", "pattern must be a string or a list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read dataset definition")
}

func TestFilesScansDataRoot(t *testing.T) {
	fx := testutil.NewDatasetFixture(t)
	fx.AddPlaceholder(t, "a.jpg")
	fx.AddPlaceholder(t, "b.PNG")
	fx.AddPlaceholder(t, "nested/c.jpg")
	testutil.WriteFile(t, filepath.Join(fx.ImageRoot, "notes.txt"), "x")

	path := testutil.WriteFile(t, filepath.Join(fx.Root, "ds.yaml"), `
data_source:
  config:
    path: images
`)
	def, err := Load(path)
	require.NoError(t, err)

	files, err := def.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fx.ImageRoot, "a.jpg"),
		filepath.Join(fx.ImageRoot, "b.PNG"),
	}, files)

	def.DataSource.Config.Recursive = true
	def.DataSource.Config.Pattern = Patterns{"*.jpg"}
	files, err = def.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fx.ImageRoot, "a.jpg"),
		filepath.Join(fx.ImageRoot, "nested", "c.jpg"),
	}, files)
}

func TestFilesMissingRoot(t *testing.T) {
	def, err := Parse([]byte("data_source: {config: {path: /definitely/not/here}}\n"))
	require.NoError(t, err)
	_, err = def.Files()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}
