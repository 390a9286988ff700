package defaults

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/MeKo-Tech/boxseed/internal/labels"
	"github.com/MeKo-Tech/boxseed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownFormatYieldsEmpty(t *testing.T) {
	for _, format := range []string{"", "coco", "parquet"} {
		t.Run(format, func(t *testing.T) {
			ds := Dataset{Name: "x", Source: SourceConfig{Format: format, Path: "/tmp"}}
			res := DefaultsForFiles(ds, []string{"/tmp/a.jpg"})
			assert.NotNil(t, res)
			assert.Empty(t, res)
			assert.Equal(t, []string{}, LabelNamesFromSource(ds))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat(" Folder ")
	assert.True(t, ok)
	assert.Equal(t, FormatFolder, f)

	_, ok = ParseFormat("xml")
	assert.False(t, ok)
}

func TestSourceConfigResolve(t *testing.T) {
	tests := []struct {
		name string
		cfg  SourceConfig
		want Source
	}{
		{
			name: "folder defaults to yolo txt",
			cfg:  SourceConfig{Format: "folder", Path: "labels"},
			want: FolderSource{Root: "/data/labels", Extension: ".txt", Representation: geometry.YOLO},
		},
		{
			name: "pascal forces xml",
			cfg:  SourceConfig{Format: "folder", Path: "/abs", Representation: "Pascal_VOC", FileExtension: ".txt"},
			want: FolderSource{Root: "/abs", Extension: ".xml", Representation: geometry.PascalVOC},
		},
		{
			name: "extension gains dot",
			cfg:  SourceConfig{Format: "folder", Path: "l", FileExtension: "xml"},
			want: FolderSource{Root: "/data/l", Extension: ".xml", Representation: geometry.YOLO},
		},
		{
			name: "json",
			cfg:  SourceConfig{Format: "JSON", Path: "ann.json"},
			want: JSONSource{Path: "/data/ann.json"},
		},
		{
			name: "csv",
			cfg: SourceConfig{
				Format: "csv", Path: "/abs/ann.csv", Representation: "coco_bbox",
				ImageColumn: " image ", AnnotationColumn: "bbox", NegativeValue: " none ",
			},
			want: CSVSource{
				Path: "/abs/ann.csv", ImageColumn: "image", AnnotationColumn: "bbox",
				NegativeValue: "none", Representation: geometry.COCOBBox,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, ok := tt.cfg.Resolve("/data")
			require.True(t, ok)
			assert.Equal(t, tt.want, src)
			assert.Equal(t, tt.want.Format(), src.Format())
		})
	}

	_, ok := SourceConfig{Format: "nope"}.Resolve("/data")
	assert.False(t, ok)
}

func TestFolderSourceIsVOC(t *testing.T) {
	assert.True(t, FolderSource{Extension: ".XML", Representation: geometry.YOLO}.IsVOC())
	assert.True(t, FolderSource{Extension: ".txt", Representation: geometry.PascalVOC}.IsVOC())
	assert.False(t, FolderSource{Extension: ".txt", Representation: geometry.YOLO}.IsVOC())
}

func TestNegativeHelpers(t *testing.T) {
	neg := NegativePlaceholder("")
	assert.Equal(t, DefaultNegativeLabel, neg.Label)
	assert.True(t, neg.Negative)
	assert.Regexp(t, `^default-negative-`, neg.ID)

	boxes := []Box{{ID: "a", Label: "cat", Width: 0.1, Height: 0.1}, neg}
	assert.True(t, HasNegative(boxes))
	assert.Equal(t, []Box{boxes[0]}, StripNegatives(boxes))
	assert.False(t, HasNegative(StripNegatives(boxes)))
}

func TestFolderLabelNamesFromLabelMap(t *testing.T) {
	fx := testutil.NewDatasetFixture(t)
	fx.WriteSidecar(t, "a.txt", "7 0.5 0.5 0.2 0.2")

	ds := folderDataset(fx, SourceConfig{LabelMap: labels.Map{"1": "dog", "0": "cat", "2": ""}})
	assert.Equal(t, []string{"cat", "dog"}, LabelNamesFromSource(ds))
}

func TestFolderLabelNamesFromSidecars(t *testing.T) {
	fx := testutil.NewDatasetFixture(t)
	fx.WriteSidecar(t, "a.txt", "0 0.5 0.5 0.2 0.2", "1 0.5 0.5 0.2 0.2")
	fx.WriteSidecar(t, "sub/b.txt", "1 0.5 0.5 0.2 0.2", "junk")
	fx.WriteSidecar(t, "notes.md", "5 0.5 0.5 0.2 0.2")

	ds := folderDataset(fx, SourceConfig{})
	ds.ClassNames = []string{"zero"}
	assert.Equal(t, []string{"1", "zero"}, LabelNamesFromSource(ds))
}

func TestVOCLabelNamesFromSidecars(t *testing.T) {
	fx := testutil.NewDatasetFixture(t)
	fx.WriteSidecar(t, "a.xml", testutil.VOCDocument(10, 10,
		testutil.VOCObject{Name: "truck"},
		testutil.VOCObject{Name: " car "},
	))
	fx.WriteSidecar(t, "b.xml", testutil.VOCDocument(10, 10, testutil.VOCObject{Name: "car"}))

	ds := folderDataset(fx, SourceConfig{Representation: "pascal_voc"})
	assert.Equal(t, []string{"car", "truck"}, LabelNamesFromSource(ds))
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(WithWorkers(0), WithLogger(nil), WithObserver(nil))
	assert.Equal(t, 1, e.workers)
	assert.NotNil(t, e.logger)
	assert.IsType(t, nopObserver{}, e.observer)

	e = NewEngine(WithWorkers(8))
	assert.Equal(t, 8, e.workers)
}

func TestEngineNilContext(t *testing.T) {
	fx := testutil.NewDatasetFixture(t)
	img := fx.AddPlaceholder(t, "a.jpg")
	fx.WriteSidecar(t, "a.txt", "0 0.5 0.5 0.2 0.2")

	//nolint:staticcheck // SA1012: nil context is tolerated
	res := NewEngine().DefaultsForFiles(nil, folderDataset(fx, SourceConfig{}), fx.Files)
	assert.Len(t, res.For(img), 1)
}

func TestResultForAcceptsPathSpellings(t *testing.T) {
	res := Result{}
	res["/data/set/img.jpg"] = []Box{{ID: "a"}}
	assert.Len(t, res.For("/data/set/IMG.JPG"), 1)
	assert.Len(t, res.For("/data/set/./img.jpg"), 1)
	assert.Nil(t, res.For("/data/set/other.jpg"))
}

func TestClaimIDUniqueness(t *testing.T) {
	r := NewEngine().newRun(context.Background(), Dataset{}, FormatJSON)
	first := r.claimID("p", "same")
	second := r.claimID("p", "same")
	assert.Equal(t, "same", first)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^p-`, second)
}
