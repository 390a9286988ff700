package defaults

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/boxseed/internal/geometry"
	"github.com/MeKo-Tech/boxseed/internal/labels"
	"github.com/MeKo-Tech/boxseed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func csvDataset(root, path string, src SourceConfig) Dataset {
	src.Format = "csv"
	src.Path = path
	if src.ImageColumn == "" {
		src.ImageColumn = "image"
	}
	if src.AnnotationColumn == "" {
		src.AnnotationColumn = "bbox"
	}
	return Dataset{Name: "csv-fixture", DataRoot: root, Source: src}
}

func TestCSVDefaultsYOLO(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "class"},
		[]string{"images/a.jpg", "0.5 0.5 0.4 0.2", "0"},
		[]string{"images/a.jpg", "[0.25, 0.25, 0.1, 0.1]", "dog"},
		[]string{"images/a.jpg", "0.5 0.5", "0"},
		[]string{"images/b.jpg", "0.5,0.5,0.2,0.2", ""},
	)

	a := filepath.Join(root, "images", "a.jpg")
	b := filepath.Join(root, "images", "b.jpg")
	ds := csvDataset(root, "ann.csv", SourceConfig{LabelColumn: "class", LabelMap: labels.Map{"0": "cat"}})
	ds.ClassNames = []string{"first"}
	res := DefaultsForFiles(ds, []string{a, b})

	boxes := res.For(a)
	require.Len(t, boxes, 2)
	assert.Equal(t, []string{"cat", "dog"}, labelsOf(boxes))
	assertBox(t, boxes[0], 0.3, 0.4, 0.4, 0.2)
	assertBox(t, boxes[1], 0.2, 0.2, 0.1, 0.1)
	assert.Regexp(t, `^default-csv-`, boxes[0].ID)

	require.Len(t, res.For(b), 1)
	assert.Equal(t, "first", res.For(b)[0].Label)
	assertCanonical(t, res)
	assertUniqueIDs(t, res)
}

func TestCSVNegativePlaceholderIdempotent(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "label"},
		[]string{"a.jpg", "", "none"},
		[]string{"a.jpg", "0.5 0.5 0.2 0.2", "NONE"},
		[]string{"b.jpg", "0.5 0.5 0.2 0.2", "cat"},
	)

	a := filepath.Join(root, "a.jpg")
	b := filepath.Join(root, "b.jpg")
	res := DefaultsForFiles(csvDataset(root, "ann.csv", SourceConfig{NegativeValue: "None"}), []string{a, b})

	boxes := res.For(a)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, countNegatives(boxes))
	assert.True(t, HasNegative(boxes))
	assert.Empty(t, StripNegatives(boxes))
	assert.Equal(t, "none", boxes[0].Label)
	assert.Zero(t, boxes[0].Width)
	assert.Regexp(t, `^default-negative-`, boxes[0].ID)

	assert.False(t, HasNegative(res.For(b)))
}

func TestCSVPixelRepresentations(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "label"},
		[]string{"a.jpg", "100 200 300 600", "car"},
	)
	a := filepath.Join(root, "a.jpg")

	tests := []struct {
		rep  string
		want [4]float64
	}{
		{"pascal_voc", [4]float64{0.1, 0.1, 0.2, 0.2}},
		{"coco_bbox", [4]float64{0.1, 0.1, 0.3, 0.3}},
		{"generic", [4]float64{0.1, 0.1, 0.3, 0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.rep, func(t *testing.T) {
			ds := csvDataset(root, "ann.csv", SourceConfig{Representation: tt.rep})
			res := NewEngine(WithDimensions(fixedDims(1000, 2000))).DefaultsForFiles(context.Background(), ds, []string{a})
			boxes := res.For(a)
			require.Len(t, boxes, 1)
			assertBox(t, boxes[0], tt.want[0], tt.want[1], tt.want[2], tt.want[3])
		})
	}
}

func TestCSVGenericStructuredValue(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "label"},
		[]string{"a.jpg", `{"x1": 300, "y1": 600, "x2": 100, "y2": 200}`, "car"},
		[]string{"a.jpg", `{"points": [[0.1, 0.1], [0.3, 0.2], [0.2, 0.4]]}`, "poly"},
	)
	a := filepath.Join(root, "a.jpg")

	ds := csvDataset(root, "ann.csv", SourceConfig{Representation: "generic"})
	res := NewEngine(WithDimensions(fixedDims(1000, 2000))).DefaultsForFiles(context.Background(), ds, []string{a})
	boxes := res.For(a)
	require.Len(t, boxes, 2)
	assertBox(t, boxes[0], 0.1, 0.1, 0.2, 0.2)
	assertBox(t, boxes[1], 0.1, 0.1, 0.2, 0.3)
}

func TestCSVFractionalGenericSkipsDimensionLookup(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "label"},
		[]string{"a.jpg", `{"x1": 0.1, "y1": 0.1, "x2": 0.3, "y2": 0.5}`, "car"},
	)
	a := filepath.Join(root, "a.jpg")

	lookups := 0
	dims := func(string) (geometry.Dims, error) {
		lookups++
		return geometry.Dims{Width: 100, Height: 100}, nil
	}
	ds := csvDataset(root, "ann.csv", SourceConfig{Representation: "generic"})
	res := NewEngine(WithDimensions(dims)).DefaultsForFiles(context.Background(), ds, []string{a})

	boxes := res.For(a)
	require.Len(t, boxes, 1)
	assertBox(t, boxes[0], 0.1, 0.1, 0.2, 0.4)
	assert.Zero(t, lookups)
}

func TestNeedsDims(t *testing.T) {
	tests := []struct {
		rep   geometry.Representation
		value string
		want  bool
	}{
		{geometry.PascalVOC, "0.1 0.1 0.2 0.2", true},
		{geometry.YOLO, "0.5 0.5 0.2 0.2", false},
		{geometry.Generic, `{"x2": 0.3, "y2": 0.5, "x1": 0.1, "y1": 0.1}`, false},
		{geometry.Generic, `{"bbox": [10, 20, 30, 40]}`, true},
		{geometry.Generic, "0.1 0.2 0.3 0.4 99", false},
		{geometry.Generic, "no numbers", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, needsDims(tt.rep, tt.value), "%s %s", tt.rep, tt.value)
	}
}

func TestCSVDimensionFailureSkipsOnlyThatFile(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "label"},
		[]string{"missing.jpg", "10 10 50 50", "car"},
		[]string{"real.png", "10 10 50 50", "car"},
	)
	missing := filepath.Join(root, "missing.jpg")
	onDisk := testutil.WriteImage(t, filepath.Join(root, "real.png"), 100, 100)

	obs := newCountingObserver()
	ds := csvDataset(root, "ann.csv", SourceConfig{Representation: "pascal_voc"})
	res := NewEngine(WithObserver(obs)).DefaultsForFiles(context.Background(), ds, []string{missing, onDisk})

	assert.False(t, hasKey(res, missing))
	boxes := res.For(onDisk)
	require.Len(t, boxes, 1)
	assertBox(t, boxes[0], 0.1, 0.1, 0.4, 0.4)
	assert.Equal(t, 1, obs.count(OutcomeSkipped))
}

func TestCSVColumnFallbacks(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"path", "bbox", "label"},
		[]string{"a.jpg", "0.5 0.5 0.2 0.2", "cat"},
	)
	a := filepath.Join(root, "a.jpg")

	res := DefaultsForFiles(csvDataset(root, "ann.csv", SourceConfig{LabelColumn: "absent"}), []string{a})
	assert.Equal(t, []string{"cat"}, labelsOf(res.For(a)))
}

func TestCSVStemAndBasenameMatch(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"image", "bbox", "label"},
		[]string{"/somewhere/else/IMG001.JPG", "0.5 0.5 0.2 0.2", "base"},
		[]string{"img002", "0.5 0.5 0.2 0.2", "stem"},
	)
	one := "/data/set/img001.jpg"
	two := "/data/set/img002.png"

	res := DefaultsForFiles(csvDataset(root, "ann.csv", SourceConfig{}), []string{one, two})
	assert.Equal(t, []string{"base"}, labelsOf(res.For(one)))
	assert.Equal(t, []string{"stem"}, labelsOf(res.For(two)))
}

func TestCSVConfigurationErrors(t *testing.T) {
	root := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"),
		[]string{"file", "bbox"},
		[]string{"a.jpg", "0.5 0.5 0.2 0.2"},
	)
	a := filepath.Join(root, "a.jpg")

	t.Run("missing annotation column config", func(t *testing.T) {
		ds := csvDataset(root, "ann.csv", SourceConfig{})
		ds.Source.AnnotationColumn = " "
		assert.Empty(t, DefaultsForFiles(ds, []string{a}))
	})
	t.Run("header lacks image column", func(t *testing.T) {
		assert.Empty(t, DefaultsForFiles(csvDataset(root, "ann.csv", SourceConfig{}), []string{a}))
	})
	t.Run("missing file", func(t *testing.T) {
		assert.Empty(t, DefaultsForFiles(csvDataset(root, "nope.csv", SourceConfig{}), []string{a}))
	})
}

func TestCSVPathResolution(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "sub", "ann.csv")
	assert.Equal(t, abs, resolveCSVPath(abs, "/elsewhere"))

	testutil.WriteFile(t, abs, "image,bbox\n")
	assert.Equal(t, abs, resolveCSVPath("sub/ann.csv", root))
	assert.Equal(t, filepath.Join(root, "missing.csv"), resolveCSVPath("missing.csv", root))
	assert.Empty(t, resolveCSVPath("", root))
}

func TestCSVByteOrderMarkAndRaggedRows(t *testing.T) {
	root := t.TempDir()
	path := testutil.WriteFile(t, filepath.Join(root, "ann.csv"),
		"\ufeffimage,bbox,label\n"+
			"a.jpg,0.5 0.5 0.2 0.2\n"+
			"a.jpg,0.3 0.3 0.2 0.2,dog,extra\n")
	a := filepath.Join(root, "a.jpg")

	ds := csvDataset(root, path, SourceConfig{})
	ds.ClassNames = []string{"fallback"}
	res := DefaultsForFiles(ds, []string{a})
	assert.Equal(t, []string{"fallback", "dog"}, labelsOf(res.For(a)))
}

func writeWorkbook(t *testing.T, path string, rows ...[]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXDefaults(t *testing.T) {
	root := t.TempDir()
	writeWorkbook(t, filepath.Join(root, "ann.xlsx"),
		[]any{"image", "bbox", "label"},
		[]any{"a.jpg", "0.5 0.5 0.4 0.2", "cat"},
		[]any{"a.jpg", "", "empty"},
		[]any{"b.jpg", "0.5 0.5 0.2 0.2", "neg"},
	)

	a := filepath.Join(root, "a.jpg")
	b := filepath.Join(root, "b.jpg")
	res := DefaultsForFiles(csvDataset(root, "ann.xlsx", SourceConfig{NegativeValue: "neg"}), []string{a, b})

	boxes := res.For(a)
	require.Len(t, boxes, 1)
	assert.Equal(t, "cat", boxes[0].Label)
	assertBox(t, boxes[0], 0.3, 0.4, 0.4, 0.2)
	assert.True(t, HasNegative(res.For(b)))
}

func TestCSVLabelNames(t *testing.T) {
	root := t.TempDir()
	rows := [][]string{
		{"a.jpg", "0.5 0.5 0.2 0.2", "dog"},
		{"b.jpg", "0.5 0.5 0.2 0.2", "0"},
		{"c.jpg", "", "NEG"},
		{"d.jpg", "0.5 0.5 0.2 0.2", ""},
		{"e.jpg", "0.5 0.5 0.2 0.2", "dog"},
	}
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"), []string{"image", "bbox", "label"}, rows...)

	ds := csvDataset(root, "ann.csv", SourceConfig{NegativeValue: "neg", LabelMap: labels.Map{"0": "cat"}})
	assert.Equal(t, []string{"cat", "dog"}, LabelNamesFromSource(ds))

	ds.Source.ImageColumn = " "
	assert.Equal(t, []string{}, LabelNamesFromSource(ds))
}

func TestCSVLargeFileCancellation(t *testing.T) {
	root := t.TempDir()
	rows := make([][]string, 0, 200)
	files := make([]string, 0, 200)
	for i := range 200 {
		name := fmt.Sprintf("img%03d.jpg", i)
		rows = append(rows, []string{name, "0.5 0.5 0.2 0.2", "cat"})
		files = append(files, filepath.Join(root, name))
	}
	testutil.WriteCSV(t, filepath.Join(root, "ann.csv"), []string{"image", "bbox", "label"}, rows...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewEngine().DefaultsForFiles(ctx, csvDataset(root, "ann.csv", SourceConfig{}), files)
	assert.Empty(t, res)

	res = NewEngine().DefaultsForFiles(context.Background(), csvDataset(root, "ann.csv", SourceConfig{}), files)
	assert.Len(t, res, 200)
}
