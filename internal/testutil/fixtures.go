package testutil

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// DatasetFixture is an on-disk dataset with an image root and an annotation
// root side by side.
type DatasetFixture struct {
	Root       string
	ImageRoot  string
	LabelsRoot string
	Files      []string
}

// NewDatasetFixture creates the directory layout under a fresh temp dir.
func NewDatasetFixture(t *testing.T) *DatasetFixture {
	t.Helper()
	root := CreateTempDir(t)
	fx := &DatasetFixture{
		Root:       root,
		ImageRoot:  filepath.Join(root, "images"),
		LabelsRoot: filepath.Join(root, "labels"),
	}
	require.NoError(t, EnsureDir(fx.ImageRoot))
	require.NoError(t, EnsureDir(fx.LabelsRoot))
	return fx
}

// AddImage writes a decodable image at rel under the image root and records it
// as a candidate file.
func (fx *DatasetFixture) AddImage(t *testing.T, rel string, width, height int) string {
	t.Helper()
	p := WriteImage(t, filepath.Join(fx.ImageRoot, filepath.FromSlash(rel)), width, height)
	fx.Files = append(fx.Files, p)
	return p
}

// AddPlaceholder records a candidate file whose contents cannot be decoded.
func (fx *DatasetFixture) AddPlaceholder(t *testing.T, rel string) string {
	t.Helper()
	p := WritePlaceholder(t, filepath.Join(fx.ImageRoot, filepath.FromSlash(rel)))
	fx.Files = append(fx.Files, p)
	return p
}

// WriteSidecar writes a sidecar annotation file at rel under the labels root.
func (fx *DatasetFixture) WriteSidecar(t *testing.T, rel string, lines ...string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(fx.LabelsRoot, filepath.FromSlash(rel)), strings.Join(lines, "\n")+"\n")
}

// VOCObject is one <object> of a Pascal-VOC document.
type VOCObject struct {
	Name                   string
	XMin, YMin, XMax, YMax string
}

// VOCDocument renders a Pascal-VOC annotation. Zero width/height omit <size>.
func VOCDocument(width, height int, objects ...VOCObject) string {
	var b strings.Builder
	b.WriteString("<annotation>\n")
	if width > 0 || height > 0 {
		fmt.Fprintf(&b, "  <size><width>%d</width><height>%d</height><depth>3</depth></size>\n", width, height)
	}
	for _, o := range objects {
		b.WriteString("  <object>\n")
		if o.Name != "" {
			fmt.Fprintf(&b, "    <name>%s</name>\n", o.Name)
		}
		if o.XMin != "" || o.YMin != "" || o.XMax != "" || o.YMax != "" {
			b.WriteString("    <bndbox>")
			if o.XMin != "" {
				fmt.Fprintf(&b, "<xmin>%s</xmin>", o.XMin)
			}
			if o.YMin != "" {
				fmt.Fprintf(&b, "<ymin>%s</ymin>", o.YMin)
			}
			if o.XMax != "" {
				fmt.Fprintf(&b, "<xmax>%s</xmax>", o.XMax)
			}
			if o.YMax != "" {
				fmt.Fprintf(&b, "<ymax>%s</ymax>", o.YMax)
			}
			b.WriteString("</bndbox>\n")
		}
		b.WriteString("  </object>\n")
	}
	b.WriteString("</annotation>\n")
	return b.String()
}

// WriteJSON marshals v to path.
func WriteJSON(t *testing.T, path string, v any) string {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	return WriteFile(t, path, string(data))
}

// WriteCSV writes a header row followed by rows to path.
func WriteCSV(t *testing.T, path string, header []string, rows ...[]string) string {
	t.Helper()
	var b strings.Builder
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(header))
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return WriteFile(t, path, b.String())
}
