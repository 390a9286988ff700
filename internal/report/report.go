// Package report renders resolved default annotations for the command line.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/boxseed/internal/defaults"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

// ValidFormat reports whether f names a supported output format.
func ValidFormat(f string) bool {
	switch f {
	case FormatJSON, FormatCSV, FormatText:
		return true
	}
	return false
}

type fileEntry struct {
	File  string         `json:"file"`
	Boxes []defaults.Box `json:"boxes"`
}

type document struct {
	Dataset    string      `json:"dataset,omitempty"`
	Candidates int         `json:"candidates"`
	Files      []fileEntry `json:"files"`
	TotalBoxes int         `json:"total_boxes"`
}

// Summary describes a resolution run for the report header.
type Summary struct {
	Dataset    string
	Candidates int
}

func sortedKeys(res defaults.Result) []string {
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format renders res in the given format. Unknown formats render as text.
func Format(res defaults.Result, sum Summary, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(res, sum)
	case FormatCSV:
		return formatCSV(res)
	default:
		return formatText(res, sum), nil
	}
}

// Write renders res to w.
func Write(w io.Writer, res defaults.Result, sum Summary, format string) error {
	out, err := Format(res, sum, format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func formatJSON(res defaults.Result, sum Summary) (string, error) {
	doc := document{
		Dataset:    sum.Dataset,
		Candidates: sum.Candidates,
		Files:      make([]fileEntry, 0, len(res)),
	}
	for _, k := range sortedKeys(res) {
		doc.Files = append(doc.Files, fileEntry{File: k, Boxes: res[k]})
		doc.TotalBoxes += len(res[k])
	}
	bts, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func formatCSV(res defaults.Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write([]string{
		"file", "box_index", "id", "label", "x", "y", "width", "height", "negative",
	}); err != nil {
		return "", err
	}
	for _, k := range sortedKeys(res) {
		for i, b := range res[k] {
			if err := writer.Write([]string{
				k,
				strconv.Itoa(i),
				b.ID,
				b.Label,
				formatFloat(b.X),
				formatFloat(b.Y),
				formatFloat(b.Width),
				formatFloat(b.Height),
				strconv.FormatBool(b.Negative),
			}); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(res defaults.Result, sum Summary) string {
	var output strings.Builder
	total := 0
	for i, k := range sortedKeys(res) {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", k)
		for _, b := range res[k] {
			if b.Negative {
				fmt.Fprintf(&output, "  %s (negative)\n", b.Label)
				continue
			}
			fmt.Fprintf(&output, "  %s x=%.4f y=%.4f w=%.4f h=%.4f\n", b.Label, b.X, b.Y, b.Width, b.Height)
		}
		total += len(res[k])
	}
	if output.Len() > 0 {
		output.WriteString("\n")
	}
	name := sum.Dataset
	if name == "" {
		name = "dataset"
	}
	fmt.Fprintf(&output, "%s: %d of %d files with defaults, %d boxes\n", name, len(res), sum.Candidates, total)
	return output.String()
}

// FormatLabels renders label names as a JSON array or one per line.
func FormatLabels(labels []string, format string) (string, error) {
	if format == FormatJSON {
		if labels == nil {
			labels = []string{}
		}
		bts, err := json.MarshalIndent(labels, "", "  ")
		if err != nil {
			return "", err
		}
		return string(bts) + "\n", nil
	}
	if len(labels) == 0 {
		return "", nil
	}
	return strings.Join(labels, "\n") + "\n", nil
}
