package defaults

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// tableRow is one data row keyed by header name.
type tableRow map[string]string

// get returns the trimmed value of the first non-empty column among names.
func (r tableRow) get(names ...string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		if v := strings.TrimSpace(r[n]); v != "" {
			return v
		}
	}
	return ""
}

// tableReader streams the rows of a delimited file or spreadsheet.
type tableReader interface {
	Header() []string
	// Next returns the next row, or io.EOF when exhausted.
	Next() (tableRow, error)
	Close() error
}

func isSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// openTable opens path as CSV, or as a workbook when the extension says so.
// The first row is the header.
func openTable(path string) (tableReader, error) {
	if isSpreadsheet(path) {
		t, err := openSheet(path)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	t, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func cleanHeader(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if i == 0 {
			c = strings.TrimPrefix(c, "\ufeff")
		}
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func zipRow(header, cols []string) tableRow {
	row := make(tableRow, len(header))
	for i, name := range header {
		if i < len(cols) {
			row[name] = cols[i]
		} else {
			row[name] = ""
		}
	}
	return row
}

type csvTable struct {
	f      *os.File
	r      *csv.Reader
	header []string
}

func openCSV(path string) (*csvTable, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the dataset's annotation source
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	head, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return &csvTable{f: f, r: r, header: cleanHeader(head)}, nil
}

func (t *csvTable) Header() []string { return t.header }

func (t *csvTable) Next() (tableRow, error) {
	for {
		cols, err := t.r.Read()
		if err == nil {
			return zipRow(t.header, cols), nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		return nil, err
	}
}

func (t *csvTable) Close() error { return t.f.Close() }

type sheetTable struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
}

// openSheet reads the active worksheet, or the first one when none is active.
func openSheet(path string) (*sheetTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		if list := f.GetSheetList(); len(list) > 0 {
			sheet = list[0]
		}
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open sheet %q of %s: %w", sheet, path, err)
	}
	t := &sheetTable{f: f, rows: rows}
	head, err := t.next()
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	t.header = cleanHeader(head)
	return t, nil
}

func (t *sheetTable) next() ([]string, error) {
	if !t.rows.Next() {
		if err := t.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return t.rows.Columns()
}

func (t *sheetTable) Header() []string { return t.header }

func (t *sheetTable) Next() (tableRow, error) {
	cols, err := t.next()
	if err != nil {
		return nil, err
	}
	return zipRow(t.header, cols), nil
}

func (t *sheetTable) Close() error {
	_ = t.rows.Close()
	return t.f.Close()
}

func hasColumn(header []string, names ...string) bool {
	for _, h := range header {
		for _, n := range names {
			if n != "" && h == n {
				return true
			}
		}
	}
	return false
}
