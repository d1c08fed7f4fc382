// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
)

// DefaultSheet is the worksheet holding the enrolment list.
const DefaultSheet = "Lista única"

// Reader turns a registry file into rows; the first row is the header.
type Reader interface {
	Name() string
	CanHandle(path string) bool
	Read(ctx context.Context, path string) ([][]string, error)
}

// CSVReader reads delimited text. The delimiter is sniffed from the header
// line among ';', ',' and tab.
type CSVReader struct{}

func NewCSVReader() *CSVReader { return &CSVReader{} }

func (r *CSVReader) Name() string { return "csv" }

func (r *CSVReader) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

func (r *CSVReader) Read(_ context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	first, err := br.Peek(4096)
	if err != nil && len(first) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(string(first))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func sniffDelimiter(sample string) rune {
	line, _, _ := strings.Cut(sample, "\n")
	best, bestCount := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// XLSXReader reads one worksheet of a spreadsheet. When Sheet is absent
// the first worksheet is used.
type XLSXReader struct {
	Sheet string
}

func NewXLSXReader(sheet string) *XLSXReader {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &XLSXReader{Sheet: sheet}
}

func (r *XLSXReader) Name() string { return "xlsx" }

func (r *XLSXReader) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func (r *XLSXReader) Read(_ context.Context, path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no worksheets", path)
	}
	sheet := sheets[0]
	want := normalize.Fold(r.Sheet)
	for _, s := range sheets {
		if normalize.Fold(s) == want {
			sheet = s
			break
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}
