// SPDX-License-Identifier: Apache-2.0

// Package export serializes coverage tables for download.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Columns is the stable header of every tabular export.
var Columns = []string{
	"municipality_code",
	"municipality_name",
	"state_code",
	"total_eligible_schools",
	"active_schools",
	"coverage_ratio",
	"tier",
}

// Writer encodes coverage rows in one format.
type Writer interface {
	Format() Format
	ContentType() string
	Write(w io.Writer, rows []coverage.MunicipalityCoverage) error
}

// ForFormat returns the Writer for f.
func ForFormat(f Format) (Writer, error) {
	switch Format(strings.ToLower(string(f))) {
	case FormatCSV, "":
		return CSVWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{}, nil
	case FormatJSON:
		return JSONWriter{}, nil
	}
	return nil, fmt.Errorf("export: unsupported format %q", f)
}

// record renders row under Columns. The ratio keeps four decimals and is
// blank when undefined.
func record(row coverage.MunicipalityCoverage) []string {
	ratio := ""
	if row.CoverageRatio != nil {
		ratio = strconv.FormatFloat(*row.CoverageRatio, 'f', 4, 64)
	}
	return []string{
		row.Code,
		row.Name,
		row.State,
		strconv.Itoa(row.TotalEligibleSchools),
		strconv.Itoa(row.ActiveSchools),
		ratio,
		string(row.Tier),
	}
}
