// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// CSVWriter writes comma-separated text with a header row.
type CSVWriter struct{}

func (CSVWriter) Format() Format      { return FormatCSV }
func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVWriter) Write(w io.Writer, rows []coverage.MunicipalityCoverage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
