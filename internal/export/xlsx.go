// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// SheetName is the worksheet every XLSX export is written to.
const SheetName = "cobertura"

// XLSXWriter writes a single-sheet workbook. Counts and ratios are stored
// as numbers.
type XLSXWriter struct{}

func (XLSXWriter) Format() Format { return FormatXLSX }
func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Write(w io.Writer, rows []coverage.MunicipalityCoverage) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		var ratio any = ""
		if row.CoverageRatio != nil {
			ratio = *row.CoverageRatio
		}
		cells := []any{
			row.Code,
			row.Name,
			row.State,
			row.TotalEligibleSchools,
			row.ActiveSchools,
			ratio,
			string(row.Tier),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("write row %s: %w", row.Code, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
