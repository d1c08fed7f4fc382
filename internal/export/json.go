// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"io"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
)

// JSONWriter writes the rows as a JSON array.
type JSONWriter struct{}

func (JSONWriter) Format() Format      { return FormatJSON }
func (JSONWriter) ContentType() string { return "application/json" }

func (JSONWriter) Write(w io.Writer, rows []coverage.MunicipalityCoverage) error {
	if rows == nil {
		rows = []coverage.MunicipalityCoverage{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
