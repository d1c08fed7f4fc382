// SPDX-License-Identifier: Apache-2.0

package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/export"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
)

func ratio(f float64) *float64 { return &f }

func sampleTable() *coverage.Table {
	return &coverage.Table{Rows: []coverage.MunicipalityCoverage{
		{Code: "3550308", Name: "São Paulo", State: "SP", TotalEligibleSchools: 4, ActiveSchools: 4, CoverageRatio: ratio(1), Tier: coverage.Tier100},
		{Code: "2927408", Name: "Salvador", State: "BA", TotalEligibleSchools: 10, ActiveSchools: 7, CoverageRatio: ratio(0.7), Tier: coverage.Tier70},
		{Code: "3106200", Name: "Belo Horizonte", State: "MG", TotalEligibleSchools: 2, ActiveSchools: 1, CoverageRatio: ratio(0.5), Tier: coverage.Tier50},
		{Code: "1100205", Name: "Porto Velho", State: "RO"},
	}}
}

// ---------------------------------------------------------------------------
// Writers
// ---------------------------------------------------------------------------

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.CSVWriter{}.Write(&buf, sampleTable().Rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, export.Columns, records[0])
	assert.Equal(t, []string{"3550308", "São Paulo", "SP", "4", "4", "1.0000", "100%"}, records[1])
	assert.Equal(t, []string{"2927408", "Salvador", "BA", "10", "7", "0.7000", "70%-79%"}, records[2])
	assert.Equal(t, []string{"1100205", "Porto Velho", "RO", "0", "0", "", ""}, records[4])
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.XLSXWriter{}.Write(&buf, sampleTable().Rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, export.Columns, rows[0])
	assert.Equal(t, "Salvador", rows[2][1])
	assert.Equal(t, "70%-79%", rows[2][6])
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.JSONWriter{}.Write(&buf, sampleTable().Rows[:1]))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "3550308", got[0]["municipality_code"])
	assert.Equal(t, "100%", got[0]["tier"])

	buf.Reset()
	require.NoError(t, export.JSONWriter{}.Write(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestForFormat(t *testing.T) {
	for _, f := range []export.Format{export.FormatCSV, export.FormatXLSX, export.FormatJSON} {
		w, err := export.ForFormat(f)
		require.NoError(t, err)
		assert.Equal(t, f, w.Format())
		assert.NotEmpty(t, w.ContentType())
	}
	_, err := export.ForFormat("parquet")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func TestWriteSubsets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bases")

	paths, err := export.WriteSubsets(dir, sampleTable(), export.CSVWriter{})
	require.NoError(t, err)

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	assert.Equal(t, []string{
		"municipios_todos.csv",
		"municipios_50_mais.csv",
		"municipios_70_mais.csv",
		"municipios_80_mais.csv",
		"municipios_100.csv",
	}, names)

	want := map[string]int{
		"municipios_todos.csv":   4,
		"municipios_50_mais.csv": 3,
		"municipios_70_mais.csv": 2,
		"municipios_80_mais.csv": 1,
		"municipios_100.csv":     1,
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, want[filepath.Base(p)]+1, p)
	}

	data, err := os.ReadFile(filepath.Join(dir, "municipios_50_mais.csv"))
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"BA", "MG", "SP"}, []string{records[1][2], records[2][2], records[3][2]})
}

func TestWriteSubsets_OverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	_, err := export.WriteSubsets(dir, sampleTable(), export.XLSXWriter{})
	require.NoError(t, err)
	_, err = export.WriteSubsets(dir, sampleTable(), export.XLSXWriter{})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestWriteConsolidated(t *testing.T) {
	schools := []coverage.EligibleSchool{
		{
			Key:          coverage.SchoolKey{Municipality: "3550308", School: "35000001"},
			DeviceActive: true,
			Municipality: registry.Entry{Code: "3550308", State: "SP", Name: "São Paulo", Region: "Sudeste"},
		},
	}
	path, err := export.WriteConsolidated(t.TempDir(), schools)
	require.NoError(t, err)
	assert.Equal(t, export.ConsolidatedFile, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, export.ConsolidatedColumns, records[0])
	assert.Equal(t, []string{"3550308", "35000001", "SP", "São Paulo", "Sudeste", "true"}, records[1])
}
