// SPDX-License-Identifier: Apache-2.0

package coverage_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectividadeproj/conectividade-mcp/internal/coverage"
	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func raw(mun, school, dep, internet, status string) dataset.SchoolRecord {
	return dataset.SchoolRecord{
		MunicipalityCode: mun,
		SchoolCode:       school,
		Dependency:       dep,
		Internet:         internet,
		Status:           status,
	}
}

func normalized(t *testing.T, rows ...dataset.SchoolRecord) []normalize.Record {
	t.Helper()
	records, _ := normalize.Default().Normalize(rows)
	return records
}

func testRegistry() *registry.Registry {
	return registry.New([]registry.Entry{
		{Code: "0000001", State: "SP", Name: "Alfa", Region: "Sudeste"},
		{Code: "0000002", State: "BA", Name: "Beta", Region: "Nordeste"},
		{Code: "0000003", State: "SP", Name: "Gama", Region: "Sudeste"},
	})
}

func rowFor(t *testing.T, table *coverage.Table, code string) coverage.MunicipalityCoverage {
	t.Helper()
	for _, r := range table.Rows {
		if r.Code == code {
			return r
		}
	}
	t.Fatalf("no row for municipality %s", code)
	return coverage.MunicipalityCoverage{}
}

// ---------------------------------------------------------------------------
// Compute
// ---------------------------------------------------------------------------

func TestCompute_DuplicateRowsAnyActiveWins(t *testing.T) {
	records := normalized(t,
		raw("1", "S1", "Municipal", "Sim", "inativo"),
		raw("1", "S1", "Municipal", "Sim", "ativo"),
	)

	result, err := coverage.NewEngine().Compute(records, testRegistry())
	require.NoError(t, err)

	row := rowFor(t, result.Table, "0000001")
	assert.Equal(t, 1, row.TotalEligibleSchools)
	assert.Equal(t, 1, row.ActiveSchools)
	require.NotNil(t, row.CoverageRatio)
	assert.InDelta(t, 1.0, *row.CoverageRatio, 1e-9)
	assert.Equal(t, coverage.Tier100, row.Tier)
	assert.Len(t, result.Eligible, 1)
}

func TestCompute_HalfCoverage(t *testing.T) {
	records := normalized(t,
		raw("2", "A", "MUNICIPAL", "SIM", "ATIVO"),
		raw("2", "B", "municipal", "sim", "ativo"),
		raw("2", "C", "Municipal", "Sim", ""),
		raw("2", "D", "Municipal", "Sim", "inativo"),
	)

	result, err := coverage.NewEngine().Compute(records, testRegistry())
	require.NoError(t, err)

	row := rowFor(t, result.Table, "0000002")
	assert.Equal(t, 4, row.TotalEligibleSchools)
	assert.Equal(t, 2, row.ActiveSchools)
	assert.InDelta(t, 0.5, *row.CoverageRatio, 1e-9)
	assert.Equal(t, coverage.Tier50, row.Tier)
	assert.True(t, coverage.Threshold50.Includes(row))
	assert.False(t, coverage.Threshold70.Includes(row))
}

func TestCompute_FiltersIneligibleAndOutOfRegistry(t *testing.T) {
	records := normalized(t,
		raw("1", "A", "Municipal", "Sim", "ativo"),
		raw("1", "B", "Estadual", "Sim", "ativo"),
		raw("1", "C", "Municipal", "Não", "ativo"),
		raw("1", "D", "Municipal", "", "ativo"),
		raw("9999999", "E", "Municipal", "Sim", "ativo"),
		raw("9999999", "E", "Municipal", "Sim", "ativo"),
	)

	result, err := coverage.NewEngine().Compute(records, testRegistry())
	require.NoError(t, err)

	row := rowFor(t, result.Table, "0000001")
	assert.Equal(t, 1, row.TotalEligibleSchools)
	assert.Equal(t, 1, row.ActiveSchools)

	for _, r := range result.Table.Rows {
		assert.NotEqual(t, "9999999", r.Code)
	}
	assert.Equal(t, 1, result.Summary.OutOfRegistrySchools)
	assert.Equal(t, 5, result.Summary.TotalSchools)
}

func TestCompute_EnrolledWithoutEligibleSchools(t *testing.T) {
	records := normalized(t, raw("1", "A", "Municipal", "Sim", "ativo"))

	result, err := coverage.NewEngine().Compute(records, testRegistry())
	require.NoError(t, err)

	require.Len(t, result.Table.Rows, 3)
	row := rowFor(t, result.Table, "0000003")
	assert.Equal(t, 0, row.TotalEligibleSchools)
	assert.False(t, row.HasRatio())
	assert.Empty(t, row.Tier)

	for _, th := range coverage.Thresholds()[1:] {
		assert.False(t, th.Includes(row), "threshold %s", th)
	}
	assert.True(t, coverage.ThresholdAll.Includes(row))
	assert.Equal(t, 1, result.Summary.Municipalities)
	assert.Equal(t, 3, result.Summary.EnrolledMunicipalities)
}

func TestCompute_KeyVariantsJoin(t *testing.T) {
	reg := registry.New([]registry.Entry{{Code: "3550308", State: "SP", Name: "São Paulo"}})
	records := normalized(t,
		raw("3550308.0", "35000001", "Municipal", "Sim", "ativo"),
		raw(" 3550308 ", "35000001.0", "Municipal", "Sim", "inativo"),
		raw("03550308", "35000002", "Municipal", "Sim", "inativo"),
	)

	result, err := coverage.NewEngine().Compute(records, reg)
	require.NoError(t, err)

	row := rowFor(t, result.Table, "3550308")
	assert.Equal(t, 2, row.TotalEligibleSchools)
	assert.Equal(t, 1, row.ActiveSchools)
}

func TestCompute_EmptyDataset(t *testing.T) {
	engine := coverage.NewEngine()

	_, err := engine.Compute(nil, testRegistry())
	assert.ErrorIs(t, err, coverage.ErrEmptyDataset)

	_, err = engine.Compute(normalized(t, raw("", "", "Municipal", "Sim", "ativo")), testRegistry())
	assert.ErrorIs(t, err, coverage.ErrEmptyDataset)
}

func TestCompute_NoEligibleSchoolsIsNotAnError(t *testing.T) {
	records := normalized(t, raw("1", "A", "Estadual", "Sim", "ativo"))

	result, err := coverage.NewEngine().Compute(records, testRegistry())
	require.NoError(t, err)
	assert.Empty(t, result.Eligible)
	assert.Equal(t, 0, result.Summary.Municipalities)
}

func TestCompute_DedupIsIdempotent(t *testing.T) {
	base := []dataset.SchoolRecord{
		raw("1", "A", "Municipal", "Sim", "ativo"),
		raw("1", "B", "Municipal", "Sim", "inativo"),
		raw("2", "C", "Municipal", "Sim", "ativo"),
	}
	doubled := append(append([]dataset.SchoolRecord{}, base...), base...)

	engine := coverage.NewEngine()
	once, err := engine.Compute(normalized(t, base...), testRegistry())
	require.NoError(t, err)
	twice, err := engine.Compute(normalized(t, doubled...), testRegistry())
	require.NoError(t, err)

	assert.Equal(t, once.Table, twice.Table)
}

func TestCompute_Invariants(t *testing.T) {
	var rows []dataset.SchoolRecord
	statuses := []string{"ativo", "inativo", "", "INSTALADO"}
	for i := 0; i < 60; i++ {
		mun := fmt.Sprint(i%3 + 1)
		rows = append(rows, raw(mun, fmt.Sprintf("S%02d", i%40), "Municipal", "Sim", statuses[i%len(statuses)]))
	}

	result, err := coverage.NewEngine().Compute(normalized(t, rows...), testRegistry())
	require.NoError(t, err)

	for _, r := range result.Table.Rows {
		assert.GreaterOrEqual(t, r.ActiveSchools, 0)
		assert.LessOrEqual(t, r.ActiveSchools, r.TotalEligibleSchools)
		assert.Equal(t, r.TotalEligibleSchools > 0, r.HasRatio())
		if r.HasRatio() {
			assert.GreaterOrEqual(t, *r.CoverageRatio, 0.0)
			assert.LessOrEqual(t, *r.CoverageRatio, 1.0)
			tier, ok := coverage.Classify(r.ActiveSchools, r.TotalEligibleSchools)
			require.True(t, ok)
			assert.Equal(t, tier, r.Tier)
		}
	}
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

func TestSummary(t *testing.T) {
	records := normalized(t,
		raw("1", "A", "Municipal", "Sim", "ativo"),
		raw("2", "B", "Municipal", "Sim", "ativo"),
		raw("2", "C", "Municipal", "Sim", "inativo"),
		raw("3", "D", "Municipal", "Sim", "ativo"),
	)

	result, err := coverage.NewEngine().Compute(records, testRegistry())
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 4, s.TotalSchools)
	assert.Equal(t, 4, s.EligibleSchools)
	assert.Equal(t, 3, s.ActiveSchools)
	assert.Equal(t, 1, s.InactiveSchools)
	assert.Equal(t, 3, s.Municipalities)
	assert.Equal(t, 2, s.TierCounts[coverage.Tier100])
	assert.Equal(t, 1, s.TierCounts[coverage.Tier50])
	assert.Equal(t, map[string]int{"SP": 2}, s.FullCoverageByState)
}
