// SPDX-License-Identifier: Apache-2.0

// Package coverage reconciles normalized school records against the
// municipality registry and computes per-municipality device coverage.
package coverage

import (
	"fmt"

	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
)

// SchoolKey identifies a school within its municipality.
type SchoolKey struct {
	Municipality string
	School       string
}

// EligibleSchool is a deduplicated municipal school reporting internet,
// located in an enrolled municipality.
type EligibleSchool struct {
	Key          SchoolKey
	DeviceActive bool
	Municipality registry.Entry
}

// MunicipalityCoverage is one row of the output table. CoverageRatio and
// Tier are absent when the municipality has no eligible school.
type MunicipalityCoverage struct {
	Code                 string   `json:"municipality_code"`
	Name                 string   `json:"municipality_name"`
	State                string   `json:"state_code"`
	Region               string   `json:"region,omitempty"`
	TotalEligibleSchools int      `json:"total_eligible_schools"`
	ActiveSchools        int      `json:"active_schools"`
	CoverageRatio        *float64 `json:"coverage_ratio,omitempty"`
	Tier                 Tier     `json:"tier,omitempty"`
}

// HasRatio reports whether the ratio (and therefore the tier) is defined.
func (m MunicipalityCoverage) HasRatio() bool { return m.CoverageRatio != nil }

// Table is the full coverage table, one row per enrolled municipality, in
// registry order. Callers sort as needed.
type Table struct {
	Rows []MunicipalityCoverage
}

// Result bundles everything one aggregation produces.
type Result struct {
	Table    *Table
	Eligible []EligibleSchool
	Summary  Summary
}

// Engine performs filter, deduplication, join, aggregation and
// classification. It holds no state and every step is pure.
type Engine struct{}

// NewEngine creates a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute aggregates records against reg. It fails with ErrEmptyDataset when
// records is empty or no record carries both identity codes.
func (e *Engine) Compute(records []normalize.Record, reg *registry.Registry) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrEmptyDataset)
	}
	if !hasIdentifiedRecord(records) {
		return nil, fmt.Errorf("%w: none of %d records has a municipality and school code", ErrEmptyDataset, len(records))
	}

	eligible, outside := Eligible(records, reg)
	table := aggregate(eligible, reg)

	return &Result{
		Table:    table,
		Eligible: eligible,
		Summary:  summarize(records, eligible, outside, table, reg),
	}, nil
}

func hasIdentifiedRecord(records []normalize.Record) bool {
	for _, r := range records {
		if r.MunicipalityKey != "" && r.SchoolKey != "" {
			return true
		}
	}
	return false
}

// Eligible filters records to municipal schools with internet, drops those
// outside the registry and collapses the rest to one EligibleSchool per key.
// A school is active when any of its rows is active. The second result
// counts distinct school keys excluded for being outside the registry.
func Eligible(records []normalize.Record, reg *registry.Registry) ([]EligibleSchool, int) {
	index := map[SchoolKey]int{}
	outside := map[SchoolKey]struct{}{}
	var schools []EligibleSchool

	for _, r := range records {
		if r.Dependency != normalize.DependencyMunicipal || !r.HasInternet {
			continue
		}
		if r.MunicipalityKey == "" || r.SchoolKey == "" {
			continue
		}
		key := SchoolKey{Municipality: r.MunicipalityKey, School: r.SchoolKey}

		entry, ok := reg.Lookup(key.Municipality)
		if !ok {
			outside[key] = struct{}{}
			continue
		}
		if i, seen := index[key]; seen {
			schools[i].DeviceActive = schools[i].DeviceActive || r.DeviceActive
			continue
		}
		index[key] = len(schools)
		schools = append(schools, EligibleSchool{
			Key:          key,
			DeviceActive: r.DeviceActive,
			Municipality: entry,
		})
	}
	return schools, len(outside)
}

func aggregate(schools []EligibleSchool, reg *registry.Registry) *Table {
	type counts struct{ total, active int }
	per := map[string]*counts{}
	for _, s := range schools {
		c := per[s.Key.Municipality]
		if c == nil {
			c = &counts{}
			per[s.Key.Municipality] = c
		}
		c.total++
		if s.DeviceActive {
			c.active++
		}
	}

	entries := reg.Entries()
	rows := make([]MunicipalityCoverage, 0, len(entries))
	for _, entry := range entries {
		row := MunicipalityCoverage{
			Code:   entry.Code,
			Name:   entry.Name,
			State:  entry.State,
			Region: entry.Region,
		}
		if c := per[entry.Code]; c != nil {
			row.TotalEligibleSchools = c.total
			row.ActiveSchools = c.active
			if tier, ok := Classify(c.active, c.total); ok {
				ratio := float64(c.active) / float64(c.total)
				row.CoverageRatio = &ratio
				row.Tier = tier
			}
		}
		rows = append(rows, row)
	}
	return &Table{Rows: rows}
}
