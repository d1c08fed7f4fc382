// SPDX-License-Identifier: Apache-2.0

package coverage

import (
	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
)

// Summary holds the headline indicators of a run.
type Summary struct {
	// TotalSchools counts distinct schools in the raw dataset.
	TotalSchools    int `json:"total_schools"`
	EligibleSchools int `json:"eligible_schools"`
	ActiveSchools   int `json:"active_schools"`
	// InactiveSchools are eligible schools without a confirmed device.
	InactiveSchools int `json:"inactive_schools"`
	// OutOfRegistrySchools were municipal with internet but outside the
	// registry.
	OutOfRegistrySchools   int `json:"out_of_registry_schools"`
	EnrolledMunicipalities int `json:"enrolled_municipalities"`
	// Municipalities counts enrolled municipalities with a defined ratio.
	Municipalities      int            `json:"municipalities"`
	TierCounts          map[Tier]int   `json:"tier_counts"`
	FullCoverageByState map[string]int `json:"full_coverage_by_state"`
}

func summarize(records []normalize.Record, eligible []EligibleSchool, outside int, table *Table, reg *registry.Registry) Summary {
	distinct := map[SchoolKey]struct{}{}
	for _, r := range records {
		if r.SchoolKey == "" {
			continue
		}
		distinct[SchoolKey{Municipality: r.MunicipalityKey, School: r.SchoolKey}] = struct{}{}
	}

	s := Summary{
		TotalSchools:           len(distinct),
		EligibleSchools:        len(eligible),
		OutOfRegistrySchools:   outside,
		EnrolledMunicipalities: reg.Len(),
		TierCounts:             map[Tier]int{},
		FullCoverageByState:    map[string]int{},
	}
	for _, e := range eligible {
		if e.DeviceActive {
			s.ActiveSchools++
		}
	}
	s.InactiveSchools = s.EligibleSchools - s.ActiveSchools

	for _, row := range table.Rows {
		if !row.HasRatio() {
			continue
		}
		s.Municipalities++
		s.TierCounts[row.Tier]++
		if row.Tier == Tier100 {
			s.FullCoverageByState[row.State]++
		}
	}
	return s
}
