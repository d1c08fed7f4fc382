// SPDX-License-Identifier: Apache-2.0

package coverage

import (
	"fmt"
	"sort"
	"strings"
)

// Threshold selects a subset of the coverage table.
type Threshold string

const (
	ThresholdAll Threshold = "all"
	Threshold50  Threshold = "50"
	Threshold70  Threshold = "70"
	Threshold80  Threshold = "80"
	Threshold100 Threshold = "100"
)

// Thresholds lists the subsets from widest to narrowest.
func Thresholds() []Threshold {
	return []Threshold{ThresholdAll, Threshold50, Threshold70, Threshold80, Threshold100}
}

// ParseThreshold accepts "all", "50", "70", "80" or "100", optionally with
// a trailing "%".
func ParseThreshold(s string) (Threshold, error) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "%")
	if s == "" {
		return ThresholdAll, nil
	}
	for _, th := range Thresholds() {
		if string(th) == s {
			return th, nil
		}
	}
	return "", fmt.Errorf("coverage: unknown threshold %q", s)
}

// percent returns the integer lower bound of th, or -1 for ThresholdAll.
func (th Threshold) percent() int {
	switch th {
	case Threshold50:
		return 50
	case Threshold70:
		return 70
	case Threshold80:
		return 80
	case Threshold100:
		return 100
	}
	return -1
}

// Includes reports whether row belongs to the subset. Rows without a ratio
// only belong to ThresholdAll.
func (th Threshold) Includes(row MunicipalityCoverage) bool {
	p := th.percent()
	if p < 0 {
		return true
	}
	if row.TotalEligibleSchools <= 0 {
		return false
	}
	return row.ActiveSchools*100 >= row.TotalEligibleSchools*p
}

// Label is the human-readable subset name.
func (th Threshold) Label() string {
	switch th {
	case ThresholdAll:
		return "todos"
	case Threshold100:
		return "100%"
	}
	return "≥" + string(th) + "%"
}

// Subset filters the table; it never recomputes anything.
func (t *Table) Subset(th Threshold) []MunicipalityCoverage {
	out := make([]MunicipalityCoverage, 0, len(t.Rows))
	for _, row := range t.Rows {
		if th.Includes(row) {
			out = append(out, row)
		}
	}
	return out
}

// FilterState keeps the rows of one state; an empty state keeps all.
func FilterState(rows []MunicipalityCoverage, state string) []MunicipalityCoverage {
	if state == "" {
		return rows
	}
	out := make([]MunicipalityCoverage, 0, len(rows))
	for _, r := range rows {
		if strings.EqualFold(r.State, state) {
			out = append(out, r)
		}
	}
	return out
}

// SortRows orders rows by state, municipality name and code.
func SortRows(rows []MunicipalityCoverage) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Code < b.Code
	})
}
