// SPDX-License-Identifier: Apache-2.0

// Package dataset holds the raw school-measurement records shared by the
// fetcher, the snapshot cache and the normalizer.
package dataset

import "time"

// Field names used by the remote source. They are stable across deployments.
const (
	FieldMunicipality = "co_municipio"
	FieldSchool       = "co_entidade"
	FieldDependency   = "tp_dependencia"
	FieldInternet     = "in_internet"
	FieldStatus       = "status"
)

// SchoolRecord is one row of the raw dataset. Values are kept as the source
// sent them; canonicalization happens downstream.
type SchoolRecord struct {
	MunicipalityCode string `json:"co_municipio"`
	SchoolCode       string `json:"co_entidade"`
	Dependency       string `json:"tp_dependencia"`
	Internet         string `json:"in_internet"`
	Status           string `json:"status"`
}

// Dataset is an immutable snapshot of the remote source.
type Dataset struct {
	Records   []SchoolRecord `json:"records"`
	FetchedAt time.Time      `json:"fetched_at"`
	Source    string         `json:"source"`
}

// Len returns the number of records, tolerating a nil receiver.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Age reports how long ago the dataset was fetched.
func (d *Dataset) Age(now time.Time) time.Duration {
	if d == nil || d.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(d.FetchedAt)
}
