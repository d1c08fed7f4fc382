// SPDX-License-Identifier: Apache-2.0

// Package normalize canonicalizes the free-text categorical fields of the
// raw dataset into a fixed vocabulary.
//
// Normalization is pure and total: the same raw record always yields the
// same canonical record, and labels missing from the vocabulary fall back to
// the least-privileged outcome (OTHER, no internet, inactive device). Such
// labels are counted in the Report so they can be added to the table.
package normalize

import (
	"sort"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
)

// Dependency is the canonical administrative-dependency class.
type Dependency string

const (
	DependencyMunicipal Dependency = "MUNICIPAL"
	DependencyOther     Dependency = "OTHER"
)

// Field names a categorical field of the raw record.
type Field string

const (
	FieldDependency Field = dataset.FieldDependency
	FieldInternet   Field = dataset.FieldInternet
	FieldStatus     Field = dataset.FieldStatus
)

// Record is a SchoolRecord with canonical keys and flags.
type Record struct {
	dataset.SchoolRecord
	MunicipalityKey string
	SchoolKey       string
	Dependency      Dependency
	HasInternet     bool
	DeviceActive    bool
}

// Report counts the labels that were not in the vocabulary, per field.
type Report struct {
	Records      int
	Unrecognized map[Field]map[string]int
}

// UnrecognizedTotal returns how many field values fell back to the default.
func (r Report) UnrecognizedTotal() int {
	total := 0
	for _, labels := range r.Unrecognized {
		for _, n := range labels {
			total += n
		}
	}
	return total
}

// UnrecognizedLabels returns the sorted unrecognized labels of a field.
func (r Report) UnrecognizedLabels(f Field) []string {
	labels := make([]string, 0, len(r.Unrecognized[f]))
	for l := range r.Unrecognized[f] {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Normalizer resolves raw labels through a Vocabulary.
type Normalizer struct {
	version    string
	keyWidth   int
	dependency lookup
	internet   lookup
	status     lookup
}

// New builds a Normalizer. keyWidth is the zero-padding width applied to
// municipality codes; see dataset.MunicipalityKey.
func New(v Vocabulary, keyWidth int) (*Normalizer, error) {
	dep, err := buildLookup(FieldDependency, v.Dependency)
	if err != nil {
		return nil, err
	}
	inet, err := buildLookup(FieldInternet, v.Internet)
	if err != nil {
		return nil, err
	}
	status, err := buildLookup(FieldStatus, v.Status)
	if err != nil {
		return nil, err
	}
	return &Normalizer{
		version:    v.Version,
		keyWidth:   keyWidth,
		dependency: dep,
		internet:   inet,
		status:     status,
	}, nil
}

// Default returns a Normalizer over the built-in vocabulary.
func Default() *Normalizer {
	n, err := New(DefaultVocabulary(), dataset.DefaultMunicipalityWidth)
	if err != nil {
		panic(err)
	}
	return n
}

// Version reports the vocabulary version in use.
func (n *Normalizer) Version() string { return n.version }

// KeyWidth reports the municipality key width in use.
func (n *Normalizer) KeyWidth() int { return n.keyWidth }

// Normalize canonicalizes every record.
func (n *Normalizer) Normalize(records []dataset.SchoolRecord) ([]Record, Report) {
	out := make([]Record, len(records))
	report := Report{Records: len(records), Unrecognized: map[Field]map[string]int{}}

	note := func(f Field, folded string) {
		if report.Unrecognized[f] == nil {
			report.Unrecognized[f] = map[string]int{}
		}
		report.Unrecognized[f][folded]++
	}

	for i, r := range records {
		rec, misses := n.record(r)
		out[i] = rec
		for _, m := range misses {
			note(m.field, m.label)
		}
	}
	return out, report
}

// Record canonicalizes a single record.
func (n *Normalizer) Record(r dataset.SchoolRecord) Record {
	rec, _ := n.record(r)
	return rec
}

type miss struct {
	field Field
	label string
}

func (n *Normalizer) record(r dataset.SchoolRecord) (Record, []miss) {
	var misses []miss
	resolve := func(f Field, l lookup, raw string) bool {
		folded := Fold(raw)
		if folded == "" {
			return false
		}
		v, ok := l.resolve(folded)
		if !ok {
			misses = append(misses, miss{field: f, label: folded})
		}
		return v
	}

	dep := DependencyOther
	if resolve(FieldDependency, n.dependency, r.Dependency) {
		dep = DependencyMunicipal
	}

	return Record{
		SchoolRecord:    r,
		MunicipalityKey: dataset.MunicipalityKey(r.MunicipalityCode, n.keyWidth),
		SchoolKey:       dataset.SchoolKey(r.SchoolCode),
		Dependency:      dep,
		HasInternet:     resolve(FieldInternet, n.internet, r.Internet),
		DeviceActive:    resolve(FieldStatus, n.status, r.Status),
	}, misses
}
