// SPDX-License-Identifier: Apache-2.0

package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
	"github.com/conectividadeproj/conectividade-mcp/internal/normalize"
)

// ---------------------------------------------------------------------------
// Fold
// ---------------------------------------------------------------------------

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Município", want: "MUNICIPIO"},
		{in: "  rede   municipal ", want: "REDE MUNICIPAL"},
		{in: "Não", want: "NAO"},
		{in: "\ufeffco_municipio", want: "CO_MUNICIPIO"},
		{in: "Região", want: "REGIAO"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize.Fold(tt.in), tt.in)
	}
}

// ---------------------------------------------------------------------------
// Vocabulary: every listed variant resolves as declared
// ---------------------------------------------------------------------------

func TestDefaultVocabulary_EveryVariant(t *testing.T) {
	vocab := normalize.DefaultVocabulary()
	require.NotEmpty(t, vocab.Version)
	n := normalize.Default()

	base := dataset.SchoolRecord{MunicipalityCode: "3550308", SchoolCode: "1", Dependency: "Municipal", Internet: "Sim", Status: "ativo"}

	for _, label := range vocab.Dependency.Positive {
		r := base
		r.Dependency = label
		assert.Equal(t, normalize.DependencyMunicipal, n.Record(r).Dependency, label)
	}
	for _, label := range vocab.Dependency.Negative {
		r := base
		r.Dependency = label
		assert.Equal(t, normalize.DependencyOther, n.Record(r).Dependency, label)
	}
	for _, label := range vocab.Internet.Positive {
		r := base
		r.Internet = label
		assert.True(t, n.Record(r).HasInternet, label)
	}
	for _, label := range vocab.Internet.Negative {
		r := base
		r.Internet = label
		assert.False(t, n.Record(r).HasInternet, label)
	}
	for _, label := range vocab.Status.Positive {
		r := base
		r.Status = label
		assert.True(t, n.Record(r).DeviceActive, label)
	}
	for _, label := range vocab.Status.Negative {
		r := base
		r.Status = label
		assert.False(t, n.Record(r).DeviceActive, label)
	}
}

func TestNormalize_SourceVariants(t *testing.T) {
	n := normalize.Default()

	tests := []struct {
		name       string
		record     dataset.SchoolRecord
		wantDep    normalize.Dependency
		wantInet   bool
		wantActive bool
	}{
		{
			name:       "canonical portuguese labels",
			record:     dataset.SchoolRecord{Dependency: "Municipal", Internet: "Sim", Status: "ativo"},
			wantDep:    normalize.DependencyMunicipal,
			wantInet:   true,
			wantActive: true,
		},
		{
			name:       "accented and lower case",
			record:     dataset.SchoolRecord{Dependency: "município", Internet: "sim", Status: "Instalado"},
			wantDep:    normalize.DependencyMunicipal,
			wantInet:   true,
			wantActive: true,
		},
		{
			name:       "english affirmatives",
			record:     dataset.SchoolRecord{Dependency: "Rede Municipal", Internet: "yes", Status: "active"},
			wantDep:    normalize.DependencyMunicipal,
			wantInet:   true,
			wantActive: true,
		},
		{
			name:       "state school without internet",
			record:     dataset.SchoolRecord{Dependency: "Estadual", Internet: "Não", Status: "inativo"},
			wantDep:    normalize.DependencyOther,
			wantInet:   false,
			wantActive: false,
		},
		{
			name:       "unknown labels fall back to least privilege",
			record:     dataset.SchoolRecord{Dependency: "Conveniada", Internet: "talvez", Status: "pendente"},
			wantDep:    normalize.DependencyOther,
			wantInet:   false,
			wantActive: false,
		},
		{
			name:       "blank labels",
			record:     dataset.SchoolRecord{},
			wantDep:    normalize.DependencyOther,
			wantInet:   false,
			wantActive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Record(tt.record)
			assert.Equal(t, tt.wantDep, got.Dependency)
			assert.Equal(t, tt.wantInet, got.HasInternet)
			assert.Equal(t, tt.wantActive, got.DeviceActive)
		})
	}
}

func TestNormalize_Keys(t *testing.T) {
	n := normalize.Default()
	got := n.Record(dataset.SchoolRecord{MunicipalityCode: "3550308.0", SchoolCode: " 35000001 "})
	assert.Equal(t, "3550308", got.MunicipalityKey)
	assert.Equal(t, "35000001", got.SchoolKey)
	assert.Equal(t, "3550308.0", got.MunicipalityCode, "raw value is preserved")
}

func TestNormalize_DeterministicAndOrderIndependent(t *testing.T) {
	n := normalize.Default()
	records := []dataset.SchoolRecord{
		{MunicipalityCode: "1", SchoolCode: "10", Dependency: "Municipal", Internet: "Sim", Status: "ativo"},
		{MunicipalityCode: "2", SchoolCode: "20", Dependency: "Privada", Internet: "Não", Status: ""},
		{MunicipalityCode: "3", SchoolCode: "30", Dependency: "???", Internet: "x", Status: "y"},
	}

	first, firstReport := n.Normalize(records)
	second, secondReport := n.Normalize(records)
	assert.Equal(t, first, second)
	assert.Equal(t, firstReport, secondReport)

	reversed := []dataset.SchoolRecord{records[2], records[1], records[0]}
	out, _ := n.Normalize(reversed)
	assert.Equal(t, first[0], out[2])
	assert.Equal(t, first[2], out[0])
}

func TestNormalize_Report(t *testing.T) {
	n := normalize.Default()
	_, report := n.Normalize([]dataset.SchoolRecord{
		{Dependency: "Conveniada", Internet: "Sim", Status: "pendente"},
		{Dependency: "conveniada", Internet: "Sim", Status: ""},
		{Dependency: "Municipal", Internet: "Sim", Status: "ativo"},
	})

	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 3, report.UnrecognizedTotal())
	assert.Equal(t, 2, report.Unrecognized[normalize.FieldDependency]["CONVENIADA"])
	assert.Equal(t, []string{"PENDENTE"}, report.UnrecognizedLabels(normalize.FieldStatus))
	assert.Empty(t, report.UnrecognizedLabels(normalize.FieldInternet))
}

func TestNew_ConflictingVocabulary(t *testing.T) {
	vocab := normalize.DefaultVocabulary()
	vocab.Status.Negative = append(vocab.Status.Negative, "Ativo")
	_, err := normalize.New(vocab, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both positive and negative")
}

func TestParseVocabulary(t *testing.T) {
	v, err := normalize.ParseVocabulary([]byte(`
version: "test-1"
dependency: {positive: ["MUNICIPAL"]}
internet: {positive: ["SIM"], negative: ["NAO"]}
status: {positive: ["OK"]}
`))
	require.NoError(t, err)
	assert.Equal(t, "test-1", v.Version)

	n, err := normalize.New(v, 0)
	require.NoError(t, err)
	assert.True(t, n.Record(dataset.SchoolRecord{Status: "ok"}).DeviceActive)
	assert.False(t, n.Record(dataset.SchoolRecord{Status: "ativo"}).DeviceActive)

	_, err = normalize.ParseVocabulary([]byte(`dependency: {}`))
	require.Error(t, err)
}
