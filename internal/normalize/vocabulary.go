// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// LabelSet lists the raw labels resolving to the positive and the negative
// outcome of one field.
type LabelSet struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Vocabulary is the versioned lookup table for the categorical fields.
type Vocabulary struct {
	Version    string   `yaml:"version"`
	Dependency LabelSet `yaml:"dependency"`
	Internet   LabelSet `yaml:"internet"`
	Status     LabelSet `yaml:"status"`
}

// DefaultVocabulary returns the built-in table.
func DefaultVocabulary() Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("normalize: embedded vocabulary: %v", err))
	}
	return v
}

// ParseVocabulary decodes a YAML vocabulary.
func ParseVocabulary(data []byte) (Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("normalize: parse vocabulary: %w", err)
	}
	if v.Version == "" {
		return Vocabulary{}, fmt.Errorf("normalize: vocabulary has no version")
	}
	return v, nil
}

// LoadVocabulary reads a YAML vocabulary from disk.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("normalize: read vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// lookup maps folded labels to their outcome.
type lookup map[string]bool

func buildLookup(field Field, set LabelSet) (lookup, error) {
	l := make(lookup, len(set.Positive)+len(set.Negative))
	for _, label := range set.Positive {
		l[Fold(label)] = true
	}
	for _, label := range set.Negative {
		key := Fold(label)
		if l[key] {
			return nil, fmt.Errorf("normalize: %s label %q is both positive and negative", field, label)
		}
		l[key] = false
	}
	return l, nil
}

// resolve returns the outcome for a folded label and whether it was listed.
func (l lookup) resolve(folded string) (value, known bool) {
	value, known = l[folded]
	return value, known
}
