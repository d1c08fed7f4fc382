// SPDX-License-Identifier: Apache-2.0

// Package registry loads the authoritative list of municipalities enrolled
// in the program.
package registry

import "sort"

// Entry is one enrolled municipality. Code is the canonical join key.
type Entry struct {
	Code   string `json:"co_municipio"`
	State  string `json:"uf"`
	Name   string `json:"municipio"`
	Region string `json:"regiao"`
}

// Registry is the deduplicated set of enrolled municipalities.
type Registry struct {
	entries map[string]Entry
	order   []string
	// Duplicates counts rows dropped because their key was already present.
	Duplicates int
	// Dropped counts rows without a usable municipality code.
	Dropped int
}

// New builds a Registry from entries whose Code is already canonical.
// The first entry for a code wins.
func New(entries []Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		r.add(e)
	}
	return r
}

func (r *Registry) add(e Entry) {
	if e.Code == "" {
		r.Dropped++
		return
	}
	if _, ok := r.entries[e.Code]; ok {
		r.Duplicates++
		return
	}
	r.entries[e.Code] = e
	r.order = append(r.order, e.Code)
}

// Lookup returns the entry for a canonical municipality code.
func (r *Registry) Lookup(code string) (Entry, bool) {
	e, ok := r.entries[code]
	return e, ok
}

// Len returns the number of distinct municipalities.
func (r *Registry) Len() int { return len(r.order) }

// Entries returns the municipalities in first-seen order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.order))
	for i, code := range r.order {
		out[i] = r.entries[code]
	}
	return out
}

// States returns the distinct state codes, sorted.
func (r *Registry) States() []string {
	seen := map[string]bool{}
	var states []string
	for _, e := range r.entries {
		if e.State != "" && !seen[e.State] {
			seen[e.State] = true
			states = append(states, e.State)
		}
	}
	sort.Strings(states)
	return states
}
