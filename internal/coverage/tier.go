// SPDX-License-Identifier: Apache-2.0

package coverage

// Tier is a coverage-ratio bracket used for categorical reporting.
type Tier string

const (
	Tier100     Tier = "100%"
	Tier80      Tier = "80%-99%"
	Tier70      Tier = "70%-79%"
	Tier50      Tier = "50%-69%"
	TierBelow50 Tier = "<50%"
	Tier0       Tier = "0%"
)

// tierRule matches a municipality by its counts. Comparisons are done on
// integers so bracket boundaries are exact.
type tierRule struct {
	tier    Tier
	matches func(active, total int) bool
}

// tierRules are evaluated in order; the first match wins.
var tierRules = []tierRule{
	{tier: Tier100, matches: func(a, t int) bool { return a == t }},
	{tier: Tier80, matches: func(a, t int) bool { return a*10 >= t*8 }},
	{tier: Tier70, matches: func(a, t int) bool { return a*10 >= t*7 }},
	{tier: Tier50, matches: func(a, t int) bool { return a*10 >= t*5 }},
	{tier: TierBelow50, matches: func(a, t int) bool { return a > 0 }},
	{tier: Tier0, matches: func(a, t int) bool { return a == 0 }},
}

// Tiers lists every tier from highest to lowest.
func Tiers() []Tier {
	out := make([]Tier, len(tierRules))
	for i, r := range tierRules {
		out[i] = r.tier
	}
	return out
}

// Classify returns the tier for active out of total eligible schools.
// ok is false when total is zero: the ratio is undefined and no tier applies.
func Classify(active, total int) (tier Tier, ok bool) {
	if total <= 0 || active < 0 || active > total {
		return "", false
	}
	for _, rule := range tierRules {
		if rule.matches(active, total) {
			return rule.tier, true
		}
	}
	return "", false
}
