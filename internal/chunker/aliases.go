package chunker

import "strings"

// categoryAlias maps a lowercase substring of a fund name to the alias
// variants retrieval should also match on. Users rarely type the full
// registered fund name, so every passage carries these shorthand forms.
type categoryAlias struct {
	substr   string
	variants []string
}

var categoryAliases = []categoryAlias{
	{"elss", []string{"ELSS", "ELSS Tax Saver", "ELSS Tax Saver Fund"}},
	{"arbitrage", []string{"Arbitrage", "Arbitrage Fund"}},
	{"liquid", []string{"Liquid", "Liquid Fund"}},
	{"conservative hybrid", []string{"Conservative Hybrid", "Conservative Hybrid Fund"}},
	{"dynamic asset allocation", []string{"Dynamic Asset Allocation", "Dynamic Asset Allocation Fund"}},
	{"long term value", []string{"Long Term Value", "Long Term Value Fund"}},
	{"flexi cap", []string{"Flexi Cap", "Flexi Cap Fund"}},
}

// houseName is the fund house prefix that gets prepended to category
// aliases when present in the fund name.
const houseName = "Parag Parikh"

// NameVariations returns the alias forms of a fund name used to widen
// retrieval matching. The result is deterministic: category aliases in
// table order, then house-prefixed forms of each. Duplicates are removed
// preserving first occurrence.
func NameVariations(fundName string) []string {
	lower := strings.ToLower(fundName)

	var variations []string
	for _, ca := range categoryAliases {
		if strings.Contains(lower, ca.substr) {
			variations = append(variations, ca.variants...)
		}
	}

	if strings.Contains(lower, strings.ToLower(houseName)) {
		prefixed := []string{houseName}
		for _, v := range variations {
			if !strings.Contains(strings.ToLower(v), strings.ToLower(houseName)) {
				prefixed = append(prefixed, houseName+" "+v)
			}
		}
		variations = append(variations, prefixed...)
	}

	return dedupe(variations)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
