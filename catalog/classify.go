package catalog

import (
	"strings"

	"peptideprofessor/calculator"
)

// mcgSlugs are dosed in micrograms regardless of their dosage text.
var mcgSlugs = map[string]bool{
	"ipamorelin": true, "igf-1-lr3": true, "bpc-157": true, "cjc-1295": true,
	"ghrp-2": true, "ghrp-6": true, "hexarelin": true, "melanotan-ii": true,
	"ghk-cu": true, "ahk-cu": true, "dsip": true, "selank": true,
	"semax": true, "mgf": true, "ara-290": true,
}

var mcgSlugFragments = []string{"ghrp", "igf", "bpc", "melanotan"}

// Classify infers a unit class for entries that do not declare one.
func Classify(p Peptide) calculator.UnitClass {
	dosage := strings.ToLower(p.Dosage)
	if strings.Contains(dosage, "mcg") || strings.Contains(dosage, "μg") || mcgSlugs[p.Slug] {
		return calculator.UnitMcg
	}
	for _, frag := range mcgSlugFragments {
		if strings.Contains(p.Slug, frag) {
			return calculator.UnitMcg
		}
	}
	if p.Slug == "tb-500" || p.Slug == "thymosin" {
		return calculator.UnitMgSmall
	}
	return calculator.UnitMg
}
