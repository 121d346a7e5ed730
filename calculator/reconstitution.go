package calculator

import "math"

// ReconstitutionInput is the body of a reconstitution request. VialSize is in
// mg, BacteriostaticWater in mL, TargetDose in mcg or mg by unit class.
type ReconstitutionInput struct {
	PeptideSlug         string  `json:"peptide_slug"`
	VialSize            float64 `json:"vial_size"`
	BacteriostaticWater float64 `json:"bacteriostatic_water"`
	TargetDose          float64 `json:"target_dose"`
}

// ReconstitutionResult holds rounded figures. ConcentrationMcg is set only
// for microgram-class peptides and UnitsPerML only for standard mg peptides.
type ReconstitutionResult struct {
	Concentration    float64  `json:"concentration"`
	InjectionVolume  float64  `json:"injection_volume"`
	UnitsPerML       *float64 `json:"units_per_ml,omitempty"`
	ConcentrationMcg *float64 `json:"concentration_mcg,omitempty"`
	DosesPerVial     int      `json:"doses_per_vial"`
}

// Reconstitute computes concentration, draw volume and doses per vial.
// Rounding is applied to the returned values only.
func Reconstitute(in ReconstitutionInput, class UnitClass) (ReconstitutionResult, error) {
	if in.VialSize <= 0 || in.BacteriostaticWater <= 0 || in.TargetDose <= 0 {
		return ReconstitutionResult{}, invalid("All values must be greater than 0")
	}

	conc := in.VialSize / in.BacteriostaticWater

	var res ReconstitutionResult
	switch class {
	case UnitMcg:
		concMcg := conc * 1000
		volume := in.TargetDose / concMcg
		doses := math.Floor(in.VialSize * 1000 / in.TargetDose)
		if !finite(conc, concMcg, volume, doses) {
			return ReconstitutionResult{}, errNonFinite
		}
		n, err := doseCount(doses)
		if err != nil {
			return ReconstitutionResult{}, err
		}
		c := round(concMcg, 0)
		res = ReconstitutionResult{
			Concentration:    round(conc, 3),
			InjectionVolume:  round(volume, 4),
			ConcentrationMcg: &c,
			DosesPerVial:     n,
		}
	case UnitMgSmall:
		volume := in.TargetDose / conc
		doses := math.Floor(in.VialSize / in.TargetDose)
		if !finite(conc, volume, doses) {
			return ReconstitutionResult{}, errNonFinite
		}
		n, err := doseCount(doses)
		if err != nil {
			return ReconstitutionResult{}, err
		}
		res = ReconstitutionResult{
			Concentration:   round(conc, 3),
			InjectionVolume: round(volume, 4),
			DosesPerVial:    n,
		}
	default:
		volume := in.TargetDose / conc
		units := conc * 1000
		doses := math.Floor(in.VialSize / in.TargetDose)
		if !finite(conc, volume, units, doses) {
			return ReconstitutionResult{}, errNonFinite
		}
		n, err := doseCount(doses)
		if err != nil {
			return ReconstitutionResult{}, err
		}
		u := round(units, 0)
		res = ReconstitutionResult{
			Concentration:   round(conc, 3),
			InjectionVolume: round(volume, 4),
			UnitsPerML:      &u,
			DosesPerVial:    n,
		}
	}
	return res, nil
}
