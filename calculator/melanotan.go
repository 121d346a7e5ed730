package calculator

import "fmt"

// MelanotanInput describes the person a protocol is planned for.
type MelanotanInput struct {
	Peptide          string `json:"peptide"` // mt1 or mt2
	FitzpatrickScale int    `json:"fitzpatrick_scale"`
	UVExposure       string `json:"uv_exposure"`
	Sensitivity      string `json:"sensitivity"`
	TargetTan        string `json:"target_tan"`
}

// ScheduleDay is one day of the loading phase.
type ScheduleDay struct {
	Day   int    `json:"day"`
	Dose  int    `json:"dose"`
	Notes string `json:"notes"`
}

// LoadingPhase is the initial daily course. Doses are in mcg.
type LoadingPhase struct {
	DailyDose int           `json:"daily_dose"`
	Duration  int           `json:"duration"`
	Schedule  []ScheduleDay `json:"schedule"`
}

// MaintenancePhase is the sustaining dose after loading.
type MaintenancePhase struct {
	Dose      int    `json:"dose"`
	Frequency string `json:"frequency"`
}

type Timeline struct {
	EstimatedDaysToTarget int `json:"estimated_days_to_target"`
}

// MelanotanProtocol is the planned schedule plus advisories.
type MelanotanProtocol struct {
	LoadingPhase     LoadingPhase     `json:"loading_phase"`
	MaintenancePhase MaintenancePhase `json:"maintenance_phase"`
	Timeline         Timeline         `json:"timeline"`
	RedFlags         []string         `json:"red_flags"`
	SafetyWarnings   []string         `json:"safety_warnings"`
	CalculationID    string           `json:"calculation_id"`
}

type baseDose struct{ loading, maintenance float64 }

var (
	melanotanBase = map[string]baseDose{
		"mt1": {loading: 500, maintenance: 250},
		"mt2": {loading: 250, maintenance: 125},
	}
	fitzpatrickFactor = map[int]float64{1: 1.2, 2: 1.1, 3: 1.0, 4: 0.9, 5: 0.8, 6: 0.7}
	uvFactor          = map[string]float64{"minimal": 1.0, "moderate": 0.9, "frequent": 0.8}
	sensitivityFactor = map[string]float64{"high": 0.7, "normal": 1.0, "low": 1.2}
	targetDays        = map[string]int{"light": 14, "medium": 21, "dark": 35}
)

const (
	defaultVariant     = "mt2"
	defaultTargetDays  = 21
	fairSkinPenalty    = 7
	fullDoseDays       = 3
	taperRatio         = 0.8
	maintenanceCadence = "2-3 times per week"
)

var safetyWarnings = []string{
	"Always use sterile injection technique",
	"Monitor all moles and skin changes closely",
	"Use broad-spectrum sunscreen (SPF 30+)",
	"Start with lower doses to assess tolerance",
	"Discontinue if unusual skin changes occur",
}

func factor[K comparable](table map[K]float64, key K) float64 {
	if f, ok := table[key]; ok {
		return f
	}
	return 1.0
}

// PlanMelanotan builds a loading and maintenance protocol. Unknown variants
// use mt2 doses and unknown categories use a neutral factor; it never fails.
// The returned CalculationID is empty; callers assign one.
func PlanMelanotan(in MelanotanInput) MelanotanProtocol {
	base, ok := melanotanBase[in.Peptide]
	if !ok {
		base = melanotanBase[defaultVariant]
	}

	mult := factor(fitzpatrickFactor, in.FitzpatrickScale) *
		factor(uvFactor, in.UVExposure) *
		factor(sensitivityFactor, in.Sensitivity)

	loading := int(base.loading * mult)
	maintenance := int(base.maintenance * mult)

	duration := 5
	if in.Peptide == "mt1" {
		duration = 7
	}
	tapered := int(float64(loading) * taperRatio)
	schedule := make([]ScheduleDay, 0, duration)
	for day := 1; day <= duration; day++ {
		if day <= fullDoseDays {
			schedule = append(schedule, ScheduleDay{Day: day, Dose: loading, Notes: "Loading phase"})
		} else {
			schedule = append(schedule, ScheduleDay{Day: day, Dose: tapered, Notes: "Tapering"})
		}
	}

	fairSkin := in.FitzpatrickScale <= 2
	redFlags := []string{}
	if fairSkin && in.TargetTan == "dark" {
		redFlags = append(redFlags, "EXTREME CAUTION: Fair skin + dark tan target significantly increases cancer risk")
	}
	if in.Peptide == "mt2" && in.Sensitivity == "high" {
		redFlags = append(redFlags, "MT-2 with high sensitivity may cause severe nausea and flushing")
	}

	days, ok := targetDays[in.TargetTan]
	if !ok {
		days = defaultTargetDays
	}
	if fairSkin {
		days += fairSkinPenalty
	}

	return MelanotanProtocol{
		LoadingPhase:     LoadingPhase{DailyDose: loading, Duration: duration, Schedule: schedule},
		MaintenancePhase: MaintenancePhase{Dose: maintenance, Frequency: maintenanceCadence},
		Timeline:         Timeline{EstimatedDaysToTarget: days},
		RedFlags:         redFlags,
		SafetyWarnings:   append([]string(nil), safetyWarnings...),
	}
}

// ValidateMelanotan rejects inputs PlanMelanotan would silently default.
func ValidateMelanotan(in MelanotanInput) error {
	if _, ok := melanotanBase[in.Peptide]; !ok {
		return invalid("Peptide must be 'mt1' or 'mt2'")
	}
	if _, ok := fitzpatrickFactor[in.FitzpatrickScale]; !ok {
		return invalid("Fitzpatrick scale must be between 1 and 6")
	}
	if _, ok := uvFactor[in.UVExposure]; !ok {
		return invalid(fmt.Sprintf("Unknown UV exposure %q", in.UVExposure))
	}
	if _, ok := sensitivityFactor[in.Sensitivity]; !ok {
		return invalid(fmt.Sprintf("Unknown sensitivity %q", in.Sensitivity))
	}
	if _, ok := targetDays[in.TargetTan]; !ok {
		return invalid(fmt.Sprintf("Unknown target tan %q", in.TargetTan))
	}
	return nil
}
