package calculator

import "strings"

type BMIInput struct {
	Age           int     `json:"age"`
	Sex           string  `json:"sex"`
	HeightCM      float64 `json:"height_cm"`
	WeightKG      float64 `json:"weight_kg"`
	ActivityLevel string  `json:"activity_level"`
}

// BMIResult holds rounded body metrics. The weight-loss fields are set only
// for overweight and obese results.
type BMIResult struct {
	BMI                  float64  `json:"bmi"`
	BMICategory          string   `json:"bmi_category"`
	BMR                  float64  `json:"bmr"`
	TDEE                 float64  `json:"tdee"`
	HealthyWeightMin     float64  `json:"healthy_weight_min"`
	HealthyWeightMax     float64  `json:"healthy_weight_max"`
	WeeklyCalorieDeficit *float64 `json:"weekly_calorie_deficit,omitempty"`
	WeeksToHealthyBMI    *int     `json:"weeks_to_healthy_bmi,omitempty"`
	Warnings             []string `json:"warnings"`
	CalculationID        string   `json:"calculation_id"`
}

var activityFactor = map[string]float64{
	"sedentary":         1.2,
	"lightly_active":    1.375,
	"moderately_active": 1.55,
	"very_active":       1.725,
	"extremely_active":  1.9,
}

const defaultActivityFactor = 1.55

// ComputeBMI derives BMI, Mifflin-St Jeor BMR and TDEE. The returned
// CalculationID is empty; callers assign one.
func ComputeBMI(in BMIInput) (BMIResult, error) {
	if in.Age <= 0 || in.HeightCM <= 0 || in.WeightKG <= 0 {
		return BMIResult{}, invalid("Age, height, and weight must be greater than 0")
	}
	if in.Sex != "male" && in.Sex != "female" {
		return BMIResult{}, invalid("Sex must be 'male' or 'female'")
	}

	heightM := in.HeightCM / 100
	h2 := heightM * heightM
	bmi := in.WeightKG / h2

	var category string
	switch {
	case bmi < 18.5:
		category = "Underweight"
	case bmi < 25:
		category = "Normal weight"
	case bmi < 30:
		category = "Overweight"
	default:
		category = "Obese"
	}

	bmr := 10*in.WeightKG + 6.25*in.HeightCM - 5*float64(in.Age)
	if in.Sex == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	mult, ok := activityFactor[strings.ReplaceAll(strings.ToLower(in.ActivityLevel), " ", "_")]
	if !ok {
		mult = defaultActivityFactor
	}
	tdee := bmr * mult

	minWeight := 18.5 * h2
	maxWeight := 24.9 * h2
	if !finite(bmi, bmr, tdee, minWeight, maxWeight) {
		return BMIResult{}, errNonFinite
	}

	res := BMIResult{
		BMI:              round(bmi, 1),
		BMICategory:      category,
		BMR:              round(bmr, 0),
		TDEE:             round(tdee, 0),
		HealthyWeightMin: round(minWeight, 1),
		HealthyWeightMax: round(maxWeight, 1),
		Warnings:         []string{},
	}

	switch {
	case bmi < 18.5:
		res.Warnings = append(res.Warnings, "Underweight BMI may indicate nutritional deficiency. Consult healthcare provider.")
	case bmi >= 30:
		res.Warnings = append(res.Warnings, "Obese BMI increases health risks. Consider professional weight management support.")
		if excess := in.WeightKG - 25*h2; excess > 0 {
			setWeightLoss(&res, 3500, excess*2.2)
		}
	case bmi >= 25:
		res.Warnings = append(res.Warnings, "Overweight BMI may increase health risks. Consider gradual weight loss.")
		if excess := in.WeightKG - 24.9*h2; excess > 0 {
			setWeightLoss(&res, 2500, excess*2.2*1.4)
		}
	}

	if in.Age > 65 {
		res.Warnings = append(res.Warnings, "For adults over 65, slightly higher BMI (23-30) may be protective.")
	}
	if in.Age < 18 {
		res.Warnings = append(res.Warnings, "BMI calculations for individuals under 18 should use pediatric growth charts.")
	}
	return res, nil
}

// setWeightLoss records a weekly deficit (kcal) and the weeks needed at
// roughly a pound a week.
func setWeightLoss(res *BMIResult, deficit, weeks float64) {
	weeksInt := int(weeks)
	res.WeeklyCalorieDeficit = &deficit
	res.WeeksToHealthyBMI = &weeksInt
}
