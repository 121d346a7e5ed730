// Package calculator holds the dosing calculators: vial reconstitution,
// the melanotan protocol planner and BMI/BMR/TDEE.
package calculator

import (
	"errors"
	"math"
)

// UnitClass selects which reconstitution formula applies to a peptide.
type UnitClass string

const (
	// UnitMcg peptides are dosed in micrograms.
	UnitMcg UnitClass = "mcg"
	// UnitMgSmall peptides are dosed in small whole-milligram amounts.
	UnitMgSmall UnitClass = "mg_small"
	// UnitMg peptides are dosed in milligrams and report units per mL.
	UnitMg UnitClass = "mg"
)

// Valid reports whether c is one of the known classes.
func (c UnitClass) Valid() bool {
	switch c {
	case UnitMcg, UnitMgSmall, UnitMg:
		return true
	}
	return false
}

// ErrInvalidInput matches every *InputError.
var ErrInvalidInput = errors.New("invalid input")

// errNonFinite is returned when inputs are so large or small that a derived
// value overflows.
var errNonFinite = errors.New("calculation produced a non-finite value")

// errDoseRange is returned when a finite dose count does not fit in an int.
var errDoseRange = errors.New("dose count exceeds integer range")

// InputError is a validation failure whose Detail is safe to show callers.
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return e.Detail }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(detail string) error { return &InputError{Detail: detail} }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// doseCount converts a floored dose count to int.
func doseCount(d float64) (int, error) {
	if d >= math.MaxInt {
		return 0, errDoseRange
	}
	return int(d), nil
}
