package calculator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideprofessor/metrics"
)

type fakePeptides map[string]UnitClass

func (f fakePeptides) UnitClassOf(slug string) (string, UnitClass, bool) {
	c, ok := f[slug]
	return slug, c, ok
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	audit, err := NewAuditLog(100)
	require.NoError(t, err)
	return &Handler{
		Peptides: fakePeptides{"bpc-157": UnitMcg, "tb-500": UnitMgSmall, "semaglutide": UnitMg},
		Audit:    audit,
		Metrics:  metrics.New(),
	}
}

func post(t *testing.T, fn http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	var b []byte
	switch v := body.(type) {
	case string:
		b = []byte(v)
	default:
		var err error
		b, err = json.Marshal(v)
		require.NoError(t, err)
	}
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest("POST", "/", bytes.NewReader(b)))
	return rec
}

func TestHandleReconstitution(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h.HandleReconstitution, map[string]any{
		"peptide_slug": "BPC-157", "vial_size": 5, "bacteriostatic_water": 2, "target_dose": 250,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"concentration":2.5,"injection_volume":0.1,"concentration_mcg":2500,"doses_per_vial":20}`, rec.Body.String())
	assert.Equal(t, 1, h.Audit.Len(), "successful calculations are audited")
}

func TestHandleReconstitution_Errors(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h.HandleReconstitution, map[string]any{
		"peptide_slug": "bpc-157", "vial_size": 0, "bacteriostatic_water": 2, "target_dose": 250,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"All values must be greater than 0"}`, rec.Body.String())

	rec = post(t, h.HandleReconstitution, map[string]any{
		"peptide_slug": "unobtainium", "vial_size": 5, "bacteriostatic_water": 2, "target_dose": 250,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Peptide not found in database"}`, rec.Body.String())

	// Validation runs before the lookup.
	rec = post(t, h.HandleReconstitution, map[string]any{
		"peptide_slug": "unobtainium", "vial_size": -1, "bacteriostatic_water": 2, "target_dose": 250,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h.HandleReconstitution, `{"peptide_slug":`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = post(t, h.HandleReconstitution, map[string]any{
		"peptide_slug": "bpc-157", "vial_size": 1.7e308, "bacteriostatic_water": 1e-300, "target_dose": 1,
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Calculation failed"}`, rec.Body.String())

	assert.Equal(t, 0, h.Audit.Len())
}

func TestHandleMelanotan(t *testing.T) {
	h := newTestHandler(t)
	in := map[string]any{"peptide": "mt2", "fitzpatrick_scale": 3, "uv_exposure": "moderate", "sensitivity": "normal", "target_tan": "medium"}

	rec := post(t, h.HandleMelanotan, in)
	require.Equal(t, http.StatusOK, rec.Code)

	var got MelanotanProtocol
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	_, err := uuid.Parse(got.CalculationID)
	assert.NoError(t, err, "calculation_id is a uuid")
	assert.Equal(t, 225, got.LoadingPhase.DailyDose)
	assert.Len(t, got.SafetyWarnings, 5)
	assert.NotNil(t, got.RedFlags)

	again := post(t, h.HandleMelanotan, in)
	var second MelanotanProtocol
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &second))
	assert.NotEqual(t, got.CalculationID, second.CalculationID)
	second.CalculationID = got.CalculationID
	assert.Equal(t, got, second)
}

func TestHandleMelanotan_Strict(t *testing.T) {
	h := newTestHandler(t)
	bad := map[string]any{"peptide": "mt9", "fitzpatrick_scale": 3, "uv_exposure": "moderate", "sensitivity": "normal", "target_tan": "medium"}

	rec := post(t, h.HandleMelanotan, bad)
	assert.Equal(t, http.StatusOK, rec.Code, "tolerant by default")

	h.Strict = true
	rec = post(t, h.HandleMelanotan, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Peptide must be 'mt1' or 'mt2'"}`, rec.Body.String())
}

func TestHandleBMI(t *testing.T) {
	h := newTestHandler(t)

	rec := post(t, h.HandleBMI, map[string]any{"age": 30, "sex": "male", "height_cm": 180, "weight_kg": 90, "activity_level": "moderately_active"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 27.8, got["bmi"])
	assert.Equal(t, "Overweight", got["bmi_category"])
	assert.Equal(t, 1880.0, got["bmr"])
	assert.NotEmpty(t, got["calculation_id"])
	assert.Contains(t, got["warnings"], "Overweight BMI may increase health risks. Consider gradual weight loss.")

	rec = post(t, h.HandleBMI, map[string]any{"age": 30, "sex": "male", "height_cm": 180, "weight_kg": 70, "activity_level": "sedentary"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "weekly_calorie_deficit")
	assert.Contains(t, rec.Body.String(), `"warnings":[]`)

	rec = post(t, h.HandleBMI, map[string]any{"age": 30, "sex": "x", "height_cm": 180, "weight_kg": 70})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Sex must be 'male' or 'female'"}`, rec.Body.String())
}
