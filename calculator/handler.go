package calculator

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peptideprofessor/httputil"
	"peptideprofessor/logging"
	"peptideprofessor/metrics"
)

// PeptideLookup resolves a catalog slug to its display name and unit class.
type PeptideLookup interface {
	UnitClassOf(slug string) (name string, class UnitClass, ok bool)
}

// Handler holds dependencies for the calculator endpoints.
type Handler struct {
	Peptides PeptideLookup
	Audit    *AuditLog
	Metrics  *metrics.Metrics
	// Strict rejects unrecognized melanotan categories instead of
	// substituting defaults.
	Strict bool
}

// HandleReconstitution computes vial reconstitution for a catalog peptide.
func (h *Handler) HandleReconstitution(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var in ReconstitutionInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	if in.VialSize <= 0 || in.BacteriostaticWater <= 0 || in.TargetDose <= 0 {
		h.Metrics.Calculation("reconstitution", "invalid")
		httputil.WriteError(w, http.StatusBadRequest, "All values must be greater than 0")
		return
	}

	slug := strings.ToLower(in.PeptideSlug)
	name, class, ok := h.Peptides.UnitClassOf(slug)
	if !ok {
		h.Metrics.Calculation("reconstitution", "not_found")
		httputil.WriteError(w, http.StatusNotFound, "Peptide not found in database")
		return
	}

	res, err := Reconstitute(in, class)
	if err != nil {
		h.writeCalcError(w, r, "reconstitution", err, "Calculation failed")
		return
	}

	token := h.Audit.Record(AuditRecord{
		Kind:       "reconstitution",
		Peptide:    name,
		DosingType: class,
		Input:      in,
		Result:     res,
	})
	h.Metrics.Calculation("reconstitution", "ok")
	log.Info("reconstitution calculated",
		zap.String("peptide", name),
		zap.String("unit_class", string(class)),
		zap.String("audit_token", token),
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleMelanotan plans a melanotan loading and maintenance protocol.
func (h *Handler) HandleMelanotan(w http.ResponseWriter, r *http.Request) {
	var in MelanotanInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	if h.Strict {
		if err := ValidateMelanotan(in); err != nil {
			h.writeCalcError(w, r, "melanotan", err, "Melanotan calculation failed")
			return
		}
	}

	protocol := PlanMelanotan(in)
	protocol.CalculationID = uuid.NewString()
	h.Audit.Record(AuditRecord{Kind: "melanotan", Peptide: in.Peptide, Input: in, Result: protocol})
	h.Metrics.Calculation("melanotan", "ok")
	logging.FromContext(r.Context()).Info("melanotan protocol planned",
		zap.String("calculation_id", protocol.CalculationID),
		zap.Int("red_flags", len(protocol.RedFlags)),
	)
	httputil.WriteJSON(w, http.StatusOK, protocol)
}

// HandleBMI computes BMI, BMR and TDEE.
func (h *Handler) HandleBMI(w http.ResponseWriter, r *http.Request) {
	var in BMIInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}

	res, err := ComputeBMI(in)
	if err != nil {
		h.writeCalcError(w, r, "bmi", err, "BMI calculation failed")
		return
	}
	res.CalculationID = uuid.NewString()
	h.Audit.Record(AuditRecord{Kind: "bmi", Input: in, Result: res})
	h.Metrics.Calculation("bmi", "ok")
	logging.FromContext(r.Context()).Info("bmi calculated", zap.String("calculation_id", res.CalculationID))
	httputil.WriteJSON(w, http.StatusOK, res)
}

// writeCalcError maps validation failures to 400 and anything else to a
// generic 500.
func (h *Handler) writeCalcError(w http.ResponseWriter, r *http.Request, kind string, err error, generic string) {
	var ie *InputError
	if errors.As(err, &ie) {
		h.Metrics.Calculation(kind, "invalid")
		httputil.WriteError(w, http.StatusBadRequest, ie.Detail)
		return
	}
	h.Metrics.Calculation(kind, "error")
	logging.FromContext(r.Context()).Error("calculation failed", zap.String("kind", kind), zap.Error(err))
	httputil.WriteError(w, http.StatusInternalServerError, generic)
}
