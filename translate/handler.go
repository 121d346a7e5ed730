package translate

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"peptideprofessor/httputil"
	"peptideprofessor/logging"
)

type Handler struct {
	Client *Client
}

type Request struct {
	Text       string `json:"text" validate:"required"`
	TargetLang string `json:"target_lang" validate:"required,max=10"`
}

func (h *Handler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.ValidationMessage(err))
		return
	}

	body, err := h.Client.Translate(r.Context(), req.Text, req.TargetLang)
	switch {
	case errors.Is(err, ErrNotConfigured):
		httputil.WriteError(w, http.StatusInternalServerError, "Translation API key not configured")
		return
	case errors.Is(err, ErrUpstream):
		httputil.WriteError(w, http.StatusInternalServerError, "Translation service error")
		return
	case err != nil:
		logging.FromContext(r.Context()).Error("translate", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Translation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}
