// Package contact stores contact form submissions and notifies the admin.
package contact

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"peptideprofessor/db"
	"peptideprofessor/httputil"
	"peptideprofessor/logging"
	"peptideprofessor/mail"
)

type Handler struct {
	DB         *db.CompatDB
	Mail       mail.Sender
	From       string
	AdminEmail string
	Now        func() time.Time
}

type Form struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=300"`
	Message string `json:"message" validate:"required,max=10000"`
}

// HandleSubmit stores the message; notification failures are only logged.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var form Form
	if err := httputil.DecodeJSON(r, &form); err != nil {
		httputil.WriteDecodeError(w, err)
		return
	}
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Subject = strings.TrimSpace(form.Subject)
	if err := httputil.Validate(form); err != nil {
		httputil.WriteError(w, http.StatusUnprocessableEntity, httputil.ValidationMessage(err))
		return
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	_, err := h.DB.ExecContext(r.Context(),
		`INSERT INTO contact_messages (id, name, email, subject, message, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), form.Name, form.Email, form.Subject, form.Message, db.Timestamp(now))
	if err != nil {
		log.Error("store contact message", zap.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "Contact form submission failed")
		return
	}
	log.Info("contact form submission", zap.String("email", logging.MaskEmail(form.Email)), zap.String("subject", form.Subject))

	msg, err := mail.ContactNotification(h.From, h.AdminEmail, mail.ContactFields{
		Name: form.Name, Email: form.Email, Subject: form.Subject, Message: form.Message,
	})
	if err != nil {
		log.Error("render contact notification", zap.Error(err))
	} else if err := h.Mail.Send(r.Context(), msg); err != nil {
		log.Error("send contact notification", zap.Error(err))
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Contact form submitted successfully"})
}
