package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/mail"
)

// SuccessMessage is returned with 200 once the SMTP server accepted the message.
const SuccessMessage = "Email sent successfully"

type successResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler serves POST /send-email.
type Handler struct {
	relay mail.Relay
}

func NewHandler(relay mail.Relay) *Handler {
	return &Handler{relay: relay}
}

func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	req, err := decodeRequest(r.Body)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			log.Info("invalid request", "error", verr.Error())
			writeJSON(log, w, http.StatusUnprocessableEntity, verr)
			return
		}
		logger.FromContextWithErr(r.Context(), err).Error("failed to read request")
		writeJSON(log, w, http.StatusInternalServerError, errorResponse{Detail: mail.NewError(mail.KindUnexpected, "", err).Error()})
		return
	}

	log.Info("request received", "receiver", req.ReceiverEmail, "subject", req.Subject)

	// The SMTP session runs to completion even if the caller goes away.
	ctx := context.WithoutCancel(r.Context())
	if err := h.relay.Relay(ctx, req.Message()); err != nil {
		log.Error("failed to send email", "kind", mail.KindOf(err).String(), "error", err.Error())
		writeJSON(log, w, http.StatusInternalServerError, errorResponse{Detail: detail(err)})
		return
	}

	writeJSON(log, w, http.StatusOK, successResponse{Message: SuccessMessage})
}

// detail keeps raw errors that are not RelayError out of responses.
func detail(err error) string {
	var re *mail.RelayError
	if errors.As(err, &re) {
		return re.Error()
	}
	return mail.NewError(mail.KindUnexpected, "", err).Error()
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to write response", "error", err.Error())
	}
}
