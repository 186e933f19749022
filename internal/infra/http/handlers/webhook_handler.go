package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/xavierca1/lead-webhooks/internal/entity"
	"github.com/xavierca1/lead-webhooks/internal/infra/http/middleware"
	"github.com/xavierca1/lead-webhooks/internal/usecase"
	"github.com/xavierca1/lead-webhooks/internal/webhook"
)

const recipientNotFoundMsg = "Unable to resolve the recipient email address..."

type WebhookHandler struct {
	UC     *usecase.ProcessWebhookEventUseCase
	APIKey string
	Logger zerolog.Logger
}

func NewWebhookHandler(uc *usecase.ProcessWebhookEventUseCase, apiKey string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		UC:     uc,
		APIKey: apiKey,
		Logger: logger,
	}
}

// Handle builds the endpoint for one event kind. Every kind runs the same
// pipeline: method check, decode, signature check, lookup + mutate, envelope.
func (h *WebhookHandler) Handle(kind webhook.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			MethodNotAllowed(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			middleware.RecordWebhookEvent(string(kind), "malformed")
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"Error": "unable to parse form payload",
			})
			return
		}

		ev, err := webhook.Decode(kind, r.PostForm)
		if err != nil {
			middleware.RecordWebhookEvent(string(kind), "malformed")
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"Error": err.Error(),
			})
			return
		}

		// AUTH_CHECK always runs before the lookup touches the database.
		if !webhook.Verify(h.APIKey, ev.Token, ev.Timestamp, ev.Signature) {
			middleware.RecordWebhookEvent(string(kind), "rejected")
			writeJSON(w, http.StatusConflict, map[string]any{
				"Signature": ev.Signature,
				"Token":     ev.Token,
			})
			return
		}

		out, err := h.UC.Execute(r.Context(), ev)

		switch {
		case errors.Is(err, entity.ErrLeadNotFound):
			middleware.RecordWebhookEvent(string(kind), "not_found")
			middleware.RecordLeadLookupFailure()
			writeJSON(w, http.StatusNotFound, map[string]any{
				"Error": recipientNotFoundMsg,
			})

		case errors.Is(err, entity.ErrAmbiguousLead):
			// Data integrity problem on our side, not a caller conflict.
			middleware.RecordWebhookEvent(string(kind), "ambiguous")
			h.Logger.Error().Str("event", string(kind)).Msg("ambiguous recipient match")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"Error": entity.ErrAmbiguousLead.Error(),
			})

		case err != nil:
			middleware.RecordWebhookEvent(string(kind), "error")
			h.Logger.Error().Err(err).Str("event", string(kind)).Msg("webhook mutation failed")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"Database Error": err.Error(),
			})

		default:
			middleware.RecordWebhookEvent(string(kind), "accepted")
			writeJSON(w, http.StatusAccepted, map[string]any{
				out.IDField: out.ID,
				"email":     out.Email,
				"event":     out.Event,
				"status":    "success",
			})
		}
	}
}

// MethodNotAllowed is wired as the router-wide 405 handler too.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"Message": "Method Not Allowed",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
