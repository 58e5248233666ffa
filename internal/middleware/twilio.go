package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/audit"
	"github.com/bobotcho/concierge-server-go/internal/httputil"
	"github.com/bobotcho/concierge-server-go/internal/twilio"
)

const WebhookFormContextKey contextKey = "webhookForm"

// GetWebhookForm returns the form parameters the signature was verified
// against, or nil outside the webhook pipeline.
func GetWebhookForm(ctx context.Context) url.Values {
	if form, ok := ctx.Value(WebhookFormContextKey).(url.Values); ok {
		return form
	}
	return nil
}

type TwilioSignatureMiddleware struct {
	validator     *twilio.Validator
	publicBaseURL string
	configured    bool
}

func NewTwilioSignatureMiddleware(authToken, publicBaseURL string) *TwilioSignatureMiddleware {
	return &TwilioSignatureMiddleware{
		validator:     twilio.NewValidator(authToken),
		publicBaseURL: publicBaseURL,
		configured:    authToken != "",
	}
}

func (m *TwilioSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get(twilio.SignatureHeader)
		if signature == "" {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventWebhookSignatureMissing})
			httputil.WriteText(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		// An unset auth token is a deployment fault. Failing open would
		// accept forged deliveries, so the request is rejected instead.
		if !m.configured {
			log.Error().Msg("twilio signature middleware: auth token is not configured")
			httputil.WriteText(w, http.StatusInternalServerError, "Webhook misconfigured")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("twilio signature middleware: failed to read body")
			httputil.WriteText(w, http.StatusInternalServerError, "Failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		form, err := url.ParseQuery(string(body))
		if err != nil {
			log.Warn().Err(err).Msg("twilio signature middleware: malformed form body")
			httputil.WriteText(w, http.StatusBadRequest, "Malformed request body")
			return
		}

		candidates := twilio.URLCandidates(r, m.publicBaseURL)
		if !m.validator.ValidateAny(signature, candidates, form) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventWebhookSignatureInvalid})
			httputil.WriteText(w, http.StatusForbidden, "Invalid signature")
			return
		}

		ctx := context.WithValue(r.Context(), WebhookFormContextKey, form)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
