package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpupo63/client-project-portal/errs"
	"github.com/rs/zerolog"
)

// Envelope wraps every response body.
type Envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	StatusCode int    `json:"statusCode"`
	Field      string `json:"field,omitempty"`
	Details    string `json:"details,omitempty"`
}

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

// WriteSuccess writes data inside a success envelope.
func (r Responder) WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	r.writeJSON(w, status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: status,
	})
}

func (r Responder) writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	// Marshal the data first to check size and handle errors
	jsonData, err := json.Marshal(body)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		status = http.StatusInternalServerError
		jsonData, _ = json.Marshal(Envelope{
			Message:    "An unexpected error occurred",
			StatusCode: status,
			Details:    err.Error(),
		})
	}

	const maxResponseSize = 10 * 1024 * 1024 // 10MB
	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")

		tooLarge, _ := json.Marshal(Envelope{
			Message:    "Response too large",
			StatusCode: http.StatusRequestEntityTooLarge,
			Details:    "The requested data exceeds the maximum response size",
		})
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write(tooLarge)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr

	// For unexpected errors, log and return generic internal error
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		r.writeJSON(w, http.StatusInternalServerError, Envelope{
			Message:    "An unexpected error occurred",
			StatusCode: http.StatusInternalServerError,
			Details:    err.Error(),
		})
		return
	}

	switch {
	case apiErr.StatusCode >= http.StatusInternalServerError:
		r.logger.Error().Str("error", apiErr.GetFullError()).Msg("request failed")
	case errs.IsVersionConflict(err):
		r.logger.Warn().Str("error", apiErr.GetFullError()).Msg("concurrent update rejected")
	case errs.IsForbidden(err):
		r.logger.Debug().Str("error", apiErr.GetFullError()).Msg("request forbidden")
	}

	r.writeJSON(w, apiErr.StatusCode, Envelope{
		Message:    apiErr.Error(),
		StatusCode: apiErr.StatusCode,
		Field:      apiErr.Field,
		Details:    apiErr.Details,
	})
}
