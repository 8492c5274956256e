package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/domain"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every API response body.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Status: StatusError, Message: message})
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError answers with the status and public message for err.
// Internal errors are logged with their detail.
func WriteServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.Error().Err(err).Msg("Request failed")
	}
	WriteError(w, StatusFor(kind), domain.PublicMessage(err))
}
