package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/coffeetech/transactions/internal/api/middleware"
	"github.com/coffeetech/transactions/internal/domain"
	"github.com/coffeetech/transactions/internal/logger"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body into dst, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			middleware.WriteError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// currentUser returns the authenticated user, answering 401 when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.UserInfo, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "missing session token")
		return nil, false
	}
	return user, true
}

// parseID parses a positive integer path segment.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requestLog returns the request-scoped logger set by the auth middleware, or fallback.
func requestLog(r *http.Request, fallback zerolog.Logger) zerolog.Logger {
	return logger.FromContextOr(r.Context(), fallback)
}
