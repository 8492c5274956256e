package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeetech/transactions/internal/domain"
)

type mockVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (*domain.UserInfo, error)
}

func (m *mockVerifier) VerifySessionToken(ctx context.Context, token string) (*domain.UserInfo, error) {
	return m.VerifyFunc(ctx, token)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAuth(t *testing.T) {
	verifier := &mockVerifier{VerifyFunc: func(ctx context.Context, token string) (*domain.UserInfo, error) {
		switch token {
		case "good":
			return &domain.UserInfo{UserID: 5, Name: "Ana"}, nil
		case "broken":
			return nil, errors.New("connection refused")
		default:
			return nil, nil
		}
	}}

	var seen *domain.UserInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(verifier, zerolog.Nop(), "/health")(next)

	tests := []struct {
		name        string
		target      string
		header      string
		wantStatus  int
		wantMessage string
		wantUser    int64
	}{
		{name: "public path", target: "/health", wantStatus: http.StatusOK},
		{name: "missing token", target: "/reports/financial-report", wantStatus: http.StatusUnauthorized, wantMessage: "missing session token"},
		{name: "bearer token", target: "/x", header: "Bearer good", wantStatus: http.StatusOK, wantUser: 5},
		{name: "query token", target: "/x?session_token=good", wantStatus: http.StatusOK, wantUser: 5},
		{name: "invalid token", target: "/x", header: "Bearer stale", wantStatus: http.StatusUnauthorized, wantMessage: "session expired, logging out"},
		{name: "verifier failure", target: "/x", header: "Bearer broken", wantStatus: http.StatusInternalServerError, wantMessage: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				env := decodeEnvelope(t, rec)
				assert.Equal(t, StatusError, env.Status)
				assert.Equal(t, tt.wantMessage, env.Message)
			}
			if tt.wantUser != 0 {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantUser, seen.UserID)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrPlotNotFound, http.StatusNotFound},
		{domain.ErrMultiFarmMismatch, http.StatusBadRequest},
		{domain.ErrInsufficientPermission, http.StatusForbidden},
		{domain.ErrInvalidSession, http.StatusUnauthorized},
		{domain.ErrActiveStateMissing, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(domain.KindOf(tt.err)))
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteServiceError(rec, zerolog.Nop(), fmt.Errorf("query: %w", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "internal server error", env.Message)
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, http.StatusCreated, "created", map[string]int{"id": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"success","message":"created","data":{"id":1}}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	var fromCtx string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc", fromCtx)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, fromCtx, 36)
	assert.Equal(t, fromCtx, rec.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, StatusError, decodeEnvelope(t, rec).Status)
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
