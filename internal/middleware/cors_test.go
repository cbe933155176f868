package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preflight(t *testing.T, cfg *config.CORSConfig) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewCORSHandler(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/requests", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNewCORSHandler_AuthHeadersSurvivePreflight(t *testing.T) {
	// deployment config that forgot the auth headers
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}

	rec := preflight(t, cfg)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestNewCORSHandler_UnlistedOriginGetsNoAllowHeader(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://portal.campusdesk.ca"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}

	rec := preflight(t, cfg)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
