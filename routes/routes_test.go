package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tournament-registry/handlers"
	"github.com/Dosada05/tournament-registry/middleware"
)

const testSecret = "test-secret"

func newTestRouter() http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	SetupRoutes(router, middleware.NewAuthenticator(testSecret, logger), Handlers{
		Health:       handlers.NewHealthHandler(nil, logger),
		Tournament:   handlers.NewTournamentHandler(nil, nil, logger),
		Registration: handlers.NewRegistrationHandler(nil, logger),
		Match:        handlers.NewMatchHandler(nil, logger),
		Team:         handlers.NewTeamHandler(nil, nil, logger),
		Dashboard:    handlers.NewDashboardHandler(nil, logger),
		WebSocket:    handlers.NewWebSocketHandler(nil, nil, nil, logger),
	}, Options{AllowedOrigins: []string{"https://app.example"}, RequestTimeout: time.Second})
	return router
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestRoutesRequireAuthentication(t *testing.T) {
	router := newTestRouter()
	for _, path := range []string{"/me/stats", "/me/registrations", "/organizer/dashboard"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournaments/t1/registrations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrganizerRoutesRejectPlayers(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/organizer/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "player"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/tournaments", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "player"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tournaments/{id}/registrations")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/tournaments", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
