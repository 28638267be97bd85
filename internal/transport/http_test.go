package transport_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	handler "github.com/vasiliy-maslov/food-ordering/internal/handler/http"
	"github.com/vasiliy-maslov/food-ordering/internal/transport"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(router chi.Router, mw handler.Middlewares) {
	router.With(mw.Authenticate).Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func newTestRouter() *chi.Mux {
	mw := handler.Middlewares{Authenticate: denyAll, RequireUser: denyAll}
	return transport.NewRouter(mw, "http://localhost:5173", pingRoutes{})
}

func TestRouter_Health(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"health OK!"}`, rr.Body.String())
}

func TestRouter_AppliesHandlerMiddlewares(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	assert.Less(t, rr.Code, http.StatusMultipleChoices)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
}

func TestRouter_CORSRejectsOtherOrigins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_PlainOptionsReachesRoutes(t *testing.T) {
	tests := []struct {
		name   string
		origin string
	}{
		{name: "no_origin"},
		{name: "allowed_origin_without_preflight", origin: "http://localhost:5173"},
		{name: "other_origin", origin: "https://evil.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rr, req)

			// only GET is registered, so chi answers the OPTIONS itself
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		})
	}
}
