package http_test

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/food-ordering/internal/auth"
	handler "github.com/vasiliy-maslov/food-ordering/internal/handler/http"
)

const testAuth0ID = "auth0|test-user"

var testUserID = uuid.Must(uuid.FromString("3d5a1f0e-8c7b-4a2e-9f10-aa00bb11cc22"))

// testMiddlewares authenticate every request as testAuth0ID / testUserID.
func testMiddlewares() handler.Middlewares {
	return handler.Middlewares{
		Authenticate: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := auth.WithIdentity(r.Context(), auth.Identity{Auth0ID: testAuth0ID, Email: "test@example.com"})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		},
		RequireUser: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), testUserID)))
			})
		},
	}
}

type routeRegistrar interface {
	RegisterRoutes(router chi.Router, mw handler.Middlewares)
}

func newRouter(h routeRegistrar) *chi.Mux {
	router := chi.NewRouter()
	h.RegisterRoutes(router, testMiddlewares())
	return router
}

func newValidator() *validator.Validate {
	return handler.NewValidator()
}
