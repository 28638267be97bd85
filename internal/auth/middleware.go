// Package auth validates bearer tokens issued by the identity provider and
// resolves them to stored users.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/config"
)

var ErrUnknownUser = errors.New("auth: token subject has no user")

type ctxKey int

const (
	identityKey ctxKey = iota
	userIDKey
)

// Identity is what a verified token says about the caller.
type Identity struct {
	Auth0ID string
	Email   string
}

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserResolver maps an identity-provider subject to the stored user id.
type UserResolver interface {
	ResolveUserID(ctx context.Context, auth0ID string) (uuid.UUID, error)
}

type Authenticator struct {
	secret     []byte
	parser     *jwt.Parser
	isNotFound func(error) bool
}

// NewAuthenticator accepts HS256 tokens signed with cfg.JWTSecret. Issuer and
// audience are checked when configured. isNotFound tells RequireUser which
// resolver errors mean the caller has not registered yet.
func NewAuthenticator(cfg config.AuthConfig, isNotFound func(error) bool) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Authenticator{
		secret:     []byte(cfg.JWTSecret),
		parser:     jwt.NewParser(opts...),
		isNotFound: isNotFound,
	}
}

func (a *Authenticator) ParseToken(tokenStr string) (Identity, error) {
	claims := &Claims{}
	token, err := a.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, errors.New("auth: token has no subject")
	}

	return Identity{Auth0ID: claims.Subject, Email: claims.Email}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's Identity in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Fields(r.Header.Get("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization header")
			return
		}

		identity, err := a.ParseToken(parts[1])
		if err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("auth: rejected token")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireUser must run after Authenticate. It resolves the token subject to a
// stored user and puts the user id in the request context.
func (a *Authenticator) RequireUser(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			userID, err := resolver.ResolveUserID(r.Context(), identity.Auth0ID)
			if err != nil {
				if a.isNotFound != nil && a.isNotFound(err) {
					log.Warn().Str("auth0_id", identity.Auth0ID).Msg("auth: no user for token subject")
					writeError(w, http.StatusUnauthorized, ErrUnknownUser.Error())
					return
				}
				log.Error().Err(err).Str("auth0_id", identity.Auth0ID).Msg("auth: failed to resolve user")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Error().Err(err).Msg("auth: failed to write error response")
	}
}
