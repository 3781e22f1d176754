// internal/auth/middleware.go

// Package auth verifies externally issued access tokens and places the
// caller's identity in the request context.
package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/imadgeboyega/kiekky-circles/internal/circles"
	"github.com/imadgeboyega/kiekky-circles/internal/common/utils"
)

// Middleware provides authentication middleware
type Middleware struct {
	secret string
	logger zerolog.Logger
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(secret string, logger zerolog.Logger) *Middleware {
	return &Middleware{
		secret: secret,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate is the main middleware function that protects routes
// It verifies the JWT token and adds the caller to the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Extract token from Authorization header or query
		token := m.extractToken(r)
		if token == "" {
			utils.ErrorResponse(w, "Missing or invalid authorization header", http.StatusUnauthorized)
			return
		}

		// 2. Validate token
		claims, err := utils.ValidateJWT(token, m.secret)
		if err != nil {
			m.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejected")
			utils.ErrorResponse(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		// 3. Check if it's an access token (not refresh)
		if claims.Type != "access" {
			utils.ErrorResponse(w, "Invalid token type", http.StatusUnauthorized)
			return
		}

		// 4. Add the caller to the request context
		ctx := circles.WithUser(r.Context(), circles.CurrentUser{
			ID:          claims.UserID,
			DisplayName: claims.DisplayName,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken supports "Bearer <token>" and, for websocket upgrades that
// cannot set headers, a token query parameter
func (m *Middleware) extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return ""
		}
		return parts[1]
	}
	return r.URL.Query().Get("token")
}
