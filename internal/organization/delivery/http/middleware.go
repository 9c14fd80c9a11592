package http

import (
	"net/http"
	"strings"

	"github.com/tair/plantops/internal/organization/access"
	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/auth"
	"github.com/tair/plantops/pkg/httputil"
	"github.com/tair/plantops/pkg/logger"
)

// Authenticator resolves the bearer token to the acting employee
type Authenticator struct {
	tokens    *auth.TokenService
	employees domain.Repository
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(tokens *auth.TokenService, employees domain.Repository) *Authenticator {
	return &Authenticator{tokens: tokens, employees: employees}
}

// Middleware validates the JWT and stores the employee in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			logger.Warn(r.Context()).Msg("Missing authorization header")
			httputil.RespondMessage(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Warn(r.Context()).Msg("Invalid authorization header format")
			httputil.RespondMessage(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := a.tokens.ValidateToken(parts[1])
		if err != nil {
			logger.Warn(r.Context()).Err(err).Msg("Invalid token")
			httputil.RespondMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		employee, err := a.employees.FindEmployee(r.Context(), claims.EmployeeID)
		if apperr.Is(err, apperr.KindNotFound) {
			httputil.RespondMessage(w, http.StatusUnauthorized, "Unknown employee")
			return
		}
		if err != nil {
			httputil.RespondError(w, r, err)
			return
		}
		if !employee.Active {
			logger.Warn(r.Context()).Uint("employee_id", employee.ID).Msg("Employee account is disabled")
			httputil.RespondMessage(w, http.StatusForbidden, "Account is disabled")
			return
		}

		next.ServeHTTP(w, r.WithContext(access.WithActor(r.Context(), employee)))
	})
}

// Actor returns the authenticated employee or writes a 401
func Actor(w http.ResponseWriter, r *http.Request) (*domain.Employee, bool) {
	employee, ok := access.ActorFrom(r.Context())
	if !ok {
		httputil.RespondMessage(w, http.StatusUnauthorized, "Authentication required")
	}
	return employee, ok
}
