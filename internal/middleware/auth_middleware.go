package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/session"
)

const principalKey = "principal"

// ErrorResponse is the local definition of the JSON error body written by middleware.
// It mirrors api.ErrorResponse; the api package imports this one, so it cannot be
// imported from here.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TokenVerifier checks Firebase ID tokens.
// *auth.Client satisfies it; tests provide a table of known tokens instead.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
// Besides verifying the token it loads (or creates on first sign-in) the caller's
// profile, so handlers receive a complete session.Principal with role and status.
type AuthMiddleware struct {
	verifier TokenVerifier
	users    core.UserService
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
// It panics if verifier or users is nil: routes behind the middleware cannot
// serve a single request without them.
func NewAuthMiddleware(verifier TokenVerifier, users core.UserService, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil || users == nil {
		panic("AuthMiddleware requires a token verifier and a user service")
	}
	return &AuthMiddleware{verifier: verifier, users: users, logger: logger}
}

// VerifyToken is a Gin middleware handler function that verifies a Firebase ID token
// from the Authorization header.
//
// Responses:
//   - 401 when the header is missing, malformed, or the token is invalid or expired.
//   - 500 when the profile cannot be loaded or created.
//   - 403 when the account has been disabled by an administrator.
//
// On success "userID" and the principal are set in the Gin context, and the
// principal is attached to the request context for session.FromContext.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}

		// Verification uses the request context so a client disconnect aborts it.
		token, err := m.verifier.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			m.logger.Info("Rejected ID token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		// Standard Firebase claims; any of them may be absent for some providers.
		email, _ := token.Claims["email"].(string)
		name, _ := token.Claims["name"].(string)
		picture, _ := token.Claims["picture"].(string)

		user, _, err := m.users.GetOrCreate(c.Request.Context(), token.UID, email, name, picture)
		if err != nil {
			m.logger.Error("Failed to load user profile", zap.String("userID", token.UID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load user profile"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: core.ErrAccountDisabled.Error()})
			return
		}

		p := session.FromUser(user)
		c.Set("userID", p.UserID)
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(session.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireAdmin returns middleware that rejects callers without the admin role.
// It must be registered after VerifyToken on the same group: an unauthenticated
// request yields 401, an authenticated non-admin 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
			return
		}
		if !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Admin access required"})
			return
		}
		c.Next()
	}
}

// PrincipalFromContext returns the principal set by VerifyToken.
// The bool is false for unauthenticated routes or an empty user id.
func PrincipalFromContext(c *gin.Context) (session.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return session.Principal{}, false
	}
	p, ok := v.(session.Principal)
	return p, ok && p.UserID != ""
}
