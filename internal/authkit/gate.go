package authkit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/tcommerce/internal/web"
)

const identityContextKey = "auth_identity"

// IdentityFromContext returns the identity attached by RequireAuth.
func IdentityFromContext(contextGin *gin.Context) (Identity, bool) {
	value, found := contextGin.Get(identityContextKey)
	if !found {
		return Identity{}, false
	}
	identity, ok := value.(Identity)
	if !ok || identity.ID == "" {
		return Identity{}, false
	}
	return identity, true
}

// RequireAuth validates the access cookie, resolves the user, and attaches
// the sanitized identity to the request context. An expired token gets a
// distinct message so clients know to call refresh rather than re-login.
func RequireAuth(codec *TokenCodec, users UserStore, configuration ServerConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		accessCookie, cookieErr := contextGin.Request.Cookie(configuration.AccessCookieName)
		if cookieErr != nil || accessCookie == nil || accessCookie.Value == "" {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}

		userID, verifyErr := codec.Verify(accessCookie.Value, TokenClassAccess)
		if verifyErr != nil {
			if errors.Is(verifyErr, ErrTokenExpired) {
				web.RespondError(contextGin, http.StatusUnauthorized, "Token expired")
				return
			}
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}

		identity, findErr := users.FindByID(contextGin, userID)
		if findErr != nil {
			if errors.Is(findErr, ErrIdentityNotFound) {
				web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
				return
			}
			logger.Error("identity lookup failed",
				zap.String("code", "auth.gate.lookup_error"),
				zap.String("user_id", userID),
				zap.Error(findErr))
			web.RespondError(contextGin, http.StatusInternalServerError, "Something went wrong")
			return
		}

		contextGin.Set(identityContextKey, identity.Sanitized())
		contextGin.Next()
	}
}

// RequireAdmin denies non-admin identities. It must be composed after
// RequireAuth and performs no store access of its own.
func RequireAdmin() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		identity, found := IdentityFromContext(contextGin)
		if !found || identity.Role != RoleAdmin {
			web.RespondError(contextGin, http.StatusForbidden, "Access-denied Admin only")
			return
		}
		contextGin.Next()
	}
}
