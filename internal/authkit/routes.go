package authkit

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/tcommerce/internal/web"
)

// refreshCookiePath limits the refresh cookie to the auth endpoints.
const refreshCookiePath = "/api/v1/auth"

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MountAuthRoutes registers signup, login, logout, refresh-token, and
// profile under the supplied router group.
func MountAuthRoutes(router gin.IRouter, manager *SessionManager, codec *TokenCodec, users UserStore, configuration ServerConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.POST("/signup", func(contextGin *gin.Context) {
		var inbound signupRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid signup payload")
			return
		}
		identity, signupErr := manager.Signup(contextGin, inbound.Name, inbound.Email, inbound.Password)
		if signupErr != nil {
			if errors.Is(signupErr, ErrEmailTaken) {
				web.RespondError(contextGin, http.StatusBadRequest, "User already exists")
				return
			}
			respondInternal(contextGin, logger, "auth.signup.error", signupErr)
			return
		}
		web.RespondMessage(contextGin, http.StatusCreated, "User created successfully", identity)
	})

	router.POST("/login", func(contextGin *gin.Context) {
		var inbound loginRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid login payload")
			return
		}
		identity, tokenPair, loginErr := manager.Login(contextGin, inbound.Email, inbound.Password)
		if loginErr != nil {
			switch {
			case errors.Is(loginErr, ErrIdentityNotFound):
				web.RespondError(contextGin, http.StatusBadRequest, "User does not exist")
			case errors.Is(loginErr, ErrInvalidCredential):
				web.RespondError(contextGin, http.StatusBadRequest, "Incorrect password or email")
			default:
				respondInternal(contextGin, logger, "auth.login.error", loginErr)
			}
			return
		}
		writeAccessCookie(contextGin, configuration, tokenPair.AccessToken, tokenPair.AccessExpiresAt)
		writeRefreshCookie(contextGin, configuration, tokenPair.RefreshToken, tokenPair.RefreshExpiresAt)
		web.RespondMessage(contextGin, http.StatusOK, "Login successfully", identity)
	})

	router.POST("/logout", func(contextGin *gin.Context) {
		presentedRefresh := cookieValue(contextGin, configuration.RefreshCookieName)
		if logoutErr := manager.Logout(contextGin, presentedRefresh); logoutErr != nil {
			respondInternal(contextGin, logger, "auth.logout.error", logoutErr)
			return
		}
		clearCookie(contextGin, configuration.AccessCookieName, "/", configuration)
		clearCookie(contextGin, configuration.RefreshCookieName, refreshCookiePath, configuration)
		web.RespondMessage(contextGin, http.StatusOK, "Logout successfully", nil)
	})

	router.POST("/refresh-token", func(contextGin *gin.Context) {
		presentedRefresh := cookieValue(contextGin, configuration.RefreshCookieName)
		accessToken, accessExpiresAt, refreshErr := manager.Refresh(contextGin, presentedRefresh)
		if refreshErr != nil {
			switch {
			case errors.Is(refreshErr, ErrTokenExpired):
				web.RespondError(contextGin, http.StatusUnauthorized, "Refresh token expired")
			case errors.Is(refreshErr, ErrUnauthenticated), errors.Is(refreshErr, ErrTokenInvalid):
				web.RespondError(contextGin, http.StatusUnauthorized, "Invalid refresh token")
			default:
				respondInternal(contextGin, logger, "auth.refresh.error", refreshErr)
			}
			return
		}
		writeAccessCookie(contextGin, configuration, accessToken, accessExpiresAt)
		web.RespondMessage(contextGin, http.StatusOK, "Refresh token successfully", nil)
	})

	router.GET("/profile", RequireAuth(codec, users, configuration, logger), func(contextGin *gin.Context) {
		identity, found := IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		web.RespondData(contextGin, http.StatusOK, identity)
	})
}

func cookieValue(contextGin *gin.Context, name string) string {
	cookie, cookieErr := contextGin.Request.Cookie(name)
	if cookieErr != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

func respondInternal(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	logger.Error("auth boundary failure",
		zap.String("code", code),
		zap.Error(err))
	web.RespondError(contextGin, http.StatusInternalServerError, "Something went wrong")
}

func writeAccessCookie(contextGin *gin.Context, configuration ServerConfig, accessToken string, expiresAt time.Time) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		Domain:   configuration.CookieDomain,
		Expires:  expiresAt,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func writeRefreshCookie(contextGin *gin.Context, configuration ServerConfig, refreshToken string, expiresAt time.Time) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     configuration.RefreshCookieName,
		Value:    refreshToken,
		Path:     refreshCookiePath,
		Domain:   configuration.CookieDomain,
		Expires:  expiresAt,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}

func clearCookie(contextGin *gin.Context, name string, path string, configuration ServerConfig) {
	http.SetCookie(contextGin.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   configuration.CookieDomain,
		MaxAge:   -1,
		Secure:   !configuration.AllowInsecureHTTP,
		HttpOnly: true,
		SameSite: configuration.SameSiteMode,
	})
}
