package coupon

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/tcommerce/internal/authkit"
	"github.com/tyemirov/tcommerce/internal/web"
)

type createCouponRequest struct {
	Code            string    `json:"code" binding:"required"`
	DiscountPercent int       `json:"discountPercent" binding:"required"`
	ExpiresAt       time.Time `json:"expiresAt" binding:"required"`
	UserID          string    `json:"userId" binding:"required"`
}

type validateCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// MountRoutes registers the coupon endpoints. Reading and validating
// require auth; creating coupons is admin-only.
func MountRoutes(router gin.IRouter, store *Store, requireAuth gin.HandlerFunc, requireAdmin gin.HandlerFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.GET("", requireAuth, func(contextGin *gin.Context) {
		identity, found := authkit.IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		record, findErr := store.ActiveForUser(contextGin, identity.ID)
		if findErr != nil {
			if errors.Is(findErr, ErrCouponNotFound) {
				web.RespondError(contextGin, http.StatusNotFound, "Coupon not found")
				return
			}
			respondInternal(contextGin, logger, "coupon.get.error", findErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, record)
	})

	router.POST("", requireAuth, requireAdmin, func(contextGin *gin.Context) {
		var inbound createCouponRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid coupon payload")
			return
		}
		record, createErr := store.Create(contextGin, inbound.Code, inbound.DiscountPercent, inbound.ExpiresAt, inbound.UserID)
		if createErr != nil {
			if errors.Is(createErr, ErrInvalidDiscount) {
				web.RespondError(contextGin, http.StatusBadRequest, "Discount must be between 1 and 10 percent")
				return
			}
			respondInternal(contextGin, logger, "coupon.create.error", createErr)
			return
		}
		web.RespondData(contextGin, http.StatusCreated, record)
	})

	router.POST("/validate", requireAuth, func(contextGin *gin.Context) {
		identity, found := authkit.IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var inbound validateCouponRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid coupon payload")
			return
		}
		record, validateErr := store.Validate(contextGin, inbound.Code, identity.ID)
		if validateErr != nil {
			switch {
			case errors.Is(validateErr, ErrCouponNotFound):
				web.RespondError(contextGin, http.StatusBadRequest, "Coupon not found")
			case errors.Is(validateErr, ErrCouponExpired):
				web.RespondError(contextGin, http.StatusBadRequest, "Coupon expired")
			default:
				respondInternal(contextGin, logger, "coupon.validate.error", validateErr)
			}
			return
		}
		web.RespondMessage(contextGin, http.StatusOK, "Coupon is valid", record)
	})
}

func respondInternal(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	logger.Error("coupon boundary failure",
		zap.String("code", code),
		zap.Error(err))
	web.RespondError(contextGin, http.StatusInternalServerError, "Something went wrong")
}
