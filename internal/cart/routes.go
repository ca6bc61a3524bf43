package cart

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/tcommerce/internal/authkit"
	"github.com/tyemirov/tcommerce/internal/web"
)

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type removeItemRequest struct {
	ProductID string `json:"productId"`
}

// MountRoutes registers the cart endpoints; every route requires auth.
func MountRoutes(router gin.IRouter, store *Store, requireAuth gin.HandlerFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.GET("", requireAuth, func(contextGin *gin.Context) {
		identity, found := authkit.IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		lines, listErr := store.ListLines(contextGin, identity.ID)
		if listErr != nil {
			respondInternal(contextGin, logger, "cart.list.error", listErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, lines)
	})

	router.POST("", requireAuth, func(contextGin *gin.Context) {
		identity, found := authkit.IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var inbound addItemRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid cart payload")
			return
		}
		item, addErr := store.Add(contextGin, identity.ID, inbound.ProductID)
		if addErr != nil {
			if errors.Is(addErr, ErrProductUnknown) {
				web.RespondError(contextGin, http.StatusNotFound, "Product not found")
				return
			}
			respondInternal(contextGin, logger, "cart.add.error", addErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, item)
	})

	router.PUT("/:id", requireAuth, func(contextGin *gin.Context) {
		identity, found := authkit.IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var inbound updateQuantityRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil || inbound.Quantity == nil || *inbound.Quantity < 0 {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid quantity payload")
			return
		}
		updateErr := store.UpdateQuantity(contextGin, identity.ID, contextGin.Param("id"), *inbound.Quantity)
		if updateErr != nil {
			if errors.Is(updateErr, ErrItemNotFound) {
				web.RespondError(contextGin, http.StatusNotFound, "Product not in cart")
				return
			}
			respondInternal(contextGin, logger, "cart.update.error", updateErr)
			return
		}
		web.RespondMessage(contextGin, http.StatusOK, "Cart updated", nil)
	})

	router.DELETE("", requireAuth, func(contextGin *gin.Context) {
		identity, found := authkit.IdentityFromContext(contextGin)
		if !found {
			web.RespondError(contextGin, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var inbound removeItemRequest
		_ = contextGin.ShouldBindJSON(&inbound)
		if inbound.ProductID == "" {
			if clearErr := store.Clear(contextGin, identity.ID); clearErr != nil {
				respondInternal(contextGin, logger, "cart.clear.error", clearErr)
				return
			}
			web.RespondMessage(contextGin, http.StatusOK, "Cart cleared", nil)
			return
		}
		removeErr := store.Remove(contextGin, identity.ID, inbound.ProductID)
		if removeErr != nil && !errors.Is(removeErr, ErrItemNotFound) {
			respondInternal(contextGin, logger, "cart.remove.error", removeErr)
			return
		}
		web.RespondMessage(contextGin, http.StatusOK, "Item removed", nil)
	})
}

func respondInternal(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	logger.Error("cart boundary failure",
		zap.String("code", code),
		zap.Error(err))
	web.RespondError(contextGin, http.StatusInternalServerError, "Something went wrong")
}
