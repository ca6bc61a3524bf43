package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/tcommerce/internal/web"
)

const recommendationCount = 4

type createProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Image       string  `json:"image"`
	Category    string  `json:"category" binding:"required"`
}

// MountRoutes registers the catalog endpoints. Listing the full catalog
// and any mutation require the admin guard; featured, recommendations,
// and category listings are public.
func MountRoutes(router gin.IRouter, store *Store, requireAuth gin.HandlerFunc, requireAdmin gin.HandlerFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	router.GET("", requireAuth, requireAdmin, func(contextGin *gin.Context) {
		products, listErr := store.List(contextGin)
		if listErr != nil {
			respondInternal(contextGin, logger, "catalog.list.error", listErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, products)
	})

	router.GET("/featured", func(contextGin *gin.Context) {
		products, listErr := store.ListFeatured(contextGin)
		if listErr != nil {
			respondInternal(contextGin, logger, "catalog.featured.error", listErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, products)
	})

	router.GET("/recommendations", func(contextGin *gin.Context) {
		products, listErr := store.Recommendations(contextGin, recommendationCount)
		if listErr != nil {
			respondInternal(contextGin, logger, "catalog.recommendations.error", listErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, products)
	})

	router.GET("/category/:category", func(contextGin *gin.Context) {
		products, listErr := store.ListByCategory(contextGin, contextGin.Param("category"))
		if listErr != nil {
			respondInternal(contextGin, logger, "catalog.category.error", listErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, products)
	})

	router.POST("", requireAuth, requireAdmin, func(contextGin *gin.Context) {
		var inbound createProductRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			web.RespondError(contextGin, http.StatusBadRequest, "Invalid product payload")
			return
		}
		product, createErr := store.Create(contextGin, Product{
			Name:        inbound.Name,
			Description: inbound.Description,
			Price:       inbound.Price,
			Image:       inbound.Image,
			Category:    inbound.Category,
		})
		if createErr != nil {
			respondInternal(contextGin, logger, "catalog.create.error", createErr)
			return
		}
		web.RespondData(contextGin, http.StatusCreated, product)
	})

	router.PATCH("/:id", requireAuth, requireAdmin, func(contextGin *gin.Context) {
		product, toggleErr := store.ToggleFeatured(contextGin, contextGin.Param("id"))
		if toggleErr != nil {
			if errors.Is(toggleErr, ErrProductNotFound) {
				web.RespondError(contextGin, http.StatusNotFound, "Product not found")
				return
			}
			respondInternal(contextGin, logger, "catalog.toggle.error", toggleErr)
			return
		}
		web.RespondData(contextGin, http.StatusOK, product)
	})

	router.DELETE("/:id", requireAuth, requireAdmin, func(contextGin *gin.Context) {
		if deleteErr := store.Delete(contextGin, contextGin.Param("id")); deleteErr != nil {
			if errors.Is(deleteErr, ErrProductNotFound) {
				web.RespondError(contextGin, http.StatusNotFound, "Product not found")
				return
			}
			respondInternal(contextGin, logger, "catalog.delete.error", deleteErr)
			return
		}
		web.RespondMessage(contextGin, http.StatusOK, "Product deleted", nil)
	})
}

func respondInternal(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	logger.Error("catalog boundary failure",
		zap.String("code", code),
		zap.Error(err))
	web.RespondError(contextGin, http.StatusInternalServerError, "Something went wrong")
}
