package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/tyemirov/tcommerce/internal/web"
)

func newCatalogRouter(t *testing.T, store *Store, admin bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	passthrough := func(contextGin *gin.Context) { contextGin.Next() }
	guard := passthrough
	if !admin {
		guard = func(contextGin *gin.Context) {
			web.RespondError(contextGin, http.StatusForbidden, "Access-denied Admin only")
		}
	}

	router := gin.New()
	MountRoutes(router.Group("/api/v1/products"), store, passthrough, guard, zaptest.NewLogger(t))
	return router
}

func performRequest(router *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body != "" {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	} else {
		request = httptest.NewRequest(method, path, nil)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestCatalogMutationsRequireAdmin(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	router := newCatalogRouter(t, store, false)

	listRecorder := performRequest(router, http.MethodGet, "/api/v1/products", "")
	if listRecorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for full listing, got %d", listRecorder.Code)
	}

	createRecorder := performRequest(router, http.MethodPost, "/api/v1/products", `{"name":"Mug","price":9.99,"category":"kitchen"}`)
	if createRecorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for create, got %d", createRecorder.Code)
	}

	featuredRecorder := performRequest(router, http.MethodGet, "/api/v1/products/featured", "")
	if featuredRecorder.Code != http.StatusOK {
		t.Fatalf("expected public featured listing, got %d", featuredRecorder.Code)
	}

	categoryRecorder := performRequest(router, http.MethodGet, "/api/v1/products/category/kitchen", "")
	if categoryRecorder.Code != http.StatusOK {
		t.Fatalf("expected public category listing, got %d", categoryRecorder.Code)
	}
}

func TestCatalogCreateValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	router := newCatalogRouter(t, store, true)

	missingName := performRequest(router, http.MethodPost, "/api/v1/products", `{"price":9.99,"category":"kitchen"}`)
	if missingName.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", missingName.Code)
	}

	zeroPrice := performRequest(router, http.MethodPost, "/api/v1/products", `{"name":"Mug","price":0,"category":"kitchen"}`)
	if zeroPrice.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-positive price, got %d", zeroPrice.Code)
	}

	created := performRequest(router, http.MethodPost, "/api/v1/products", `{"name":"Mug","price":9.99,"category":"kitchen"}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.Code)
	}
	var payload struct {
		Status bool    `json:"status"`
		Data   Product `json:"data"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if payload.Data.ID == "" {
		t.Fatalf("expected created product id")
	}
}

func TestCatalogToggleAndDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, nil)
	router := newCatalogRouter(t, store, true)
	product := seedProduct(t, store, "Mug", "kitchen", false)

	toggled := performRequest(router, http.MethodPatch, "/api/v1/products/"+product.ID, "")
	if toggled.Code != http.StatusOK {
		t.Fatalf("expected 200 from toggle, got %d", toggled.Code)
	}

	missingToggle := performRequest(router, http.MethodPatch, "/api/v1/products/no-such-id", "")
	if missingToggle.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", missingToggle.Code)
	}

	deleted := performRequest(router, http.MethodDelete, "/api/v1/products/"+product.ID, "")
	if deleted.Code != http.StatusOK {
		t.Fatalf("expected 200 from delete, got %d", deleted.Code)
	}

	repeated := performRequest(router, http.MethodDelete, "/api/v1/products/"+product.ID, "")
	if repeated.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for repeated delete, got %d", repeated.Code)
	}
}
