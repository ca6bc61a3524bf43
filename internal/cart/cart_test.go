package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/tyemirov/tcommerce/internal/catalog"
	"github.com/tyemirov/tcommerce/internal/storage"
)

func newTestStores(t *testing.T) (*Store, *catalog.Store) {
	t.Helper()
	databaseURL := fmt.Sprintf("sqlite:file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gormDB, _, openErr := storage.Open(databaseURL)
	if openErr != nil {
		t.Fatalf("failed to open database: %v", openErr)
	}
	t.Cleanup(func() { _ = storage.Close(gormDB) })

	products, productsErr := catalog.NewStore(context.Background(), gormDB, nil, zaptest.NewLogger(t))
	if productsErr != nil {
		t.Fatalf("failed to build catalog store: %v", productsErr)
	}
	carts, cartsErr := NewStore(context.Background(), gormDB, products)
	if cartsErr != nil {
		t.Fatalf("failed to build cart store: %v", cartsErr)
	}
	return carts, products
}

func seedProduct(t *testing.T, products *catalog.Store, name string) catalog.Product {
	t.Helper()
	product, createErr := products.Create(context.Background(), catalog.Product{
		Name:     name,
		Price:    9.99,
		Category: "misc",
	})
	if createErr != nil {
		t.Fatalf("seed error: %v", createErr)
	}
	return product
}

func TestAddIncrementsExistingLine(t *testing.T) {
	t.Parallel()

	carts, products := newTestStores(t)
	product := seedProduct(t, products, "Mug")

	first, firstErr := carts.Add(context.Background(), "user-1", product.ID)
	if firstErr != nil {
		t.Fatalf("add error: %v", firstErr)
	}
	if first.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", first.Quantity)
	}

	second, secondErr := carts.Add(context.Background(), "user-1", product.ID)
	if secondErr != nil {
		t.Fatalf("repeat add error: %v", secondErr)
	}
	if second.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", second.Quantity)
	}
}

func TestAddRejectsUnknownProduct(t *testing.T) {
	t.Parallel()

	carts, _ := newTestStores(t)
	if _, err := carts.Add(context.Background(), "user-1", "no-such-product"); !errors.Is(err, ErrProductUnknown) {
		t.Fatalf("expected ErrProductUnknown, got %v", err)
	}
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	carts, products := newTestStores(t)
	product := seedProduct(t, products, "Mug")
	if _, err := carts.Add(context.Background(), "user-1", product.ID); err != nil {
		t.Fatalf("add error: %v", err)
	}

	if err := carts.UpdateQuantity(context.Background(), "user-1", product.ID, 5); err != nil {
		t.Fatalf("update error: %v", err)
	}
	lines, listErr := carts.ListLines(context.Background(), "user-1")
	if listErr != nil {
		t.Fatalf("list error: %v", listErr)
	}
	if len(lines) != 1 || lines[0].Quantity != 5 {
		t.Fatalf("expected one line with quantity 5, got %v", lines)
	}

	// Zero quantity removes the line.
	if err := carts.UpdateQuantity(context.Background(), "user-1", product.ID, 0); err != nil {
		t.Fatalf("zero-quantity update error: %v", err)
	}
	lines, listErr = carts.ListLines(context.Background(), "user-1")
	if listErr != nil {
		t.Fatalf("list error: %v", listErr)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %v", lines)
	}

	if err := carts.UpdateQuantity(context.Background(), "user-1", product.ID, 3); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	carts, products := newTestStores(t)
	first := seedProduct(t, products, "Mug")
	second := seedProduct(t, products, "Pan")
	if _, err := carts.Add(context.Background(), "user-1", first.ID); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := carts.Add(context.Background(), "user-1", second.ID); err != nil {
		t.Fatalf("add error: %v", err)
	}

	if err := carts.Remove(context.Background(), "user-1", first.ID); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if err := carts.Remove(context.Background(), "user-1", first.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound for repeated remove, got %v", err)
	}

	if err := carts.Clear(context.Background(), "user-1"); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	lines, listErr := carts.ListLines(context.Background(), "user-1")
	if listErr != nil {
		t.Fatalf("list error: %v", listErr)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart after clear, got %v", lines)
	}
}

func TestListLinesSkipsDeletedProducts(t *testing.T) {
	t.Parallel()

	carts, products := newTestStores(t)
	kept := seedProduct(t, products, "Mug")
	doomed := seedProduct(t, products, "Pan")
	if _, err := carts.Add(context.Background(), "user-1", kept.ID); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := carts.Add(context.Background(), "user-1", doomed.ID); err != nil {
		t.Fatalf("add error: %v", err)
	}

	if err := products.Delete(context.Background(), doomed.ID); err != nil {
		t.Fatalf("product delete error: %v", err)
	}

	lines, listErr := carts.ListLines(context.Background(), "user-1")
	if listErr != nil {
		t.Fatalf("list error: %v", listErr)
	}
	if len(lines) != 1 || lines[0].ID != kept.ID {
		t.Fatalf("expected only the surviving product, got %v", lines)
	}
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	t.Parallel()

	carts, products := newTestStores(t)
	product := seedProduct(t, products, "Mug")
	if _, err := carts.Add(context.Background(), "user-1", product.ID); err != nil {
		t.Fatalf("add error: %v", err)
	}

	otherLines, listErr := carts.ListLines(context.Background(), "user-2")
	if listErr != nil {
		t.Fatalf("list error: %v", listErr)
	}
	if len(otherLines) != 0 {
		t.Fatalf("expected empty cart for a different user, got %v", otherLines)
	}
}
