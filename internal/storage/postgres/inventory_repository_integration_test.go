package postgres

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

func seedStockItem(t *testing.T, repo domain.InventoryRepository, name string, price float64, qty int) int64 {
	t.Helper()

	id, err := repo.Insert(domain.StockItem{
		Name:     name,
		Category: "Painkiller",
		Price:    decimal.NewFromFloat(price),
		Quantity: qty,
		Expiry:   "2026-12-31",
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return id
}

func TestInventoryRepositoryIntegration_CRUD(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	id := seedStockItem(t, repo, "Paracetamol", 5.0, 10)

	item, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if item.Name != "Paracetamol" || item.Quantity != 10 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if !item.Price.Equal(decimal.NewFromFloat(5.0)) {
		t.Fatalf("unexpected price: %s", item.Price)
	}
	if item.LastUpdated.IsZero() {
		t.Fatal("expected last_updated to be set")
	}

	item.Quantity = 30
	item.ImageRef = "images/paracetamol.png"
	ok, err := repo.Update(item)
	if err != nil || !ok {
		t.Fatalf("update failed: ok=%v err=%v", ok, err)
	}

	items, err := repo.ListAll()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 30 || items[0].ImageRef != "images/paracetamol.png" {
		t.Fatalf("unexpected listing: %+v", items)
	}

	ok, err = repo.Delete(id)
	if err != nil || !ok {
		t.Fatalf("delete failed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Delete(id)
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if ok {
		t.Fatal("expected second delete to report no rows")
	}
}

func TestInventoryRepositoryIntegration_AdjustQuantityGuard(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	id := seedStockItem(t, repo, "Aspirin", 3.0, 5)

	ok, err := repo.AdjustQuantity(id, -5)
	if err != nil || !ok {
		t.Fatalf("adjust failed: ok=%v err=%v", ok, err)
	}

	// Остаток уже нулевой, уход в минус должен блокироваться условием UPDATE.
	ok, err = repo.AdjustQuantity(id, -1)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if ok {
		t.Fatal("expected adjustment below zero to be rejected")
	}
}

func TestInventoryRepositoryIntegration_UniqueConstraint(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	repo := NewInventoryRepository(store)

	seedStockItem(t, repo, "Ibuprofen", 4.5, 50)

	_, err := repo.Insert(domain.StockItem{
		Name:     "Ibuprofen",
		Category: "Painkiller",
		Price:    decimal.NewFromFloat(4.5),
		Quantity: 10,
		Expiry:   "2027-01-15",
	})
	if !domain.IsConstraintViolation(err) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if domain.IsTransient(err) {
		t.Fatal("constraint violation must not classify as transient")
	}
}
