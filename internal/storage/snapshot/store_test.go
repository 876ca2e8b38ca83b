package snapshot_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
	"github.com/vladislavdragonenkov/medimart/internal/storage/snapshot"
)

func testItems() []domain.StockItem {
	return []domain.StockItem{
		{
			ID:       7,
			Name:     "Paracetamol",
			Category: "Painkiller",
			Price:    decimal.NewFromFloat(5.0),
			Quantity: 10,
			Expiry:   "2026-12-31",
			ImageRef: "images/paracetamol.png",
		},
		{
			ID:       8,
			Name:     "Aspirin",
			Category: "Painkiller",
			Price:    decimal.NewFromFloat(3.0),
			Quantity: 50,
			Expiry:   "2026-11-30",
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshot.json"))
	items := testItems()

	if err := store.Save(items); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if snap.SavedAt.IsZero() {
		t.Fatal("expected saved_at to be set")
	}
	if len(snap.Items) != len(items) {
		t.Fatalf("expected %d items, got %d", len(items), len(snap.Items))
	}
	for i, want := range items {
		got := snap.Items[i]
		if got.ID != want.ID || got.Name != want.Name || got.Category != want.Category {
			t.Fatalf("item %d mismatch: got %+v", i, got)
		}
		if !got.Price.Equal(want.Price) {
			t.Fatalf("item %d price mismatch: got %s want %s", i, got.Price, want.Price)
		}
		if got.Quantity != want.Quantity || got.Expiry != want.Expiry || got.ImageRef != want.ImageRef {
			t.Fatalf("item %d field mismatch: got %+v", i, got)
		}
	}
}

func TestStore_LoadWithoutSnapshot(t *testing.T) {
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "missing.json"))

	_, err := store.Load()
	if !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestStore_SaveOverwritesPrevious(t *testing.T) {
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshot.json"))

	if err := store.Save(testItems()); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := store.Save(testItems()[:1]); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// Контракт lossy: хранится только последний снапшот.
	if len(snap.Items) != 1 {
		t.Fatalf("expected 1 item after overwrite, got %d", len(snap.Items))
	}
}

func TestQueue_AppendAndEntries(t *testing.T) {
	queue := snapshot.NewQueue(filepath.Join(t.TempDir(), "offline.jsonl"))

	item := testItems()[0]
	if err := queue.Append(domain.OfflineOpAdd, item); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := queue.Append(domain.OfflineOpAdjust, map[string]any{"id": item.ID, "delta": -3}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	entries, err := queue.Entries()
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Op != domain.OfflineOpAdd || entries[1].Op != domain.OfflineOpAdjust {
		t.Fatalf("unexpected ops: %s, %s", entries[0].Op, entries[1].Op)
	}
	if entries[0].TS.IsZero() {
		t.Fatal("expected timestamp on queue entry")
	}
	if len(entries[0].Payload) == 0 {
		t.Fatal("expected payload on queue entry")
	}
}

func TestQueue_EntriesWithoutFile(t *testing.T) {
	queue := snapshot.NewQueue(filepath.Join(t.TempDir(), "missing.jsonl"))

	entries, err := queue.Entries()
	if err != nil {
		t.Fatalf("entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty queue, got %d entries", len(entries))
	}
}
