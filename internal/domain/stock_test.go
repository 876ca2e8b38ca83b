package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// helper для создания валидной позиции склада.
func makeItem() domain.StockItem {
	return domain.StockItem{
		ID:          7,
		Name:        "Paracetamol",
		Category:    "Painkiller",
		Price:       decimal.NewFromFloat(5.0),
		Quantity:    10,
		Expiry:      "2026-12-31",
		LastUpdated: time.Now().UTC(),
	}
}

func TestStockItemValidateInvariants_Ok(t *testing.T) {
	item := makeItem()
	if errs := item.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestStockItemValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(s *domain.StockItem)
		want error
	}{
		{
			name: "no name",
			mut:  func(s *domain.StockItem) { s.Name = "" },
			want: domain.ErrNameRequired,
		},
		{
			name: "no category",
			mut:  func(s *domain.StockItem) { s.Category = "" },
			want: domain.ErrCategoryRequired,
		},
		{
			name: "negative price",
			mut:  func(s *domain.StockItem) { s.Price = decimal.NewFromFloat(-0.01) },
			want: domain.ErrPriceNegative,
		},
		{
			name: "negative quantity",
			mut:  func(s *domain.StockItem) { s.Quantity = -1 },
			want: domain.ErrQuantityNegative,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := makeItem()
			tc.mut(&item)

			errs := item.ValidateInvariants()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			if errs[0] != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, errs[0])
			}
		})
	}
}
