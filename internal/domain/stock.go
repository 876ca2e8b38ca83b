package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem — учётная единица склада (одна позиция аптечного ассортимента).
// Мутируется только через InventoryRepository; UI-код со stale-копией
// никогда не пишет в неё напрямую.
type StockItem struct {
	// ID — стабильный идентификатор позиции (serial в БД).
	ID int64
	// Name — торговое наименование.
	Name string
	// Category — категория ассортимента (например, "Painkiller").
	Category string
	// Price — цена за единицу, неотрицательная.
	Price decimal.Decimal
	// Quantity — остаток на складе, инвариант quantity >= 0
	// обеспечивается на каждой мутации.
	Quantity int
	// Expiry — маркер срока годности в виде даты YYYY-MM-DD.
	// Для ядра это непрозрачная строка.
	Expiry string
	// ImageRef — опциональная ссылка на файл изображения.
	ImageRef string
	// LastUpdated — момент последней мутации позиции.
	LastUpdated time.Time
}

// ValidateInvariants проверяет базовые инварианты позиции и возвращает список замечаний.
func (s *StockItem) ValidateInvariants() []error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, ErrNameRequired)
	}
	if s.Category == "" {
		errs = append(errs, ErrCategoryRequired)
	}
	if s.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if s.Quantity < 0 {
		errs = append(errs, ErrQuantityNegative)
	}

	return errs
}
