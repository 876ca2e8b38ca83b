package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine — позиция корзины: что и сколько хочет купить пользователь.
// Цену клиент не передаёт, она берётся из склада в момент оформления.
type CartLine struct {
	ItemID   int64
	Quantity int
}

// OrderLine — строка оформленного заказа. LineTotal фиксируется в момент
// оформления (цена на тот момент × количество) и позже не пересчитывается.
type OrderLine struct {
	ItemID    int64
	Quantity  int
	LineTotal decimal.Decimal
}

// Order — оформленный заказ. Создаётся атомарно целиком или не создаётся
// вовсе; после создания неизменяем (пути редактирования/удаления нет).
type Order struct {
	ID       string
	UserID   int64
	Lines    []OrderLine
	Total    decimal.Decimal
	PlacedAt time.Time
}

// ValidateCart проверяет корзину перед оформлением заказа.
func ValidateCart(userID int64, lines []CartLine) []error {
	var errs []error

	if userID <= 0 {
		errs = append(errs, ErrUserRequired)
	}
	if len(lines) == 0 {
		errs = append(errs, ErrLinesRequired)
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrLineQtyInvalid)
			break
		}
	}

	return errs
}

// SumLineTotals считает агрегат заказа как сумму строк.
func SumLineTotals(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	return total
}
