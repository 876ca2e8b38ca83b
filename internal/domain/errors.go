package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего наименования позиции.
	ErrNameRequired = errors.New("stock item name is required")
	// Ошибка отсутствующей категории позиции.
	ErrCategoryRequired = errors.New("stock item category is required")
	// Ошибка отрицательной цены.
	ErrPriceNegative = errors.New("stock item price must be non-negative")
	// Ошибка отрицательного остатка.
	ErrQuantityNegative = errors.New("stock item quantity must be non-negative")
	// Ошибка отсутствующего идентификатора пользователя в заказе.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка пустой корзины.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве в строке корзины (<= 0).
	ErrLineQtyInvalid = errors.New("line quantity must be greater than zero")
	// ErrItemNotFound возвращается, если позиция не найдена ни в живом
	// хранилище, ни в снапшоте.
	ErrItemNotFound = errors.New("stock item not found")
	// ErrNoSnapshot возвращается, когда деградированное чтение невозможно:
	// ни одного успешного листинга ещё не было.
	ErrNoSnapshot = errors.New("no inventory snapshot available")
	// ErrInsufficientStock — бизнес-отказ оформления: остатка не хватает
	// хотя бы по одной строке. Конкретная позиция — в InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError называет первую позицию заказа, по которой
// условный декремент не прошёл. Весь заказ при этом откатывается.
type InsufficientStockError struct {
	ItemID int64
	Name   string
}

func (e *InsufficientStockError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("insufficient stock for item %d (%s)", e.ItemID, e.Name)
	}
	return fmt.Sprintf("insufficient stock for item %d", e.ItemID)
}

// Unwrap позволяет errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// TransientIOError означает, что живое хранилище недоступно: чтения
// деградируют к снапшоту, мутации попадают в offline-очередь и всегда
// возвращаются вызывающему.
type TransientIOError struct {
	Op    string
	Cause error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Cause)
}

func (e *TransientIOError) Unwrap() error { return e.Cause }

// ConstraintViolationError — нарушение ограничения схемы (уникальность,
// внешний ключ, CHECK). Повтор той же записи упадёт так же, поэтому
// такие ошибки никогда не попадают в offline-очередь.
type ConstraintViolationError struct {
	Op    string
	Cause error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation during %s: %v", e.Op, e.Cause)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Cause }

// IsTransient проверяет, что ошибка вызвана недоступностью хранилища.
func IsTransient(err error) bool {
	var t *TransientIOError
	return errors.As(err, &t)
}

// IsConstraintViolation проверяет, что запись отклонена схемой.
func IsConstraintViolation(err error) bool {
	var c *ConstraintViolationError
	return errors.As(err, &c)
}

// IsInsufficientStock проверяет, что заказ отклонён из-за нехватки остатка.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}
