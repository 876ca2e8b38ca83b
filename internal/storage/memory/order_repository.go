package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository с той же
// семантикой, что и у живого хранилища: заказ целиком или ничего.
type orderRepository struct {
	store *Store
}

// Settle оформляет заказ под общим мьютексом хранилища, что эквивалентно
// сериализации конфликтующих декрементов на уровне строк БД.
func (r *orderRepository) Settle(userID int64, lines []domain.CartLine) (domain.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Сначала проверяем весь заказ, ничего не меняя: откатывать нечего.
	for _, line := range lines {
		item, ok := s.items[line.ItemID]
		if !ok {
			return domain.Order{}, domain.ErrItemNotFound
		}
		if item.Quantity < line.Quantity {
			return domain.Order{}, &domain.InsufficientStockError{ItemID: item.ID, Name: item.Name}
		}
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:       uuid.NewString(),
		UserID:   userID,
		Lines:    make([]domain.OrderLine, 0, len(lines)),
		PlacedAt: now,
	}

	total := decimal.Zero
	for _, line := range lines {
		item := s.items[line.ItemID]
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))

		item.Quantity -= line.Quantity
		item.LastUpdated = now
		s.items[line.ItemID] = item

		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.Total = total
	s.orders[order.ID] = order

	return order, nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (r *orderRepository) ListByUser(userID int64, limit int) ([]domain.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].PlacedAt.Equal(result[j].PlacedAt) {
			return result[i].PlacedAt.After(result[j].PlacedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
