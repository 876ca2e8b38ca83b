package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// Store — in-memory аналог реляционного хранилища для тестов и локальной
// разработки. Один мьютекс на склад и заказы, чтобы оформление заказа
// было таким же атомарным, как транзакция в живой БД.
type Store struct {
	mu     sync.Mutex
	items  map[int64]domain.StockItem
	orders map[string]domain.Order
	nextID int64
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		items:  make(map[int64]domain.StockItem),
		orders: make(map[string]domain.Order),
	}
}

// Inventory возвращает репозиторий склада поверх этого хранилища.
func (s *Store) Inventory() domain.InventoryRepository {
	return &inventoryRepository{store: s}
}

// Orders возвращает репозиторий заказов поверх этого хранилища.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{store: s}
}
