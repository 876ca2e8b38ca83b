package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// inventoryRepository — in-memory реализация InventoryRepository.
type inventoryRepository struct {
	store *Store
}

// ListAll возвращает все позиции, отсортированные по id.
func (r *inventoryRepository) ListAll() ([]domain.StockItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.StockItem, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

// GetByID возвращает позицию или ErrItemNotFound.
func (r *inventoryRepository) GetByID(id int64) (domain.StockItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

// Insert сохраняет новую позицию и присваивает ей следующий id.
func (r *inventoryRepository) Insert(item domain.StockItem) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	item.ID = s.nextID
	item.LastUpdated = time.Now().UTC()
	s.items[item.ID] = item

	return item.ID, nil
}

// Update перезаписывает позицию целиком.
func (r *inventoryRepository) Update(item domain.StockItem) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return false, nil
	}
	item.LastUpdated = time.Now().UTC()
	s.items[item.ID] = item

	return true, nil
}

// AdjustQuantity изменяет остаток, не допуская ухода ниже нуля.
func (r *inventoryRepository) AdjustQuantity(id int64, delta int) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false, nil
	}
	if item.Quantity+delta < 0 {
		return false, nil
	}
	item.Quantity += delta
	item.LastUpdated = time.Now().UTC()
	s.items[id] = item

	return true, nil
}

// Delete удаляет позицию.
func (r *inventoryRepository) Delete(id int64) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)

	return true, nil
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
