package domain

// InventoryRepository описывает требования к хранилищу складских позиций.
// Каждая операция выполняется в собственной транзакции живого хранилища.
type InventoryRepository interface {
	// ListAll возвращает все позиции склада.
	ListAll() ([]StockItem, error)
	// GetByID возвращает позицию или ErrItemNotFound, если её нет.
	GetByID(id int64) (StockItem, error)
	// Insert сохраняет новую позицию и возвращает присвоенный id.
	Insert(item StockItem) (int64, error)
	// Update перезаписывает позицию; false — если позиции нет.
	Update(item StockItem) (bool, error)
	// AdjustQuantity изменяет остаток на delta, не допуская ухода ниже
	// нуля; false — если позиции нет или остатка не хватает.
	AdjustQuantity(id int64, delta int) (bool, error)
	// Delete удаляет позицию; false — если позиции нет.
	Delete(id int64) (bool, error)
}

// OrderRepository описывает хранилище заказов.
type OrderRepository interface {
	// Settle атомарно оформляет заказ: фиксирует строки по текущим ценам
	// и применяет условные декременты остатков. Либо весь заказ, либо
	// ничего; при нехватке остатка — InsufficientStockError.
	Settle(userID int64, lines []CartLine) (Order, error)
	// ListByUser возвращает историю заказов пользователя, новые первыми.
	// limit <= 0 означает "без ограничения".
	ListByUser(userID int64, limit int) ([]Order, error)
}

// SnapshotStore хранит единственный, самый свежий снапшот склада.
type SnapshotStore interface {
	Save(items []StockItem) error
	// Load возвращает ErrNoSnapshot, если снапшот ещё не записывался.
	Load() (Snapshot, error)
}

// OfflineQueue — append-only журнал мутаций, не дошедших до живого
// хранилища.
type OfflineQueue interface {
	Append(op OfflineOp, payload any) error
}
