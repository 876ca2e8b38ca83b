package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

const opTimeout = 5 * time.Second

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository создаёт PostgreSQL-реализацию InventoryRepository.
// Каждая операция — отдельная транзакция; один SQL-оператор атомарен
// на уровне БД, поэтому явный BeginTx нужен только там, где операторов
// больше одного.
func NewInventoryRepository(store *Store) domain.InventoryRepository {
	return &inventoryRepository{db: store.DB()}
}

func (r *inventoryRepository) ListAll() ([]domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, price, quantity, expiry, COALESCE(image_ref, ''), last_updated
		FROM stock_items
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, classify("list stock items", err)
	}
	defer rows.Close()

	items := make([]domain.StockItem, 0)
	for rows.Next() {
		var item domain.StockItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Category, &item.Price,
			&item.Quantity, &item.Expiry, &item.ImageRef, &item.LastUpdated,
		); err != nil {
			return nil, classify("scan stock item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate stock items", err)
	}

	return items, nil
}

func (r *inventoryRepository) GetByID(id int64) (domain.StockItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var item domain.StockItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, quantity, expiry, COALESCE(image_ref, ''), last_updated
		FROM stock_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.Name, &item.Category, &item.Price,
		&item.Quantity, &item.Expiry, &item.ImageRef, &item.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockItem{}, domain.ErrItemNotFound
		}
		return domain.StockItem{}, classify("select stock item", err)
	}

	return item, nil
}

func (r *inventoryRepository) Insert(item domain.StockItem) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stock_items (name, category, price, quantity, expiry, image_ref, last_updated)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW())
		RETURNING id
	`,
		item.Name, item.Category, item.Price, item.Quantity, item.Expiry, item.ImageRef,
	).Scan(&id)
	if err != nil {
		return 0, classify("insert stock item", err)
	}

	return id, nil
}

func (r *inventoryRepository) Update(item domain.StockItem) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_items
		SET name = $1,
		    category = $2,
		    price = $3,
		    quantity = $4,
		    expiry = $5,
		    image_ref = NULLIF($6, ''),
		    last_updated = NOW()
		WHERE id = $7
	`,
		item.Name, item.Category, item.Price, item.Quantity, item.Expiry, item.ImageRef, item.ID,
	)
	if err != nil {
		return false, classify("update stock item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, classify("update stock item rows affected", err)
	}

	return affected > 0, nil
}

// AdjustQuantity меняет остаток на delta; уход ниже нуля блокируется
// условием самого UPDATE, прикладных блокировок нет.
func (r *inventoryRepository) AdjustQuantity(id int64, delta int) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE stock_items
		SET quantity = quantity + $1,
		    last_updated = NOW()
		WHERE id = $2
		  AND quantity + $1 >= 0
	`, delta, id)
	if err != nil {
		return false, classify("adjust stock quantity", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, classify("adjust stock quantity rows affected", err)
	}

	return affected > 0, nil
}

func (r *inventoryRepository) Delete(id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = $1`, id)
	if err != nil {
		return false, classify("delete stock item", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete stock item rows affected", err)
	}

	return affected > 0, nil
}

var _ domain.InventoryRepository = (*inventoryRepository)(nil)
