package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Settle оформляет заказ в одной транзакции: читает текущие цены,
// вставляет все строки заказа, затем применяет условные декременты.
// Любой декремент с нулём затронутых строк откатывает всё и называет
// первую позицию, по которой не хватило остатка. Конкурирующие заказы
// на одну позицию сериализует row-level update самой БД.
func (r *orderRepository) Settle(userID int64, lines []domain.CartLine) (_ domain.Order, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, classify("begin settle tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	order := domain.Order{
		ID:       uuid.NewString(),
		UserID:   userID,
		Lines:    make([]domain.OrderLine, 0, len(lines)),
		PlacedAt: now,
	}

	// Цены берём из склада на момент оформления, а не из корзины клиента.
	names := make([]string, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		var (
			name  string
			price decimal.Decimal
		)
		err = tx.QueryRowContext(ctx, `
			SELECT name, price FROM stock_items WHERE id = $1
		`, line.ItemID).Scan(&name, &price)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = domain.ErrItemNotFound
				return domain.Order{}, err
			}
			err = classify("read price at settlement", err)
			return domain.Order{}, err
		}

		lineTotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, user_id, item_id, quantity, total_price, order_date)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			order.ID, userID, line.ItemID, line.Quantity, lineTotal, now,
		); err != nil {
			err = classify("insert order line", err)
			return domain.Order{}, err
		}

		names = append(names, name)
		order.Lines = append(order.Lines, domain.OrderLine{
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	order.Total = total

	for i, line := range lines {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE stock_items
			SET quantity = quantity - $1,
			    last_updated = NOW()
			WHERE id = $2
			  AND quantity >= $1
		`, line.Quantity, line.ItemID)
		if err != nil {
			err = classify("decrement stock", err)
			return domain.Order{}, err
		}

		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			err = classify("decrement stock rows affected", err)
			return domain.Order{}, err
		}
		if affected == 0 {
			err = &domain.InsufficientStockError{ItemID: line.ItemID, Name: names[i]}
			return domain.Order{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = classify("commit settle tx", err)
		return domain.Order{}, err
	}

	return order, nil
}

// ListByUser собирает историю заказов из строк order_lines, группируя их
// по order_id; заказы идут от новых к старым.
func (r *orderRepository) ListByUser(userID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, item_id, quantity, total_price, order_date
		FROM order_lines
		WHERE user_id = $1
		ORDER BY order_date DESC, order_id DESC
	`, userID)
	if err != nil {
		return nil, classify("list order lines", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			orderID   string
			line      domain.OrderLine
			orderDate time.Time
		)
		if err := rows.Scan(&orderID, &line.ItemID, &line.Quantity, &line.LineTotal, &orderDate); err != nil {
			return nil, classify("scan order line", err)
		}

		i, ok := index[orderID]
		if !ok {
			if limit > 0 && len(orders) >= limit {
				// Лимит считаем в заказах, не в строках.
				continue
			}
			orders = append(orders, domain.Order{
				ID:       orderID,
				UserID:   userID,
				PlacedAt: orderDate,
			})
			i = len(orders) - 1
			index[orderID] = i
		}
		orders[i].Lines = append(orders[i].Lines, line)
		orders[i].Total = orders[i].Total.Add(line.LineTotal)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate order lines", err)
	}

	return orders, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
