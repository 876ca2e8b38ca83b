// Package settlement оформляет заказы: проверяет корзину, проводит
// атомарное списание остатков через хранилище заказов и уведомляет
// подписчиков об изменившемся складе.
package settlement

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

var (
	ordersSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_orders_settled_total",
		Help: "Total number of successfully settled orders.",
	})
	ordersInsufficientTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_orders_insufficient_stock_total",
		Help: "Total number of orders rejected for insufficient stock.",
	})
	ordersFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_orders_failed_total",
		Help: "Total number of orders failed for reasons other than stock.",
	})
)

// Notifier уведомляет заинтересованные стороны об изменении склада.
type Notifier interface {
	Notify()
}

// Engine проводит оформление заказа поверх хранилища заказов. Сам по себе
// ничего не ретраит: нехватка остатка и сбои хранилища отдаются вызывающему
// как есть.
type Engine struct {
	orders   domain.OrderRepository
	notifier Notifier
	logger   *log.Entry
}

// NewEngine создаёт движок оформления. notifier может быть nil.
func NewEngine(orders domain.OrderRepository, notifier Notifier, logger *log.Entry) *Engine {
	if logger == nil {
		logger = log.WithField("component", "settlement")
	}
	return &Engine{
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

// PlaceOrder оформляет корзину пользователя. Заказ проводится атомарно:
// либо все строки списаны и заказ записан, либо склад не тронут. Хаб
// уведомляется ровно один раз и только после фиксации заказа.
func (e *Engine) PlaceOrder(userID int64, lines []domain.CartLine) (domain.Order, error) {
	if errs := domain.ValidateCart(userID, lines); len(errs) > 0 {
		ordersFailedTotal.Inc()
		return domain.Order{}, fmt.Errorf("validate cart: %w", errors.Join(errs...))
	}

	order, err := e.orders.Settle(userID, lines)
	if err != nil {
		if domain.IsInsufficientStock(err) {
			ordersInsufficientTotal.Inc()
			e.logger.WithField("user_id", userID).WithError(err).
				Info("order rejected, not enough stock")
		} else {
			ordersFailedTotal.Inc()
			e.logger.WithField("user_id", userID).WithError(err).
				Error("order settlement failed")
		}
		return domain.Order{}, err
	}

	ordersSettledTotal.Inc()
	e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"lines":    len(order.Lines),
		"total":    order.Total.String(),
	}).Info("order settled")

	if e.notifier != nil {
		e.notifier.Notify()
	}
	return order, nil
}

// OrderHistory возвращает историю заказов пользователя, новые первыми.
// limit <= 0 означает "без ограничения".
func (e *Engine) OrderHistory(userID int64, limit int) ([]domain.Order, error) {
	if userID <= 0 {
		return nil, domain.ErrUserRequired
	}
	return e.orders.ListByUser(userID, limit)
}
