package notify

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	notifyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_notify_total",
		Help: "Total number of change notifications dispatched to subscribers.",
	})
	subscriberFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_notify_subscriber_failures_total",
		Help: "Total number of subscriber callbacks that returned an error or panicked.",
	})
)

// Broadcaster доставляет refresh-сигнал удалённым процессам.
// Отсутствие broadcaster'а — не ошибка: межпроцессная нотификация
// best-effort и опциональна.
type Broadcaster interface {
	BroadcastRefresh()
}

// Hub — in-process реестр подписчиков на изменения склада. Вызывается
// репозиторием и движком оформления ровно один раз после каждой
// успешной мутации.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]func() error
	nextID      int
	broadcaster Broadcaster
	logger      *log.Entry
}

// NewHub создаёт пустой хаб.
func NewHub(logger *log.Entry) *Hub {
	if logger == nil {
		logger = log.WithField("component", "notify-hub")
	}
	return &Hub{
		subscribers: make(map[int]func() error),
		logger:      logger,
	}
}

// SetBroadcaster подключает слой межпроцессной рассылки (nil отключает).
func (h *Hub) SetBroadcaster(b Broadcaster) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcaster = b
}

// Subscribe регистрирует подписчика и возвращает функцию отписки.
// Ошибка подписчика — его диагностика, а не провал мутации.
func (h *Hub) Subscribe(fn func() error) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subscribers[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

// Notify вызывает снапшот множества подписчиков. Отказ одного подписчика
// изолируется от остальных и от вызывающего: он логируется и считается,
// но никогда не возвращается в путь мутации. После локальных подписчиков
// сигнал уходит broadcaster'у, если тот подключён.
func (h *Hub) Notify() {
	h.mu.Lock()
	subs := make(map[int]func() error, len(h.subscribers))
	for id, fn := range h.subscribers {
		subs[id] = fn
	}
	broadcaster := h.broadcaster
	h.mu.Unlock()

	notifyTotal.Inc()

	for id, fn := range subs {
		if err := h.invoke(fn); err != nil {
			subscriberFailures.Inc()
			h.logger.WithError(err).WithField("subscriber_id", id).Warn("change subscriber failed")
		}
	}

	if broadcaster != nil {
		broadcaster.BroadcastRefresh()
	}
}

func (h *Hub) invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return fn()
}
