// Package inventory предоставляет устойчивый к сбоям сервис склада:
// обёртку над живым хранилищем, которая деградирует на снапшот при
// недоступности базы и журналирует не прошедшие мутации.
package inventory

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

var (
	staleReadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_inventory_stale_reads_total",
		Help: "Total number of reads served from the snapshot instead of the live store.",
	})
	offlineQueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medimart_inventory_offline_queued_total",
		Help: "Total number of mutations recorded to the offline queue.",
	}, []string{"op"})
	snapshotSaveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medimart_inventory_snapshot_save_failures_total",
		Help: "Total number of failed best-effort snapshot saves.",
	})
)

// Notifier уведомляет заинтересованные стороны об изменении склада.
type Notifier interface {
	Notify()
}

// adjustPayload — параметры AdjustQuantity в журнале offline-мутаций.
type adjustPayload struct {
	ID    int64 `json:"id"`
	Delta int   `json:"delta"`
}

// deletePayload — параметры Delete в журнале offline-мутаций.
type deletePayload struct {
	ID int64 `json:"id"`
}

// Service оборачивает живое хранилище склада. Чтения при транзиентном
// сбое обслуживаются из последнего снапшота, мутации при сбое попадают в
// offline-журнал, успешные мутации дёргают хаб уведомлений ровно один раз.
type Service struct {
	repo      domain.InventoryRepository
	snapshots domain.SnapshotStore
	queue     domain.OfflineQueue
	notifier  Notifier
	logger    *log.Entry
}

var _ domain.InventoryRepository = (*Service)(nil)

// NewService создаёт сервис склада. snapshots, queue и notifier могут быть
// nil: соответствующий механизм просто отключается.
func NewService(repo domain.InventoryRepository, snapshots domain.SnapshotStore, queue domain.OfflineQueue, notifier Notifier, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "inventory-service")
	}
	return &Service{
		repo:      repo,
		snapshots: snapshots,
		queue:     queue,
		notifier:  notifier,
		logger:    logger,
	}
}

// ListAll возвращает склад из живого хранилища; при транзиентном сбое
// отдаёт последний снапшот. Успешное чтение попутно обновляет снапшот.
func (s *Service) ListAll() ([]domain.StockItem, error) {
	items, err := s.repo.ListAll()
	if err == nil {
		s.saveSnapshot(items)
		return items, nil
	}
	if !domain.IsTransient(err) {
		return nil, err
	}

	snap, loadErr := s.loadSnapshot(err)
	if loadErr != nil {
		return nil, err
	}
	return snap.Items, nil
}

// GetByID возвращает позицию из живого хранилища, при транзиентном сбое
// ищет её в снапшоте. Отсутствие позиции в снапшоте неотличимо от её
// отсутствия на складе и отдаётся как ErrItemNotFound.
func (s *Service) GetByID(id int64) (domain.StockItem, error) {
	item, err := s.repo.GetByID(id)
	if err == nil {
		return item, nil
	}
	if !domain.IsTransient(err) {
		return domain.StockItem{}, err
	}

	snap, loadErr := s.loadSnapshot(err)
	if loadErr != nil {
		return domain.StockItem{}, err
	}
	for _, candidate := range snap.Items {
		if candidate.ID == id {
			return candidate, nil
		}
	}
	return domain.StockItem{}, domain.ErrItemNotFound
}

// Insert сохраняет новую позицию и уведомляет подписчиков.
func (s *Service) Insert(item domain.StockItem) (int64, error) {
	id, err := s.repo.Insert(item)
	if err != nil {
		s.queueOnTransient(domain.OfflineOpAdd, item, err)
		return 0, err
	}
	s.notify()
	return id, nil
}

// Update перезаписывает позицию и уведомляет подписчиков, если запись
// действительно изменилась.
func (s *Service) Update(item domain.StockItem) (bool, error) {
	ok, err := s.repo.Update(item)
	if err != nil {
		s.queueOnTransient(domain.OfflineOpUpdate, item, err)
		return false, err
	}
	if ok {
		s.notify()
	}
	return ok, nil
}

// AdjustQuantity изменяет остаток и уведомляет подписчиков при успехе.
func (s *Service) AdjustQuantity(id int64, delta int) (bool, error) {
	ok, err := s.repo.AdjustQuantity(id, delta)
	if err != nil {
		s.queueOnTransient(domain.OfflineOpAdjust, adjustPayload{ID: id, Delta: delta}, err)
		return false, err
	}
	if ok {
		s.notify()
	}
	return ok, nil
}

// Delete удаляет позицию и уведомляет подписчиков при успехе.
func (s *Service) Delete(id int64) (bool, error) {
	ok, err := s.repo.Delete(id)
	if err != nil {
		s.queueOnTransient(domain.OfflineOpDelete, deletePayload{ID: id}, err)
		return false, err
	}
	if ok {
		s.notify()
	}
	return ok, nil
}

// saveSnapshot обновляет снапшот best-effort: неудача логируется и не
// влияет на результат чтения.
func (s *Service) saveSnapshot(items []domain.StockItem) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(items); err != nil {
		snapshotSaveFailuresTotal.Inc()
		s.logger.WithError(err).Warn("snapshot save failed, continuing with live data")
	}
}

// loadSnapshot достаёт снапшот для деградированного чтения. cause — тот
// транзиентный сбой, из-за которого живое хранилище недоступно.
func (s *Service) loadSnapshot(cause error) (domain.Snapshot, error) {
	if s.snapshots == nil {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}
	snap, err := s.snapshots.Load()
	if err != nil {
		if !errors.Is(err, domain.ErrNoSnapshot) {
			s.logger.WithError(err).Warn("snapshot load failed")
		}
		return domain.Snapshot{}, err
	}

	staleReadsTotal.Inc()
	s.logger.WithError(cause).WithField("saved_at", snap.SavedAt).
		Warn("live store unreachable, serving stale snapshot")
	return snap, nil
}

// queueOnTransient записывает мутацию в offline-журнал, если сбой
// транзиентный. Нарушения ограничений не журналируются: их повтор
// детерминированно упадёт снова. Сама запись best-effort, ошибка журнала
// не подменяет исходную.
func (s *Service) queueOnTransient(op domain.OfflineOp, payload any, err error) {
	if s.queue == nil || !domain.IsTransient(err) {
		return
	}
	if appendErr := s.queue.Append(op, payload); appendErr != nil {
		s.logger.WithError(appendErr).WithField("op", string(op)).
			Warn("offline queue append failed, mutation lost")
		return
	}
	offlineQueuedTotal.WithLabelValues(string(op)).Inc()
	s.logger.WithField("op", string(op)).Info("mutation recorded to offline queue")
}

func (s *Service) notify() {
	if s.notifier != nil {
		s.notifier.Notify()
	}
}
