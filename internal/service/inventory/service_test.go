package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
	"github.com/vladislavdragonenkov/medimart/internal/service/inventory"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

// fakeRepo позволяет подменить результат каждой операции живого хранилища.
type fakeRepo struct {
	listItems []domain.StockItem
	listErr   error

	getItem domain.StockItem
	getErr  error

	insertID  int64
	insertErr error

	updateOK  bool
	updateErr error

	adjustOK  bool
	adjustErr error

	deleteOK  bool
	deleteErr error
}

func (f *fakeRepo) ListAll() ([]domain.StockItem, error)    { return f.listItems, f.listErr }
func (f *fakeRepo) GetByID(int64) (domain.StockItem, error) { return f.getItem, f.getErr }
func (f *fakeRepo) Insert(domain.StockItem) (int64, error)  { return f.insertID, f.insertErr }
func (f *fakeRepo) Update(domain.StockItem) (bool, error)   { return f.updateOK, f.updateErr }
func (f *fakeRepo) AdjustQuantity(int64, int) (bool, error) { return f.adjustOK, f.adjustErr }
func (f *fakeRepo) Delete(int64) (bool, error)              { return f.deleteOK, f.deleteErr }

type fakeSnapshots struct {
	saved   [][]domain.StockItem
	saveErr error

	snap    domain.Snapshot
	loadErr error
}

func (f *fakeSnapshots) Save(items []domain.StockItem) error {
	f.saved = append(f.saved, items)
	return f.saveErr
}

func (f *fakeSnapshots) Load() (domain.Snapshot, error) {
	if f.loadErr != nil {
		return domain.Snapshot{}, f.loadErr
	}
	return f.snap, nil
}

type queuedEntry struct {
	op      domain.OfflineOp
	payload any
}

type fakeQueue struct {
	entries   []queuedEntry
	appendErr error
}

func (f *fakeQueue) Append(op domain.OfflineOp, payload any) error {
	f.entries = append(f.entries, queuedEntry{op: op, payload: payload})
	return f.appendErr
}

type countingNotifier struct {
	calls int
}

func (n *countingNotifier) Notify() { n.calls++ }

func transientErr() error {
	return &domain.TransientIOError{Op: "list stock items", Cause: errors.New("connection refused")}
}

func constraintErr() error {
	return &domain.ConstraintViolationError{Op: "insert stock item", Cause: errors.New("duplicate key")}
}

func sampleItems() []domain.StockItem {
	return []domain.StockItem{
		{ID: 1, Name: "Paracetamol", Category: "Painkiller", Price: decimal.NewFromFloat(2.50), Quantity: 10},
		{ID: 2, Name: "Ibuprofen", Category: "Painkiller", Price: decimal.NewFromFloat(3.00), Quantity: 4},
	}
}

func TestListAll_SavesSnapshotOnSuccess(t *testing.T) {
	repo := &fakeRepo{listItems: sampleItems()}
	snapshots := &fakeSnapshots{}
	svc := inventory.NewService(repo, snapshots, nil, nil, testLogger())

	items, err := svc.ListAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, snapshots.saved, 1, "successful read must refresh the snapshot")
	require.Equal(t, items, snapshots.saved[0])
}

func TestListAll_SnapshotSaveFailureDoesNotFailRead(t *testing.T) {
	repo := &fakeRepo{listItems: sampleItems()}
	snapshots := &fakeSnapshots{saveErr: errors.New("disk full")}
	svc := inventory.NewService(repo, snapshots, nil, nil, testLogger())

	items, err := svc.ListAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestListAll_FallsBackToSnapshotOnTransientError(t *testing.T) {
	repo := &fakeRepo{listErr: transientErr()}
	snapshots := &fakeSnapshots{snap: domain.Snapshot{
		SavedAt: time.Now().Add(-time.Hour),
		Items:   sampleItems(),
	}}
	svc := inventory.NewService(repo, snapshots, nil, nil, testLogger())

	items, err := svc.ListAll()
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Paracetamol", items[0].Name)
}

func TestListAll_NoSnapshotReturnsOriginalError(t *testing.T) {
	cause := transientErr()
	repo := &fakeRepo{listErr: cause}
	snapshots := &fakeSnapshots{loadErr: domain.ErrNoSnapshot}
	svc := inventory.NewService(repo, snapshots, nil, nil, testLogger())

	_, err := svc.ListAll()
	require.ErrorIs(t, err, cause)
	require.True(t, domain.IsTransient(err))
}

func TestListAll_NonTransientErrorSkipsFallback(t *testing.T) {
	repo := &fakeRepo{listErr: constraintErr()}
	snapshots := &fakeSnapshots{snap: domain.Snapshot{Items: sampleItems()}}
	svc := inventory.NewService(repo, snapshots, nil, nil, testLogger())

	_, err := svc.ListAll()
	require.True(t, domain.IsConstraintViolation(err))
}

func TestGetByID_FallsBackToSnapshot(t *testing.T) {
	repo := &fakeRepo{getErr: transientErr()}
	snapshots := &fakeSnapshots{snap: domain.Snapshot{Items: sampleItems()}}
	svc := inventory.NewService(repo, snapshots, nil, nil, testLogger())

	item, err := svc.GetByID(2)
	require.NoError(t, err)
	require.Equal(t, "Ibuprofen", item.Name)

	// Позиции нет в снапшоте: для читателя это обычное "не найдено".
	_, err = svc.GetByID(99)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestGetByID_NotFoundPassesThrough(t *testing.T) {
	repo := &fakeRepo{getErr: domain.ErrItemNotFound}
	svc := inventory.NewService(repo, &fakeSnapshots{snap: domain.Snapshot{Items: sampleItems()}}, nil, nil, testLogger())

	_, err := svc.GetByID(1)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestInsert_NotifiesOnceOnSuccess(t *testing.T) {
	repo := &fakeRepo{insertID: 7}
	notifier := &countingNotifier{}
	queue := &fakeQueue{}
	svc := inventory.NewService(repo, nil, queue, notifier, testLogger())

	id, err := svc.Insert(sampleItems()[0])
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Equal(t, 1, notifier.calls)
	require.Empty(t, queue.entries)
}

func TestInsert_TransientFailureGoesToOfflineQueue(t *testing.T) {
	cause := transientErr()
	repo := &fakeRepo{insertErr: cause}
	notifier := &countingNotifier{}
	queue := &fakeQueue{}
	svc := inventory.NewService(repo, nil, queue, notifier, testLogger())

	_, err := svc.Insert(sampleItems()[0])
	require.ErrorIs(t, err, cause)
	require.Equal(t, 0, notifier.calls, "failed mutation must not notify")
	require.Len(t, queue.entries, 1)
	require.Equal(t, domain.OfflineOpAdd, queue.entries[0].op)
}

func TestInsert_ConstraintViolationIsNotQueued(t *testing.T) {
	repo := &fakeRepo{insertErr: constraintErr()}
	queue := &fakeQueue{}
	svc := inventory.NewService(repo, nil, queue, nil, testLogger())

	_, err := svc.Insert(sampleItems()[0])
	require.True(t, domain.IsConstraintViolation(err))
	require.Empty(t, queue.entries, "deterministic failures must not be replayed")
}

func TestInsert_QueueAppendFailureKeepsOriginalError(t *testing.T) {
	cause := transientErr()
	repo := &fakeRepo{insertErr: cause}
	queue := &fakeQueue{appendErr: errors.New("disk full")}
	svc := inventory.NewService(repo, nil, queue, nil, testLogger())

	_, err := svc.Insert(sampleItems()[0])
	require.ErrorIs(t, err, cause)
}

func TestUpdate_NoRowDoesNotNotify(t *testing.T) {
	repo := &fakeRepo{updateOK: false}
	notifier := &countingNotifier{}
	svc := inventory.NewService(repo, nil, nil, notifier, testLogger())

	ok, err := svc.Update(sampleItems()[0])
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 0, notifier.calls)
}

func TestAdjustQuantity_SuccessNotifies(t *testing.T) {
	repo := &fakeRepo{adjustOK: true}
	notifier := &countingNotifier{}
	svc := inventory.NewService(repo, nil, nil, notifier, testLogger())

	ok, err := svc.AdjustQuantity(1, -3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, notifier.calls)
}

func TestAdjustQuantity_TransientFailureQueuesOp(t *testing.T) {
	repo := &fakeRepo{adjustErr: transientErr()}
	queue := &fakeQueue{}
	svc := inventory.NewService(repo, nil, queue, nil, testLogger())

	_, err := svc.AdjustQuantity(1, -3)
	require.Error(t, err)
	require.Len(t, queue.entries, 1)
	require.Equal(t, domain.OfflineOpAdjust, queue.entries[0].op)
}

func TestDelete_TransientFailureQueuesOp(t *testing.T) {
	repo := &fakeRepo{deleteErr: transientErr()}
	queue := &fakeQueue{}
	notifier := &countingNotifier{}
	svc := inventory.NewService(repo, nil, queue, notifier, testLogger())

	_, err := svc.Delete(5)
	require.Error(t, err)
	require.Equal(t, 0, notifier.calls)
	require.Len(t, queue.entries, 1)
	require.Equal(t, domain.OfflineOpDelete, queue.entries[0].op)
}
