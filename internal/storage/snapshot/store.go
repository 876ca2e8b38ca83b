package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// Store хранит единственный, самый свежий снапшот склада в JSON-файле.
// Контракт намеренно lossy: новый снапшот затирает предыдущий, никакой
// многоверсионности нет.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore создаёт файловый снапшот-store по указанному пути.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// document — сериализованная форма снапшота.
type document struct {
	SavedAt int64          `json:"savedAt"`
	Items   []itemDocument `json:"items"`
}

type itemDocument struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Expiry   string          `json:"expiry"`
	ImageRef string          `json:"imageRef,omitempty"`
}

// Save записывает полную копию склада. Пишем во временный файл и
// переименовываем, чтобы читатель никогда не увидел полузаписанный снапшот.
func (s *Store) Save(items []domain.StockItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{
		SavedAt: time.Now().Unix(),
		Items:   make([]itemDocument, 0, len(items)),
	}
	for _, item := range items {
		doc.Items = append(doc.Items, itemDocument{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
			Quantity: item.Quantity,
			Expiry:   item.Expiry,
			ImageRef: item.ImageRef,
		})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// Load читает последний снапшот или возвращает domain.ErrNoSnapshot,
// если ни одного успешного листинга ещё не было.
func (s *Store) Load() (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, domain.ErrNoSnapshot
		}
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	snap := domain.Snapshot{
		SavedAt: time.Unix(doc.SavedAt, 0).UTC(),
		Items:   make([]domain.StockItem, 0, len(doc.Items)),
	}
	for _, item := range doc.Items {
		snap.Items = append(snap.Items, domain.StockItem{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
			Quantity: item.Quantity,
			Expiry:   item.Expiry,
			ImageRef: item.ImageRef,
		})
	}

	return snap, nil
}

var _ domain.SnapshotStore = (*Store)(nil)
