package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// Queue — append-only журнал мутаций, не дошедших до живого хранилища.
// Одна JSON-запись на строку; записи никогда не переписываются и не
// проигрываются автоматически.
type Queue struct {
	mu   sync.Mutex
	path string
}

// NewQueue создаёт журнал по указанному пути.
func NewQueue(path string) *Queue {
	return &Queue{path: path}
}

type queueRecord struct {
	TS      int64           `json:"ts"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

// Append дописывает одну запись о неудавшейся мутации.
func (q *Queue) Append(op domain.OfflineOp, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal offline payload: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create offline queue dir: %w", err)
	}

	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open offline queue: %w", err)
	}
	defer f.Close()

	record := queueRecord{
		TS:      time.Now().Unix(),
		Op:      string(op),
		Payload: raw,
	}
	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("append offline queue record: %w", err)
	}

	return nil
}

// Entries читает журнал целиком — для диагностики и ручного replay.
// Отсутствующий файл означает пустой журнал.
func (q *Queue) Entries() ([]domain.OfflineQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open offline queue: %w", err)
	}
	defer f.Close()

	var entries []domain.OfflineQueueEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record queueRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode offline queue record: %w", err)
		}
		entries = append(entries, domain.OfflineQueueEntry{
			TS:      time.Unix(record.TS, 0).UTC(),
			Op:      domain.OfflineOp(record.Op),
			Payload: record.Payload,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan offline queue: %w", err)
	}

	return entries, nil
}

var _ domain.OfflineQueue = (*Queue)(nil)
