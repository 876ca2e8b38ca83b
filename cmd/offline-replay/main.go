// offline-replay вручную проигрывает журнал мутаций, не дошедших до общей
// базы склада. По умолчанию работает в режиме dry-run: показывает, что было
// бы применено, и ничего не меняет.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
	"github.com/vladislavdragonenkov/medimart/internal/storage/postgres"
	"github.com/vladislavdragonenkov/medimart/internal/storage/snapshot"
)

const defaultOpenTimeout = 10 * time.Second

type config struct {
	queuePath string
	dsn       string
	limit     int
	execute   bool
}

type replayStats struct {
	processed int
	applied   int
	skipped   int
}

type adjustPayload struct {
	ID    int64 `json:"id"`
	Delta int   `json:"delta"`
}

type deletePayload struct {
	ID int64 `json:"id"`
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("offline replay failed: %v", err)
	}
}

func readConfig() (config, error) {
	var cfg config

	flag.StringVar(&cfg.queuePath, "queue", "data/offline-queue.jsonl", "path to the offline queue file")
	flag.StringVar(&cfg.dsn, "dsn", "", "PostgreSQL DSN (fallback: MEDIMART_DB_DSN)")
	flag.IntVar(&cfg.limit, "limit", 0, "max number of entries to replay (0 = all)")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.Parse()

	if strings.TrimSpace(cfg.queuePath) == "" {
		return config{}, fmt.Errorf("queue path is required")
	}
	if strings.TrimSpace(cfg.dsn) == "" {
		cfg.dsn = strings.TrimSpace(os.Getenv("MEDIMART_DB_DSN"))
	}
	if cfg.execute && cfg.dsn == "" {
		return config{}, fmt.Errorf("MEDIMART_DB_DSN (or -dsn) is required in execute mode")
	}

	return cfg, nil
}

func run(ctx context.Context, cfg config) error {
	entries, err := snapshot.NewQueue(cfg.queuePath).Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.WithField("queue", cfg.queuePath).Info("offline queue is empty, nothing to replay")
		return nil
	}

	var repo domain.InventoryRepository
	if cfg.execute {
		openCtx, cancel := context.WithTimeout(ctx, defaultOpenTimeout)
		store, err := postgres.Open(openCtx, cfg.dsn)
		cancel()
		if err != nil {
			return err
		}
		defer store.Close()
		repo = postgres.NewInventoryRepository(store)
	}

	stats, err := replayEntries(entries, repo, cfg)

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":      mode,
		"processed": stats.processed,
		"applied":   stats.applied,
		"skipped":   stats.skipped,
	}).Info("offline replay finished")

	return err
}

// replayEntries применяет записи журнала по порядку. Детерминированные
// отказы (нарушение ограничений, исчезнувшая позиция) пропускаются с
// предупреждением, транзиентный сбой прерывает replay: журнал остаётся
// нетронутым и проигрывание можно повторить позже.
func replayEntries(entries []domain.OfflineQueueEntry, repo domain.InventoryRepository, cfg config) (replayStats, error) {
	var stats replayStats

	for _, entry := range entries {
		if cfg.limit > 0 && stats.processed >= cfg.limit {
			break
		}
		stats.processed++

		entryLogger := log.WithFields(log.Fields{
			"op": string(entry.Op),
			"ts": entry.TS.Format(time.RFC3339),
		})

		if !cfg.execute {
			entryLogger.Info("replay candidate")
			stats.applied++
			continue
		}

		applied, err := applyEntry(repo, entry)
		if err != nil {
			if domain.IsTransient(err) {
				return stats, fmt.Errorf("apply %s entry: %w", entry.Op, err)
			}
			entryLogger.WithError(err).Warn("skip entry, deterministic failure")
			stats.skipped++
			continue
		}
		if !applied {
			entryLogger.Warn("skip entry, target item is gone")
			stats.skipped++
			continue
		}

		stats.applied++
	}

	return stats, nil
}

func applyEntry(repo domain.InventoryRepository, entry domain.OfflineQueueEntry) (bool, error) {
	switch entry.Op {
	case domain.OfflineOpAdd:
		var item domain.StockItem
		if err := json.Unmarshal(entry.Payload, &item); err != nil {
			return false, fmt.Errorf("decode add payload: %w", err)
		}
		if _, err := repo.Insert(item); err != nil {
			return false, err
		}
		return true, nil
	case domain.OfflineOpUpdate:
		var item domain.StockItem
		if err := json.Unmarshal(entry.Payload, &item); err != nil {
			return false, fmt.Errorf("decode update payload: %w", err)
		}
		return repo.Update(item)
	case domain.OfflineOpAdjust:
		var payload adjustPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return false, fmt.Errorf("decode adjust payload: %w", err)
		}
		return repo.AdjustQuantity(payload.ID, payload.Delta)
	case domain.OfflineOpDelete:
		var payload deletePayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return false, fmt.Errorf("decode delete payload: %w", err)
		}
		return repo.Delete(payload.ID)
	default:
		return false, fmt.Errorf("unsupported offline op %q", entry.Op)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
