package domain

import (
	"encoding/json"
	"time"
)

// Snapshot — полная копия склада на момент последнего успешного листинга.
// Используется только для деградированных чтений; для корректной работы
// здорового хранилища не нужна.
type Snapshot struct {
	SavedAt time.Time
	Items   []StockItem
}

// OfflineOp — вид мутации, не прошедшей в живое хранилище.
type OfflineOp string

const (
	OfflineOpAdd    OfflineOp = "add"
	OfflineOpUpdate OfflineOp = "update"
	OfflineOpDelete OfflineOp = "delete"
	OfflineOpAdjust OfflineOp = "adjust"
)

// OfflineQueueEntry — одна запись append-only журнала неудавшихся мутаций.
// Журнал существует для диагностики и ручного replay, автоматических
// повторов нет.
type OfflineQueueEntry struct {
	TS      time.Time
	Op      OfflineOp
	Payload json.RawMessage
}
