package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/medimart/internal/domain"
)

// classify переводит ошибку драйвера в таксономию домена: нарушения
// ограничений схемы (SQLSTATE класс 23) ретраить бессмысленно, всё
// остальное считаем временной недоступностью хранилища.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &domain.ConstraintViolationError{Op: op, Cause: err}
	}

	return &domain.TransientIOError{Op: op, Cause: err}
}
